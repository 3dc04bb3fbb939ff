package store

import "context"

// CacheEntry is an auxiliary key/value record, used for generation audits.
type CacheEntry struct {
	Key       string
	Value     string
	CreatedTs int64
}

// SetCacheEntry overwrites any entry stored under the same key.
func (s *Store) SetCacheEntry(ctx context.Context, entry *CacheEntry) error {
	return s.driver.SetCacheEntry(ctx, entry)
}

// GetCacheEntry returns nil, nil when the key is absent.
func (s *Store) GetCacheEntry(ctx context.Context, key string) (*CacheEntry, error) {
	return s.driver.GetCacheEntry(ctx, key)
}
