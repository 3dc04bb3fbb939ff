package store

import (
	"time"

	"github.com/hrygo/mentionsense/internal/profile"
	"github.com/hrygo/mentionsense/plugin/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// Caches
	memoryCache     *cache.LRUCache[*Memory]  // memories by id
	connectionCache *cache.LRUCache[struct{}] // ensured user/room pairs
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:          driver,
		profile:         profile,
		memoryCache:     cache.NewLRUCache[*Memory](1000, 10*time.Minute),
		connectionCache: cache.NewLRUCache[struct{}](1000, 30*time.Minute),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	s.memoryCache.Clear()
	s.connectionCache.Clear()
	return s.driver.Close()
}
