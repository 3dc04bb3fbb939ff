package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hrygo/mentionsense/store"
)

func (d *DB) SetCacheEntry(ctx context.Context, entry *store.CacheEntry) error {
	if entry.CreatedTs == 0 {
		entry.CreatedTs = time.Now().Unix()
	}
	stmt := `INSERT INTO cache_entry (key, value, created_ts)
		VALUES (` + placeholders(3) + `)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, created_ts = EXCLUDED.created_ts`
	if _, err := d.db.ExecContext(ctx, stmt, entry.Key, entry.Value, entry.CreatedTs); err != nil {
		return fmt.Errorf("failed to set cache_entry: %w", err)
	}
	return nil
}

func (d *DB) GetCacheEntry(ctx context.Context, key string) (*store.CacheEntry, error) {
	entry := &store.CacheEntry{}
	query := `SELECT key, value, created_ts FROM cache_entry WHERE key = ` + placeholder(1)
	if err := d.db.QueryRowContext(ctx, query, key).Scan(&entry.Key, &entry.Value, &entry.CreatedTs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache_entry: %w", err)
	}
	return entry, nil
}
