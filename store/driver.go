package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Memory model related methods.
	// CreateMemory must not fail when the id already exists; it returns the
	// stored row instead.
	CreateMemory(ctx context.Context, create *Memory) (*Memory, error)
	// GetMemory returns nil, nil when the id is unknown.
	GetMemory(ctx context.Context, id string) (*Memory, error)
	ListMemories(ctx context.Context, find *FindMemory) ([]*Memory, error)

	// Connection related methods. Upserts never overwrite existing rows.
	UpsertAccount(ctx context.Context, upsert *Account) error
	UpsertRoom(ctx context.Context, upsert *Room) error
	UpsertParticipant(ctx context.Context, upsert *Participant) error

	// SystemSetting model related methods.
	UpsertSystemSetting(ctx context.Context, upsert *SystemSetting) (*SystemSetting, error)
	ListSystemSettings(ctx context.Context, find *FindSystemSetting) ([]*SystemSetting, error)

	// CacheEntry model related methods.
	SetCacheEntry(ctx context.Context, entry *CacheEntry) error
	GetCacheEntry(ctx context.Context, key string) (*CacheEntry, error)
}
