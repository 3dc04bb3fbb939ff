package test

import (
	"context"
	"os"
	"testing"

	"github.com/hrygo/mentionsense/internal/profile"
	"github.com/hrygo/mentionsense/internal/version"
	"github.com/hrygo/mentionsense/store"
	"github.com/hrygo/mentionsense/store/db"
)

// NewTestingStore returns a migrated store. DRIVER=postgres with DSN set runs
// against a live PostgreSQL; otherwise a fresh SQLite file under t.TempDir().
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	p := getTestingProfile(t)
	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	s := store.New(dbDriver, p)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func getTestingProfile(t *testing.T) *profile.Profile {
	t.Helper()

	mode := "dev"
	driver := getDriverFromEnv()
	p := &profile.Profile{
		Mode:        mode,
		Data:        t.TempDir(),
		Driver:      driver,
		Version:     version.GetCurrentVersion(mode),
		AgentHandle: "shillbot",
	}
	switch driver {
	case "postgres":
		p.DSN = os.Getenv("DSN")
		if p.DSN == "" {
			t.Skip("DSN is required for postgres tests")
		}
	default:
		p.Driver = "sqlite"
		p.DSN = p.Data + "/mentionsense_test.db"
	}
	return p
}

func getDriverFromEnv() string {
	driver := os.Getenv("DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	return driver
}
