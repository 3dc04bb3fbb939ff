package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/mentionsense/internal/profile"
	"github.com/hrygo/mentionsense/store"
	"github.com/hrygo/mentionsense/store/db/postgres"
	"github.com/hrygo/mentionsense/store/db/sqlite"
)

// PostgreSQL is the production backend; SQLite serves development, demo mode
// and tests. Both implement every store.Driver method.

// NewDBDriver creates new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
