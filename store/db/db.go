package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/execfi/internal/profile"
	"github.com/hrygo/execfi/store"
	"github.com/hrygo/execfi/store/db/postgres"
	"github.com/hrygo/execfi/store/db/sqlite"
)

// PostgreSQL is the production database. SQLite covers local development
// and the test suite; both drivers implement the full store.Driver.

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
