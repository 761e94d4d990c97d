package test

import (
	"context"
	"os"
	"testing"

	"github.com/hrygo/execfi/internal/profile"
	"github.com/hrygo/execfi/store"
	"github.com/hrygo/execfi/store/db"
)

// NewTestingStore returns a migrated store. It runs on in-memory SQLite
// unless DRIVER=postgres is set, in which case a PostgreSQL container is used.
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
		s.Close()
	})
	return s
}

func getTestingProfile(t *testing.T) *profile.Profile {
	driver := os.Getenv("DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	p := &profile.Profile{
		Mode:   "dev",
		Driver: driver,
		Data:   t.TempDir(),
	}
	switch driver {
	case "postgres":
		p.DSN = GetPostgresDSN(t)
	default:
		p.DSN = ":memory:"
	}
	return p
}
