package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/execfi/store"
)

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	version, err := ts.GetDriver().GetSystemSetting(ctx, store.SchemaVersionSettingName)
	require.NoError(t, err)
	require.Equal(t, store.SchemaVersion, version)

	require.NoError(t, ts.Migrate(ctx))
}

func TestMigrate_RefusesDowngrade(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	require.NoError(t, ts.GetDriver().UpsertSystemSetting(ctx, store.SchemaVersionSettingName, "9.0.0"))
	require.Error(t, ts.Migrate(ctx))
}
