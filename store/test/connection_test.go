package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/mentionsense/store"
)

func TestEnsureConnection(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	conn := &store.Connection{
		UserID:   store.StringToID("42"),
		RoomID:   store.StringToID("conversation-1"),
		Username: "alice",
		Name:     "Alice",
		Source:   "twitter",
	}
	require.NoError(t, ts.EnsureConnection(ctx, conn))
	// Second call hits existing rows and must not fail.
	require.NoError(t, ts.EnsureConnection(ctx, conn))

	var count int
	err := ts.GetDriver().GetDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM participant").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.Error(t, ts.EnsureConnection(ctx, &store.Connection{UserID: "u"}))
}

func TestSystemSettingAndCacheEntry(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	schema, err := ts.GetSystemSetting(ctx, "schema_version")
	require.NoError(t, err)
	require.NotNil(t, schema)
	current, err := ts.GetCurrentSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, current, schema.Value)

	_, err = ts.UpsertSystemSetting(ctx, &store.SystemSetting{Name: "watermark:shillbot", Value: "100"})
	require.NoError(t, err)
	_, err = ts.UpsertSystemSetting(ctx, &store.SystemSetting{Name: "watermark:shillbot", Value: "200"})
	require.NoError(t, err)
	setting, err := ts.GetSystemSetting(ctx, "watermark:shillbot")
	require.NoError(t, err)
	assert.Equal(t, "200", setting.Value)

	absent, err := ts.GetSystemSetting(ctx, "watermark:nobody")
	require.NoError(t, err)
	assert.Nil(t, absent)

	require.NoError(t, ts.SetCacheEntry(ctx, &store.CacheEntry{Key: "mentionsense/generation_1.txt", Value: "v1"}))
	require.NoError(t, ts.SetCacheEntry(ctx, &store.CacheEntry{Key: "mentionsense/generation_1.txt", Value: "v2"}))
	entry, err := ts.GetCacheEntry(ctx, "mentionsense/generation_1.txt")
	require.NoError(t, err)
	assert.Equal(t, "v2", entry.Value)

	none, err := ts.GetCacheEntry(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMigrateIsRepeatable(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	require.NoError(t, ts.Migrate(ctx))
}
