package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"coachbot/internal/repository"
)

func TestMigrateAndSeed(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "bot.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, MigrateAndSeed(db))
	// second run is a no-op
	require.NoError(t, MigrateAndSeed(db))

	store := repository.NewGormStore(db)
	coupons, err := store.ListCoupons(context.Background())
	require.NoError(t, err)
	assert.Len(t, coupons, 3)
}

func TestSeedDefaults_KeepsEdits(t *testing.T) {
	ctx := context.Background()
	store, err := repository.NewJSONFileStore(filepath.Join(t.TempDir(), "bot_data.json"))
	require.NoError(t, err)

	require.NoError(t, SeedDefaults(ctx, store))
	c, err := store.GetCoupon(ctx, "WELCOME10")
	require.NoError(t, err)
	c.Active = false
	require.NoError(t, store.PutCoupon(ctx, c))

	require.NoError(t, SeedDefaults(ctx, store))
	c, err = store.GetCoupon(ctx, "WELCOME10")
	require.NoError(t, err)
	assert.False(t, c.Active)
}
