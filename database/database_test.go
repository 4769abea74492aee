package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/amirphl/qrtrack/config"
	"github.com/amirphl/qrtrack/models"
	"github.com/amirphl/qrtrack/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T) config.DatabaseConfig {
	return config.DatabaseConfig{
		Driver:     DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "nested", "qrtrack.db"),
	}
}

func TestOpenAndMigrateSQLite(t *testing.T) {
	cfg := sqliteConfig(t)
	db, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	applied, err := Migrate(context.Background(), db, cfg)
	require.NoError(t, err)
	assert.Zero(t, applied)

	assert.True(t, db.Migrator().HasTable(&models.QRCode{}))
	assert.True(t, db.Migrator().HasTable(&models.Scan{}))
}

func TestSQLiteUniqueShortCodeTranslated(t *testing.T) {
	cfg := sqliteConfig(t)
	db, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	_, err = Migrate(context.Background(), db, cfg)
	require.NoError(t, err)

	repo := repository.NewQRCodeRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &models.QRCode{ShortCode: "dup001", OriginalURL: "https://a.example"}))
	err = repo.Save(ctx, &models.QRCode{ShortCode: "dup001", OriginalURL: "https://b.example"})
	assert.True(t, repository.IsUniqueViolation(err))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "mysql"})
	assert.Error(t, err)

	_, err = Migrate(context.Background(), nil, config.DatabaseConfig{Driver: "mysql"})
	assert.Error(t, err)
}

func TestOpenRedis(t *testing.T) {
	client, err := OpenRedis(config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, client)

	mr := miniredis.RunT(t)
	client, err = OpenRedis(config.CacheConfig{Enabled: true, Provider: "redis", RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	_, err = OpenRedis(config.CacheConfig{Enabled: true, Provider: "redis", RedisURL: "::not a url"})
	assert.Error(t, err)
}
