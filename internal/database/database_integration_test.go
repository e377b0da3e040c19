//go:build integration

package database

import (
	"context"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/czczc/inspire-papers-viewer/internal/config"
)

// setupTestDB starts a disposable PostgreSQL container and connects to it.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("inspire_papers_test"),
		postgres.WithUsername("inspire"),
		postgres.WithPassword("testpassword"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	cfg := &config.DatabaseConfig{
		Host:              host,
		Port:              portNum,
		Name:              "inspire_papers_test",
		User:              "inspire",
		Password:          "testpassword",
		SSLMode:           config.SSLModeDisable,
		MaxConns:          4,
		MinConns:          1,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: 30 * time.Second,
		ConnectTimeout:    10 * time.Second,
	}

	db, err := New(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

// getMigrationsPath resolves the repository migrations directory.
func getMigrationsPath(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

func TestDB_Integration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("Health is not ready before migrations", func(t *testing.T) {
		health := db.Health(ctx)
		assert.Equal(t, "unhealthy", health.Status)
		assert.False(t, health.SchemaReady)
		assert.Equal(t, ErrSchemaMissing.Error(), health.Error)
		assert.GreaterOrEqual(t, health.MaxConns, int32(1))
	})

	t.Run("DBTX methods reach the server", func(t *testing.T) {
		var dbtx DBTX = db
		var result int
		require.NoError(t, dbtx.QueryRow(ctx, "SELECT 42").Scan(&result))
		assert.Equal(t, 42, result)
	})
}

func TestMigrator_Integration(t *testing.T) {
	db := setupTestDB(t)
	logger := zerolog.Nop()

	t.Run("rejects missing migrations path", func(t *testing.T) {
		migrator, err := NewMigrator(db, "/nonexistent/path", logger)
		assert.Nil(t, migrator)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "migrations path validation failed")
	})

	t.Run("directory override matches the built-in set", func(t *testing.T) {
		m, err := NewMigrator(db, getMigrationsPath(t), logger)
		require.NoError(t, err)
		version, _, err := m.Version()
		require.NoError(t, err)
		assert.Zero(t, version)
		require.NoError(t, m.Close())
	})

	migrator, err := NewMigrator(db, "", logger)
	require.NoError(t, err)
	defer migrator.Close()

	t.Run("up creates the small_papers table", func(t *testing.T) {
		require.NoError(t, migrator.Up())
		require.NoError(t, migrator.Up())

		version, dirty, err := migrator.Version()
		require.NoError(t, err)
		assert.False(t, dirty)
		assert.Equal(t, uint(1), version)

		var exists bool
		err = db.QueryRow(context.Background(),
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'small_papers')").Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists)

		health := db.Health(context.Background())
		assert.Equal(t, "healthy", health.Status)
		assert.True(t, health.SchemaReady)
	})

	t.Run("steps past the end succeeds", func(t *testing.T) {
		require.NoError(t, migrator.Steps(1))
	})

	t.Run("down removes it again", func(t *testing.T) {
		require.NoError(t, migrator.Down())
		require.NoError(t, migrator.Down())

		version, _, err := migrator.Version()
		require.NoError(t, err)
		assert.Zero(t, version)
		assert.False(t, db.Health(context.Background()).SchemaReady)
	})
}
