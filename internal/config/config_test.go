package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetenv removes key for the duration of the test.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetenv(t, "DB_DRIVER", "DB_PORT", "SERVER_PORT", "CACHE_TYPE", "IDEMPOTENCY_TTL", "DB_CREATE_INVENTORY")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, DriverMySQL, cfg.Database.Driver)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, 24*time.Hour, cfg.Cache.IdempotencyTTL)
	assert.False(t, cfg.Database.CreateInventory)
}

func TestLoad_FromEnvironment(t *testing.T) {
	unsetenv(t, "DB_PORT")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "shop")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("DB_NAME", "merch")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "shop", cfg.Database.User)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "merch", cfg.Database.Name)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Address())
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported DB_DRIVER")
}

func TestLoad_RejectsUnknownCacheType(t *testing.T) {
	unsetenv(t, "DB_DRIVER")
	t.Setenv("CACHE_TYPE", "memcached")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported CACHE_TYPE")
}

func TestDSN_MySQL(t *testing.T) {
	d := DatabaseConfig{Driver: DriverMySQL, Host: "localhost", User: "root", Password: "pw", Name: "inventory"}

	dsn := d.DSN()
	assert.True(t, strings.HasPrefix(dsn, "root:pw@tcp(localhost:3306)/inventory?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "clientFoundRows=true")
}

func TestDSN_Postgres(t *testing.T) {
	d := DatabaseConfig{Driver: DriverPostgres, Host: "pg", User: "app", Password: "p@ss", Name: "inventory", SSLMode: "disable"}

	assert.Equal(t, "postgres://app:p%40ss@pg:5432/inventory?sslmode=disable", d.DSN())
}

func TestDSN_SQLite(t *testing.T) {
	d := DatabaseConfig{Driver: DriverSQLite, Path: "/tmp/inv.db"}

	dsn := d.DSN()
	assert.True(t, strings.HasPrefix(dsn, "file:/tmp/inv.db?"), dsn)
	assert.Contains(t, dsn, "_txlock=immediate")
}

func TestDSN_ExplicitPort(t *testing.T) {
	d := DatabaseConfig{Driver: DriverMySQL, Host: "h", Port: 3307, User: "u", Name: "n"}
	assert.Contains(t, d.DSN(), "tcp(h:3307)")
}
