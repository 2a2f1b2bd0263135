package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"APP_PORT", "APP_ENV", "LOG_LEVEL", "STORE", "DATABASE_URL", "AUTO_MIGRATE",
	"DB_MAX_CONNS", "DB_MIN_CONNS", "DB_STATEMENT_TIMEOUT", "DB_LOCK_TIMEOUT",
	"JWT_SECRET", "JWT_ISSUER", "JWT_TTL",
}

// clearEnv blanks every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE", StoreMemory)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, int32(25), cfg.DBMaxConns)
	assert.Equal(t, int32(5), cfg.DBMinConns)
	assert.Equal(t, 30*time.Second, cfg.DBStatementTimeout)
	assert.Equal(t, 5*time.Second, cfg.DBLockTimeout)
	assert.Equal(t, "funcid", cfg.JWTIssuer)
	assert.Equal(t, 15*time.Minute, cfg.JWTTTL)
	assert.False(t, cfg.AutoMigrate)
	assert.False(t, cfg.AuthEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/funcid")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DB_LOCK_TIMEOUT", "750ms")
	t.Setenv("AUTO_MIGRATE", "true")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Store)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 750*time.Millisecond, cfg.DBLockTimeout)
	assert.True(t, cfg.AutoMigrate)
	assert.True(t, cfg.AuthEnabled())
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("STORE=memory\nAPP_PORT=9090\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("STORE")
		_ = os.Unsetenv("APP_PORT")
	})

	cfg, err := Load(path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "9090", cfg.Port)
}

func TestValidate(t *testing.T) {
	base := Config{Store: StoreMemory, DBMaxConns: 25, DBMinConns: 5, JWTTTL: time.Minute}
	require.NoError(t, base.Validate())

	noDSN := base
	noDSN.Store = StorePostgres
	assert.ErrorContains(t, noDSN.Validate(), "DATABASE_URL")

	unknown := base
	unknown.Store = "redis"
	assert.ErrorContains(t, unknown.Validate(), "unknown STORE")

	conns := base
	conns.DBMinConns = 30
	assert.Error(t, conns.Validate())

	ttl := base
	ttl.JWTTTL = 0
	assert.Error(t, ttl.Validate())
}
