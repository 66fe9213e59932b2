package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, path, resolved)
	assert.Equal(t, Default().Addr, cfg.Addr)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config file should be written")

	// the written file carries its own signing secret
	assert.NotEmpty(t, cfg.JWT.Secret)
	assert.NotEqual(t, PlaceholderJWTSecret, cfg.JWT.Secret)
	require.NoError(t, cfg.Validate())

	again, _, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, cfg.JWT.Secret, again.JWT.Secret)
}

func TestLoadReadsFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
addr: ":9000"
shutdown_timeout: 2s
database:
  driver: postgres
  url: postgres://file/db
broker:
  driver: redis
  redis:
    address: "redis:6379"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("ROOMCHAT_LOG_LEVEL", "debug")
	t.Setenv("ROOMCHAT_JWT_SECRET", "from-env")
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("ROOMCHAT_ADDR", "")
	t.Setenv("PORT", "")

	cfg, _, err := Load(nil, path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://env/db", cfg.Database.URL)
	assert.Equal(t, "redis", cfg.Broker.Driver)
	assert.Equal(t, "redis:6379", cfg.Broker.Redis.Address)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	require.NoError(t, cfg.Validate())
}

func TestLoadHonorsPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("ROOMCHAT_ADDR", "")
	t.Setenv("PORT", "3001")

	cfg, _, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, ":3001", cfg.Addr)
}

func validDefault() Config {
	cfg := Default()
	cfg.JWT.Secret = "s3cret"
	return cfg
}

func TestValidate(t *testing.T) {
	cfg := validDefault()
	require.NoError(t, cfg.Validate())

	placeholder := Default()
	assert.True(t, errors.Is(placeholder.Validate(), ErrInsecureJWTSecret))

	empty := validDefault()
	empty.JWT.Secret = ""
	assert.True(t, errors.Is(empty.Validate(), ErrInsecureJWTSecret))

	missing := validDefault()
	missing.Database.Driver = DriverPostgres
	missing.Database.URL = ""
	assert.True(t, errors.Is(missing.Validate(), ErrMissingDatabaseURL))

	mem := validDefault()
	mem.Database.Driver = DriverMemory
	mem.Database.URL = ""
	assert.NoError(t, mem.Validate())

	bad := validDefault()
	bad.Database.Driver = "oracle"
	assert.Error(t, bad.Validate())

	badBroker := validDefault()
	badBroker.Broker.Driver = "nats"
	assert.Error(t, badBroker.Validate())
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":1", Database: DatabaseConfig{Driver: DriverMemory}})
	assert.Equal(t, ":1", cfg.Addr)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "roomchat.db", cfg.Database.URL)
}
