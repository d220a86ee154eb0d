package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "stream.orders", cfg.Seckill.Stream)
	assert.Equal(t, "g1", cfg.Seckill.Group)
	assert.Equal(t, "c1", cfg.Seckill.Consumer)
	assert.Equal(t, 2*time.Second, cfg.Seckill.BlockTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Cache.NullTTL)
	assert.Equal(t, 0.1, cfg.Cache.TTLJitterRatio)
	assert.Equal(t, 10, cfg.Cache.RebuildWorkers)
	assert.Equal(t, uint(1000000), cfg.Cache.Bloom.Capacity)
	assert.Equal(t, 0.01, cfg.Cache.Bloom.FPRate)
	assert.False(t, cfg.Cache.Bloom.Enabled)
}

func TestValidate(t *testing.T) {
	valid := &Config{}
	valid.SetDefaults()
	valid.Database.Username = "dealhub"
	valid.Database.DBName = "dealhub"
	valid.Security.JWT.Secret = "secret"
	require.NoError(t, valid.Validate())

	t.Run("RejectsBadPort", func(t *testing.T) {
		cfg := *valid
		cfg.Server.Port = 70000
		assert.Error(t, cfg.Validate())
	})

	t.Run("RequiresJWTSecret", func(t *testing.T) {
		cfg := *valid
		cfg.Security.JWT.Secret = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("RequiresDatabaseName", func(t *testing.T) {
		cfg := *valid
		cfg.Database.DBName = ""
		assert.Error(t, cfg.Validate())
	})
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
database:
  username: dealhub
  dbname: dealhub
security:
  jwt:
    secret: file-secret
seckill:
  group: orders-group
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "orders-group", cfg.Seckill.Group)
	// Unset keys fall back to defaults
	assert.Equal(t, "stream.orders", cfg.Seckill.Stream)
	assert.Equal(t, "file-secret", cfg.Security.JWT.Secret)
}

func TestGetDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     3306,
		Username: "u",
		Password: "p",
		DBName:   "dealhub",
	}
	assert.Equal(t, "u:p@tcp(db.internal:3306)/dealhub?charset=utf8mb4&parseTime=True&loc=Local", d.GetDSN())
}
