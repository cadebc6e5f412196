package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, map[string]string{
		"DB_USER":    "qa",
		"DB_NAME":    "qa",
		"JWT_SECRET": "secret",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, "5432", cfg.DBPort)
	assert.Equal(t, "disable", cfg.DBSSLMode)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, []string{"*"}, cfg.AllowOrigins())
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, map[string]string{
		"STORE_DRIVER":       "memory",
		"PORT":               "9000",
		"JWT_SECRET":         "secret",
		"REQUEST_TIMEOUT":    "250ms",
		"LOG_FORMAT":         "json",
		"CORS_ALLOW_ORIGINS": "https://a.example, https://b.example,",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowOrigins())
}

func TestLoad_MissingSecret(t *testing.T) {
	setEnv(t, map[string]string{"STORE_DRIVER": "memory", "JWT_SECRET": ""})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWTSecret")
}

func TestValidate(t *testing.T) {
	valid := Config{
		Port: "8080", StoreDriver: DriverPostgres, DBHost: "db", DBUser: "u", DBName: "n",
		JWTSecret: "s", RequestTimeout: time.Second, LogLevel: "info", LogFormat: "text", DBLogLevel: "warn",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown driver", func(c *Config) { c.StoreDriver = "mongo" }},
		{"postgres without user", func(c *Config) { c.DBUser = "" }},
		{"postgres without name", func(c *Config) { c.DBName = "" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"bad db log level", func(c *Config) { c.DBLogLevel = "chatty" }},
		{"no timeout", func(c *Config) { c.RequestTimeout = time.Nanosecond }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	mem := valid
	mem.StoreDriver = DriverMemory
	mem.DBUser, mem.DBName = "", ""
	assert.NoError(t, mem.Validate())
}

func TestDSN(t *testing.T) {
	c := Config{DBHost: "db", DBPort: "5433", DBUser: "u", DBPassword: "p", DBName: "qa", DBSSLMode: "require"}
	assert.Equal(t, "host=db user=u password=p dbname=qa port=5433 sslmode=require TimeZone=UTC", c.DSN())
}
