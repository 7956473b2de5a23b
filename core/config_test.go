package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("JDAO_TEST_PASS", "s3cret")
	path := filepath.Join(t.TempDir(), "db.yaml")
	data := []byte(`driver: mysql
dsn: app:${JDAO_TEST_PASS}@tcp(localhost:3306)/app
max_open_conns: 20
conn_max_lifetime: 30m
log_level: warn
log_format: json
slow_threshold: 200ms
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Driver)
	assert.Equal(t, "app:s3cret@tcp(localhost:3306)/app", cfg.DSN)
	assert.Equal(t, 20, cfg.MaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.ConnMaxLifetime)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowThreshold)
}

func TestParseConfigErrors(t *testing.T) {
	_, err := ParseConfig([]byte("dsn: x"))
	assert.Error(t, err)

	_, err = ParseConfig([]byte("driver: [unclosed"))
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestOpenUnknownDialect(t *testing.T) {
	_, err := Open("oracle", "", nil)
	assert.ErrorIs(t, err, ErrUnknownDialect)
}
