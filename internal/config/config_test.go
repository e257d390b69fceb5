package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestDefaultsAreValid(t *testing.T) {
	assert.NoError(t, Validate(Defaults()))
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadFileThenEnv(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeFile(t, "vesflix.yaml", `
server:
  listen_addr: ":9000"
storage:
  backend: s3
  bucket: media
cache:
  ttl: 30m
redis:
  enabled: false
`)
	t.Setenv("VESFLIX_LISTEN_ADDR", ":9100")
	t.Setenv("VESFLIX_CACHE_MAX_CHUNK_BYTES", "1048576")
	t.Setenv("VESFLIX_DECRYPT_TIMEOUT", "90s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.ListenAddr)
	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "media", cfg.Storage.Bucket)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, int64(1<<20), cfg.Cache.MaxChunkBytes)
	assert.Equal(t, 90*time.Second, cfg.Stream.DecryptTimeout)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("VESFLIX_LOG_LEVEL=debug\n"), 0o600))
	// godotenv sets the variable in the process; restore it afterwards.
	t.Setenv("VESFLIX_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("VESFLIX_LOG_LEVEL"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeFile(t, "bad.yaml", "cache:\n  tll: 1h\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsNonYAML(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeFile(t, "cfg.json", "{}")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestInvalidEnvKeepsValue(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("VESFLIX_REDIS_DB", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Redis.DB)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "ftp" }},
		{"s3 without bucket", func(c *Config) { c.Storage.Backend = "s3"; c.Storage.Bucket = "" }},
		{"unknown driver", func(c *Config) { c.Metadata.Driver = "mongo" }},
		{"redis without addr", func(c *Config) { c.Redis.Addr = "" }},
		{"zero ttl", func(c *Config) { c.Cache.TTL = 0 }},
		{"zero memory cap", func(c *Config) { c.Cache.MemoryMaxBytes = 0 }},
		{"tiny block", func(c *Config) { c.Stream.BlockSize = 512 }},
		{"bad schedule", func(c *Config) { c.Stream.SweepSchedule = "whenever" }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"negative rate limit", func(c *Config) { c.Server.RateLimit = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}
