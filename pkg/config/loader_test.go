package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txmatching/pkg/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoader_LoadDefaults(t *testing.T) {
	loader := NewLoader(WithConfigPaths(filepath.Join(t.TempDir(), "absent.yaml")))
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Error(t, loader.MissingFile())
	assert.Equal(t, "matching-service", cfg.App.Name)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "memory", cfg.Lock.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Lock.TTL)
	assert.False(t, cfg.Audit.Enabled)
	assert.Equal(t, "stdout", cfg.Audit.Backend)

	matching, err := cfg.Matching.Configuration()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultConfiguration(), matching)
}

func TestLoader_LoadFromFile(t *testing.T) {
	path := writeConfig(t, `
app:
  name: custom-service
  environment: staging
log:
  level: debug
matching:
  max_cycle_length: 3
  use_binary_scoring: true
  forbidden_country_combinations: ["CZE:IL"]
`)

	loader := NewLoader(WithConfigPaths(path))
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.NoError(t, loader.MissingFile())
	assert.Equal(t, "custom-service", cfg.App.Name)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 3, cfg.Matching.MaxCycleLength)
	assert.True(t, cfg.Matching.UseBinaryScoring)
	assert.Equal(t, []string{"CZE:IL"}, cfg.Matching.ForbiddenCountryCombinations)
	assert.Equal(t, 100, cfg.Matching.MaxSequenceLength)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("TXMATCHING_APP_NAME", "env-service")
	t.Setenv("TXMATCHING_MATCHING_MAX_CYCLE_LENGTH", "5")
	t.Setenv("TXMATCHING_MATCHING_REQUIRED_PATIENT_DB_IDS", "3, 7")

	cfg, err := NewLoader(WithConfigPaths()).Load()
	require.NoError(t, err)

	assert.Equal(t, "env-service", cfg.App.Name)
	assert.Equal(t, 5, cfg.Matching.MaxCycleLength)
	assert.Equal(t, []int64{3, 7}, cfg.Matching.RequiredPatientDBIDs)
}

func TestLoader_EnvKeysWithUnderscores(t *testing.T) {
	t.Setenv("TXMATCHING_AUDIT_FILE_PATH", "/var/log/txmatching/audit.log")
	t.Setenv("TXMATCHING_CACHE_DEFAULT_TTL", "2m")
	t.Setenv("TXMATCHING_LOCK_REDIS_ADDR", "redis:6379")

	cfg, err := NewLoader(WithConfigPaths()).Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/log/txmatching/audit.log", cfg.Audit.FilePath)
	assert.Equal(t, 2*time.Minute, cfg.Cache.DefaultTTL)
	assert.Equal(t, "redis:6379", cfg.Lock.RedisAddr)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
app:
  name: file-service
matching:
  max_sequence_length: 4
`)
	t.Setenv("TXMATCHING_APP_NAME", "env-override")

	cfg, err := NewLoader(WithConfigPaths(path)).Load()
	require.NoError(t, err)

	assert.Equal(t, "env-override", cfg.App.Name)
	assert.Equal(t, 4, cfg.Matching.MaxSequenceLength)
}

func TestLoader_WithEnvPrefix(t *testing.T) {
	t.Setenv("CUSTOM_APP_NAME", "custom-prefix-service")

	cfg, err := NewLoader(WithEnvPrefix("CUSTOM_"), WithConfigPaths()).Load()
	require.NoError(t, err)
	assert.Equal(t, "custom-prefix-service", cfg.App.Name)
}

func TestLoader_ConfigEnvVar(t *testing.T) {
	path := writeConfig(t, `
app:
  name: config-env-var-service
`)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "config-env-var-service", cfg.App.Name)
}

func TestLoader_InvalidFileFailsValidation(t *testing.T) {
	path := writeConfig(t, `
lock:
  backend: zookeeper
`)

	_, err := NewLoader(WithConfigPaths(path)).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock.backend")
}

func TestLoader_InvalidAuditBackend(t *testing.T) {
	path := writeConfig(t, `
audit:
  enabled: true
  backend: syslog
`)

	_, err := NewLoader(WithConfigPaths(path)).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit.backend")
}

func TestMustLoad_Panics(t *testing.T) {
	path := writeConfig(t, `
log:
  level: loud
`)
	assert.Panics(t, func() { MustLoad(WithConfigPaths(path)) })
}

func TestLoadWithServiceDefaults(t *testing.T) {
	cfg, err := LoadWithServiceDefaults("matching-batch")
	require.NoError(t, err)

	assert.Equal(t, "matching-batch", cfg.App.Name)
	assert.Equal(t, "matching-batch", cfg.Tracing.ServiceName)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b "))
}
