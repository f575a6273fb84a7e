package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  host: "127.0.0.1"
  port: 8080
  mode: debug
grpc:
  enabled: true
  port: 9090
log:
  level: debug
  format: console
jchem:
  url: "http://jchem.local:8080"
  efs_url: "http://efs.local:8080"
  timeout: 5s
  max_retries: 2
test:
  url: "http://test.local:8080"
epi:
  url: "http://epi.local:8080"
  path: "/rest/epi/estimated"
redis:
  enabled: true
  addr: "redis.local:6379"
kafka:
  enabled: true
  brokers: ["kafka-1:9092", "kafka-2:9092"]
  group_id: "workers"
cache:
  enabled: false
`

func createTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	path := createTempFile(t, "config.yaml", validConfigYAML)
	cfg, err := Load(WithConfigPath(path))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "http://jchem.local:8080", cfg.Jchem.URL)
	assert.Equal(t, 5*time.Second, cfg.Jchem.Timeout)
	assert.Equal(t, 2, cfg.Jchem.MaxRetries)
	assert.Equal(t, "/rest/epi/estimated", cfg.EPI.Path)
	assert.Equal(t, DefaultQSARPath, cfg.Sparc.Path)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Cache.Enabled)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoad_FromFile_FileNotFound(t *testing.T) {
	_, err := Load(WithConfigPath("non_existent_config.yaml"))
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}

func TestLoad_FromFile_InvalidYAML(t *testing.T) {
	path := createTempFile(t, "config.yaml", "invalid_yaml: [")
	_, err := Load(WithConfigPath(path))
	assert.ErrorIs(t, err, ErrConfigParseError)
}

func TestLoad_FromFile_ValidationFailure(t *testing.T) {
	path := createTempFile(t, "config.yaml", "server:\n  port: 70000\n")
	_, err := Load(WithConfigPath(path))
	assert.ErrorIs(t, err, ErrConfigValidation)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := createTempFile(t, "config.yaml", validConfigYAML)
	t.Setenv("CTS_SERVER_PORT", "9999")
	t.Setenv("CTS_JCHEM_MAX_RETRIES", "5")

	cfg, err := Load(WithConfigPath(path))
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Jchem.MaxRetries)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("CTS_JCHEM_URL", "http://jchem.env:8080")
	t.Setenv("CTS_LOG_FILE_PATH", "/var/log/cts/broker.log")
	t.Setenv("CTS_WORKER_JOB_TIMEOUT", "45s")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "http://jchem.env:8080", cfg.Jchem.URL)
	assert.Equal(t, "/var/log/cts/broker.log", cfg.Log.File.Path)
	assert.Equal(t, 45*time.Second, cfg.Worker.JobTimeout)
	assert.True(t, cfg.Cache.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_LegacyEnvNames(t *testing.T) {
	t.Setenv("CTS_EFS_SERVER", "http://efs.legacy:7777")
	t.Setenv("CTS_TEST_SERVER", "http://test.legacy:7778")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://efs.legacy:7777", cfg.Jchem.EFSURL)
	assert.Equal(t, "http://test.legacy:7778", cfg.TestSuite.URL)
}

func TestLoad_EnvFile(t *testing.T) {
	envPath := createTempFile(t, ".env", "CTS_SPARC_URL=http://sparc.dotenv:8080\n")
	t.Setenv("CTS_SPARC_URL", "")
	require.NoError(t, os.Unsetenv("CTS_SPARC_URL"))

	cfg, err := Load(WithEnvFile(envPath, filepath.Join(t.TempDir(), "missing.env")))
	require.NoError(t, err)
	assert.Equal(t, "http://sparc.dotenv:8080", cfg.Sparc.URL)
}

func TestWatch_InvokesOnChange(t *testing.T) {
	path := createTempFile(t, "config.yaml", validConfigYAML)

	changed := make(chan *Config, 16)
	require.NoError(t, Watch(path, func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	}, nil))

	updated := validConfigYAML + "\nworker:\n  concurrency: 7\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	// A truncate may be observed before the full write lands.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changed:
			if cfg.Worker.Concurrency == 7 {
				return
			}
		case <-deadline:
			t.Fatal("config change was not observed")
		}
	}
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "absent.yaml"), func(*Config) {}, nil)
	assert.ErrorIs(t, err, ErrConfigParseError)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(WithConfigPath("missing.yaml")) })
}
