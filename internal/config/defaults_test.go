package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultServerMode, cfg.Server.Mode)
	assert.Equal(t, DefaultJchemURL, cfg.Jchem.URL)
	assert.Equal(t, DefaultStandardizerEndpoint, cfg.Jchem.StandardizerEndpoint)
	assert.Equal(t, DefaultJchemMaxRetries, cfg.Jchem.MaxRetries)
	assert.Equal(t, DefaultTestMethod, cfg.TestSuite.Method)
	assert.Equal(t, DefaultQSARPath, cfg.EPI.Path)
	assert.Equal(t, DefaultQSARPath, cfg.Measured.Path)
	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Kafka.Brokers)
	assert.Equal(t, DefaultKafkaDLQTopic, cfg.Kafka.DLQTopic)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)

	require.NoError(t, cfg.Validate())
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Jchem.Timeout = 3 * time.Second
	cfg.Sparc.Path = "/sparc/v2"
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Jchem.Timeout)
	assert.Equal(t, "/sparc/v2", cfg.Sparc.Path)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad mode", func(c *Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"grpc port clash", func(c *Config) { c.GRPC.Enabled = true; c.GRPC.Port = c.Server.Port }, "grpc.port"},
		{"relative jchem url", func(c *Config) { c.Jchem.URL = "/webservices" }, "jchem.url"},
		{"negative retries", func(c *Config) { c.Jchem.MaxRetries = -1 }, "jchem.max_retries"},
		{"bad epi url", func(c *Config) { c.EPI.URL = "epi-host" }, "epi.url"},
		{"redis without addr", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }, "redis.addr"},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }, "kafka.brokers"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{}
			ApplyDefaults(cfg)
			tc.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errSub)
		})
	}
}
