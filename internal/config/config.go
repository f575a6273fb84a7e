// Package config defines all configuration structures for the CTS broker.
// No I/O or parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// GRPCConfig holds the health-check gRPC listener settings.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// JchemConfig holds the structure standardizer and JChem web service
// endpoints used by the filter pipeline and the chemaxon calculator.
type JchemConfig struct {
	// URL is the JChem web services base (mass, tautomers, properties).
	URL string `mapstructure:"url"`
	// EFSURL is the standardizer service base.
	EFSURL               string        `mapstructure:"efs_url"`
	StandardizerEndpoint string        `mapstructure:"standardizer_endpoint"`
	DetailEndpoint       string        `mapstructure:"detail_endpoint"`
	Timeout              time.Duration `mapstructure:"timeout"`
	MaxRetries           int           `mapstructure:"max_retries"`
	RetryBackoff         time.Duration `mapstructure:"retry_backoff"`
}

// TestSuiteConfig holds the TEST (toxicity estimation) service settings.
type TestSuiteConfig struct {
	URL     string        `mapstructure:"url"`
	Method  string        `mapstructure:"method"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// QSARConfig holds one QSAR JSON service (epi, sparc, measured).
type QSARConfig struct {
	URL     string        `mapstructure:"url"`
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// CacheConfig controls the two-tier standardizer cache.
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	LocalTTL        time.Duration `mapstructure:"local_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	RemoteTTL       time.Duration `mapstructure:"remote_ttl"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Apache Kafka producer/consumer parameters.
type KafkaConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Brokers      []string `mapstructure:"brokers"`
	GroupID      string   `mapstructure:"group_id"`
	RequestTopic string   `mapstructure:"request_topic"`
	ResultTopic  string   `mapstructure:"result_topic"`
	DLQTopic     string   `mapstructure:"dlq_topic"`
	BatchSize    int      `mapstructure:"batch_size"`
	MaxRetries   int      `mapstructure:"max_retries"`
}

// WorkerConfig controls the pchem worker.
type WorkerConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	JobTimeout  time.Duration `mapstructure:"job_timeout"`
	// HealthPort serves /healthz, /readyz and metrics; 0 disables it.
	HealthPort  int           `mapstructure:"health_port"`
}

// MetricsConfig controls Prometheus exposition.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root configuration
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	GRPC      GRPCConfig        `mapstructure:"grpc"`
	Log       logging.LogConfig `mapstructure:"log"`
	Jchem     JchemConfig       `mapstructure:"jchem"`
	TestSuite TestSuiteConfig   `mapstructure:"test"`
	EPI       QSARConfig        `mapstructure:"epi"`
	Sparc     QSARConfig        `mapstructure:"sparc"`
	Measured  QSARConfig        `mapstructure:"measured"`
	Redis     RedisConfig       `mapstructure:"redis"`
	Cache     CacheConfig       `mapstructure:"cache"`
	Kafka     KafkaConfig       `mapstructure:"kafka"`
	Worker    WorkerConfig      `mapstructure:"worker"`
	Metrics   MetricsConfig     `mapstructure:"metrics"`
}

// Validate checks that all required fields are populated and that values fall
// within acceptable ranges. It returns the first violation found.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config: nil config")
	}

	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// gRPC
	if c.GRPC.Enabled && (c.GRPC.Port < 1 || c.GRPC.Port > 65535) {
		return fmt.Errorf("config: grpc.port %d is out of range [1, 65535]", c.GRPC.Port)
	}
	if c.GRPC.Enabled && c.GRPC.Port == c.Server.Port {
		return fmt.Errorf("config: grpc.port must differ from server.port")
	}

	// Jchem
	if err := validateURL("jchem.url", c.Jchem.URL); err != nil {
		return err
	}
	if err := validateURL("jchem.efs_url", c.Jchem.EFSURL); err != nil {
		return err
	}
	if c.Jchem.MaxRetries < 0 {
		return fmt.Errorf("config: jchem.max_retries must be ≥ 0, got %d", c.Jchem.MaxRetries)
	}
	if c.Jchem.Timeout <= 0 {
		return fmt.Errorf("config: jchem.timeout must be positive")
	}

	// Calculators
	if c.TestSuite.URL != "" {
		if err := validateURL("test.url", c.TestSuite.URL); err != nil {
			return err
		}
	}
	for name, q := range map[string]QSARConfig{"epi": c.EPI, "sparc": c.Sparc, "measured": c.Measured} {
		if q.URL == "" {
			continue
		}
		if err := validateURL(name+".url", q.URL); err != nil {
			return err
		}
	}

	// Redis
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when redis is enabled")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	// Cache
	if c.Cache.Enabled && c.Cache.LocalTTL <= 0 {
		return fmt.Errorf("config: cache.local_ttl must be positive when cache is enabled")
	}

	// Kafka
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.GroupID == "" {
			return fmt.Errorf("config: kafka.group_id is required")
		}
		if c.Kafka.RequestTopic == "" || c.Kafka.ResultTopic == "" {
			return fmt.Errorf("config: kafka.request_topic and kafka.result_topic are required")
		}
	}

	// Worker
	if c.Worker.HealthPort < 0 || c.Worker.HealthPort > 65535 {
		return fmt.Errorf("config: worker.health_port %d is out of range [0, 65535]", c.Worker.HealthPort)
	}
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be ≥ 1, got %d", c.Worker.Concurrency)
	}

	// Log
	switch c.Log.Level {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

func validateURL(key, raw string) error {
	if raw == "" {
		return fmt.Errorf("config: %s is required", key)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: %s %q is not an absolute URL", key, raw)
	}
	return nil
}
