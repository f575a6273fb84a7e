package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost            = "0.0.0.0"
	DefaultServerPort            = 8080
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 30 * time.Second
	DefaultServerWriteTimeout    = 60 * time.Second
	DefaultServerMaxBodySize     = 1 << 20
	DefaultServerShutdownTimeout = 15 * time.Second

	DefaultGRPCPort = 9090

	DefaultJchemURL             = "http://localhost:8081"
	DefaultEFSURL               = "http://localhost:8082"
	DefaultStandardizerEndpoint = "/efsws/rest/standardizer"
	DefaultDetailEndpoint       = "/webservices/rest-v0/util/detail"
	DefaultJchemTimeout         = 10 * time.Second
	DefaultJchemMaxRetries      = 3
	DefaultJchemRetryBackoff    = 200 * time.Millisecond

	DefaultTestMethod  = "FDAMethod"
	DefaultTestTimeout = 60 * time.Second

	DefaultQSARPath    = "/rest/calc"
	DefaultQSARTimeout = 30 * time.Second

	DefaultRedisAddr     = "localhost:6379"
	DefaultRedisPoolSize = 10

	DefaultCacheLocalTTL        = 10 * time.Minute
	DefaultCacheCleanupInterval = 5 * time.Minute
	DefaultCacheRemoteTTL       = 24 * time.Hour
	DefaultCacheKeyPrefix       = "cts:"

	DefaultKafkaBroker       = "localhost:9092"
	DefaultKafkaGroupID      = "cts-pchem-workers"
	DefaultKafkaRequestTopic = "cts.pchem.requests"
	DefaultKafkaResultTopic  = "cts.pchem.results"
	DefaultKafkaDLQTopic     = "cts.pchem.requests.dlq"
	DefaultKafkaBatchSize    = 100
	DefaultKafkaMaxRetries   = 3

	DefaultWorkerConcurrency = 4
	DefaultWorkerJobTimeout  = 2 * time.Minute

	DefaultMetricsNamespace = "cts"
	DefaultMetricsPath      = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with the broker default.
// Fields already set by the caller are left unchanged. Boolean switches are
// never defaulted here; they are seeded on the viper instance instead.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultServerMaxBodySize
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}

	// ── gRPC ──────────────────────────────────────────────────────────────────
	if cfg.GRPC.Port == 0 {
		cfg.GRPC.Port = DefaultGRPCPort
	}

	// ── Jchem ─────────────────────────────────────────────────────────────────
	if cfg.Jchem.URL == "" {
		cfg.Jchem.URL = DefaultJchemURL
	}
	if cfg.Jchem.EFSURL == "" {
		cfg.Jchem.EFSURL = DefaultEFSURL
	}
	if cfg.Jchem.StandardizerEndpoint == "" {
		cfg.Jchem.StandardizerEndpoint = DefaultStandardizerEndpoint
	}
	if cfg.Jchem.DetailEndpoint == "" {
		cfg.Jchem.DetailEndpoint = DefaultDetailEndpoint
	}
	if cfg.Jchem.Timeout == 0 {
		cfg.Jchem.Timeout = DefaultJchemTimeout
	}
	if cfg.Jchem.MaxRetries == 0 {
		cfg.Jchem.MaxRetries = DefaultJchemMaxRetries
	}
	if cfg.Jchem.RetryBackoff == 0 {
		cfg.Jchem.RetryBackoff = DefaultJchemRetryBackoff
	}

	// ── Calculators ───────────────────────────────────────────────────────────
	if cfg.TestSuite.Method == "" {
		cfg.TestSuite.Method = DefaultTestMethod
	}
	if cfg.TestSuite.Timeout == 0 {
		cfg.TestSuite.Timeout = DefaultTestTimeout
	}
	for _, q := range []*QSARConfig{&cfg.EPI, &cfg.Sparc, &cfg.Measured} {
		if q.Path == "" {
			q.Path = DefaultQSARPath
		}
		if q.Timeout == 0 {
			q.Timeout = DefaultQSARTimeout
		}
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}

	// ── Cache ─────────────────────────────────────────────────────────────────
	if cfg.Cache.LocalTTL == 0 {
		cfg.Cache.LocalTTL = DefaultCacheLocalTTL
	}
	if cfg.Cache.CleanupInterval == 0 {
		cfg.Cache.CleanupInterval = DefaultCacheCleanupInterval
	}
	if cfg.Cache.RemoteTTL == 0 {
		cfg.Cache.RemoteTTL = DefaultCacheRemoteTTL
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = DefaultCacheKeyPrefix
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.RequestTopic == "" {
		cfg.Kafka.RequestTopic = DefaultKafkaRequestTopic
	}
	if cfg.Kafka.ResultTopic == "" {
		cfg.Kafka.ResultTopic = DefaultKafkaResultTopic
	}
	if cfg.Kafka.DLQTopic == "" {
		cfg.Kafka.DLQTopic = DefaultKafkaDLQTopic
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = DefaultKafkaBatchSize
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = DefaultKafkaMaxRetries
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.JobTimeout == 0 {
		cfg.Worker.JobTimeout = DefaultWorkerJobTimeout
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
