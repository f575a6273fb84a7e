// Package bootstrap assembles the broker object graph from configuration. The
// API server, the worker and the CLI share it.
package bootstrap

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/turtacn/CTS-Broker/internal/application/calculator"
	"github.com/turtacn/CTS-Broker/internal/application/smilesfilter"
	"github.com/turtacn/CTS-Broker/internal/config"
	"github.com/turtacn/CTS-Broker/internal/domain/structure"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/cache"
	redisinfra "github.com/turtacn/CTS-Broker/internal/infrastructure/database/redis"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/httpclient"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/jchem"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/qsar"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/testsuite"
)

// Broker holds the shared components.
type Broker struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.BrokerMetrics

	// Redis and Sessions are nil when redis is disabled.
	Redis    *redisinfra.Client
	Sessions *redisinfra.ResultPublisher

	Filter   smilesfilter.Service
	Registry *calculator.Registry

	closers []func() error
}

// Option configures New.
type Option func(*options)

type options struct {
	logger      logging.Logger
	httpOptions []httpclient.Option
}

// WithLogger uses l instead of building a logger from cfg.Log.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHTTPOptions passes opts to every vendor client.
func WithHTTPOptions(opts ...httpclient.Option) Option {
	return func(o *options) { o.httpOptions = append(o.httpOptions, opts...) }
}

// New wires every component described by cfg. With redis enabled a failed
// connection is an error.
func New(cfg *config.Config, opts ...Option) (*Broker, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	b := &Broker{Config: cfg, Logger: o.logger}
	if b.Logger == nil {
		l, err := logging.NewLogger(cfg.Log)
		if err != nil {
			return nil, err
		}
		b.Logger = l
		b.closers = append(b.closers, func() error { _ = l.Sync(); return nil })
	}

	if err := b.initMetrics(); err != nil {
		return nil, err
	}
	if err := b.initRedis(); err != nil {
		return nil, err
	}

	jc := jchem.NewClient(cfg.Jchem, b.Logger, b.Metrics, o.httpOptions...)
	var standardizer structure.Standardizer = jc
	if cfg.Cache.Enabled {
		standardizer = jchem.NewCachedStandardizer(jc, b.newCache())
	}
	b.Filter = smilesfilter.NewService(standardizer, jc, b.Logger, b.Metrics)

	calcs := []calculator.Calculator{calculator.NewChemaxon(b.Filter, jc, b.Logger)}
	if cfg.TestSuite.URL != "" {
		tc := testsuite.NewClient(cfg.TestSuite, b.Logger, b.Metrics, o.httpOptions...)
		calcs = append(calcs, calculator.NewTEST(b.Filter, tc, standardizer, b.Logger))
	}
	for _, q := range []struct {
		calc structure.Calculator
		cfg  config.QSARConfig
	}{
		{structure.CalculatorEPI, cfg.EPI},
		{structure.CalculatorSparc, cfg.Sparc},
		{structure.CalculatorMeasured, cfg.Measured},
	} {
		if q.cfg.URL == "" {
			continue
		}
		client := qsar.NewClient(q.calc.String(), q.cfg, b.Logger, b.Metrics, o.httpOptions...)
		calcs = append(calcs, calculator.NewQSAR(q.calc, b.Filter, client, b.Logger))
	}
	b.Registry = calculator.NewRegistry(b.Logger, b.Metrics, calcs...)

	names := make([]string, 0, len(calcs))
	for _, c := range calcs {
		names = append(names, c.Name().String())
	}
	b.Logger.Info("broker assembled",
		logging.Strings("calculators", names),
		logging.Bool("cache", cfg.Cache.Enabled),
		logging.Bool("redis", b.Redis != nil))
	return b, nil
}

func (b *Broker) initMetrics() error {
	if !b.Config.Metrics.Enabled {
		b.Metrics = prometheus.NewNopBrokerMetrics()
		return nil
	}
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            b.Config.Metrics.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, b.Logger)
	if err != nil {
		return err
	}
	b.Collector = collector
	b.Metrics = prometheus.NewBrokerMetrics(collector)
	return nil
}

func (b *Broker) initRedis() error {
	if !b.Config.Redis.Enabled {
		return nil
	}
	client, err := redisinfra.NewClient(b.Config.Redis, b.Logger)
	if err != nil {
		return err
	}
	b.Redis = client
	b.Sessions = redisinfra.NewResultPublisher(client, b.Logger)
	b.closers = append(b.closers, client.Close)
	return nil
}

func (b *Broker) newCache() *cache.Tiered {
	cc := b.Config.Cache
	opts := []cache.TieredOption{cache.WithLogger(b.Logger), cache.WithMetrics(b.Metrics)}
	if b.Redis != nil {
		remote := redisinfra.NewStore(b.Redis, b.Logger, redisinfra.WithPrefix(cc.KeyPrefix), redisinfra.WithDefaultTTL(cc.RemoteTTL))
		opts = append(opts, cache.WithRemote(remote, cc.RemoteTTL))
	}
	return cache.NewTiered(cache.NewLocal(cc.LocalTTL, cc.CleanupInterval), cc.LocalTTL, opts...)
}

// Ready pings the dependencies that must be reachable to serve traffic.
func (b *Broker) Ready(ctx context.Context) error {
	if b.Redis == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return b.Redis.Ping(ctx)
}

// Close releases resources in reverse order of acquisition.
func (b *Broker) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return stderrors.Join(errs...)
}
