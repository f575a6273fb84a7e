// Command worker consumes pchem requests from Kafka, runs them on the
// calculators and publishes the results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CTS-Broker/internal/application/worker"
	"github.com/turtacn/CTS-Broker/internal/bootstrap"
	"github.com/turtacn/CTS-Broker/internal/config"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/CTS-Broker/internal/interfaces/http"
	"github.com/turtacn/CTS-Broker/internal/interfaces/http/handlers"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	envFile := flag.String("env-file", "", "dotenv file loaded before the configuration")
	workers := flag.Int("workers", 0, "consumer group members (overrides worker.concurrency)")
	ensureTopics := flag.Bool("ensure-topics", true, "create the request, result and dead letter topics")
	flag.Parse()

	if err := run(*configPath, *envFile, *workers, *ensureTopics); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string, workers int, ensureTopics bool) error {
	var opts []config.LoadOption
	if configPath != "" {
		opts = append(opts, config.WithConfigPath(configPath))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}
	if workers > 0 {
		cfg.Worker.Concurrency = workers
	}

	b, err := bootstrap.New(cfg)
	if err != nil {
		return err
	}
	defer b.Close()
	logger := b.Logger

	logger.Info("starting CTS pchem worker",
		logging.String("version", version),
		logging.Int("concurrency", cfg.Worker.Concurrency),
		logging.String("request_topic", cfg.Kafka.RequestTopic),
		logging.String("result_topic", cfg.Kafka.ResultTopic))

	if ensureTopics {
		if err := provisionTopics(cfg.Kafka, logger); err != nil {
			return err
		}
	}

	producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka), logger)
	if err != nil {
		return err
	}
	defer producer.Close()

	handlerOpts := []worker.Option{worker.WithLogger(logger), worker.WithMetrics(b.Metrics)}
	if b.Sessions != nil {
		handlerOpts = append(handlerOpts, worker.WithSessionNotifier(b.Sessions))
	}
	h := worker.NewHandler(worker.Config{
		ResultTopic: cfg.Kafka.ResultTopic,
		JobTimeout:  cfg.Worker.JobTimeout,
	}, b.Registry, producer, handlerOpts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumers := make([]*kafka.Consumer, 0, cfg.Worker.Concurrency)
	defer func() {
		var processed, deadLettered int64
		for _, c := range consumers {
			_ = c.Close()
			processed += c.Processed()
			deadLettered += c.DeadLettered()
		}
		logger.Info("consumers stopped",
			logging.Int64("processed", processed),
			logging.Int64("dead_lettered", deadLettered))
	}()
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		c, err := kafka.NewConsumer(kafka.ConsumerConfigFrom(cfg.Kafka), logger.With(logging.Int("member", i)),
			kafka.WithDeadLetter(producer))
		if err != nil {
			return err
		}
		if err := c.Subscribe(cfg.Kafka.RequestTopic, h.Handle); err != nil {
			return err
		}
		if err := c.Start(ctx); err != nil {
			return err
		}
		consumers = append(consumers, c)
	}

	var health *httpserver.Server
	if cfg.Worker.HealthPort > 0 {
		health = startHealthServer(cfg, b)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutdown signal received", logging.String("signal", sig.String()))

	// Consumers finish their in-flight message before Close returns.
	cancel()
	if health != nil {
		stopCtx, done := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer done()
		_ = health.Stop(stopCtx)
	}
	return nil
}

func provisionTopics(cfg config.KafkaConfig, logger logging.Logger) error {
	tm, err := kafka.NewTopicManager(cfg.Brokers, logger)
	if err != nil {
		return err
	}
	defer tm.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return tm.EnsureTopics(ctx, kafka.DefaultTopics(cfg))
}

// startHealthServer serves liveness, readiness and metrics for probes.
func startHealthServer(cfg *config.Config, b *bootstrap.Broker) *httpserver.Server {
	var checkers []handlers.HealthChecker
	if b.Redis != nil {
		checkers = append(checkers, handlers.CheckFunc{ComponentName: "redis", Fn: b.Ready})
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	handlers.NewHealthHandler(version, checkers...).RegisterRoutes(engine)
	if b.Collector != nil {
		engine.GET(cfg.Metrics.Path, gin.WrapH(b.Collector.Handler()))
	}

	srv := httpserver.NewServer(config.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Worker.HealthPort,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}, engine, b.Logger)
	go func() {
		if err := srv.Start(); err != nil {
			b.Logger.Error("health server failed", logging.Err(err))
		}
	}()
	return srv
}
