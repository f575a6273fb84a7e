// Command apiserver serves the broker HTTP API and, when enabled, the gRPC
// health endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/turtacn/CTS-Broker/internal/application/worker"
	"github.com/turtacn/CTS-Broker/internal/bootstrap"
	"github.com/turtacn/CTS-Broker/internal/config"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	grpcserver "github.com/turtacn/CTS-Broker/internal/interfaces/grpc"
	httpserver "github.com/turtacn/CTS-Broker/internal/interfaces/http"
	"github.com/turtacn/CTS-Broker/internal/interfaces/http/handlers"
)

var version = "dev"

const submitterSource = "cts-apiserver"

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	envFile := flag.String("env-file", "", "dotenv file loaded before the configuration")
	flag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
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

	b, err := bootstrap.New(cfg)
	if err != nil {
		return err
	}
	defer b.Close()
	logger := b.Logger

	logger.Info("starting CTS broker API server",
		logging.String("version", version),
		logging.Int("http_port", cfg.Server.Port),
		logging.Bool("grpc", cfg.GRPC.Enabled),
		logging.Bool("kafka", cfg.Kafka.Enabled))

	routerCfg := httpserver.RouterConfig{
		Filter:      b.Filter,
		Registry:    b.Registry,
		Version:     version,
		Logger:      logger,
		Metrics:     b.Metrics,
		MetricsPath: cfg.Metrics.Path,
		Mode:        cfg.Server.Mode,
		MaxBodySize: cfg.Server.MaxBodySize,
	}
	if b.Collector != nil {
		routerCfg.MetricsHandler = b.Collector.Handler()
	}
	if b.Redis != nil {
		routerCfg.Checkers = append(routerCfg.Checkers, handlers.CheckFunc{ComponentName: "redis", Fn: b.Ready})
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer, err = kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka), logger)
		if err != nil {
			return err
		}
		defer producer.Close()
		routerCfg.Jobs = worker.NewSubmitter(cfg.Kafka.RequestTopic, submitterSource, producer)
	}

	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)
	errCh := make(chan error, 2)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var grpcSrv *grpcserver.Server
	if cfg.GRPC.Enabled {
		addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.GRPC.Port))
		grpcSrv, err = grpcserver.NewServer(addr,
			grpcserver.WithLogger(logger),
			grpcserver.WithReadiness(b.Ready, 10*time.Second))
		if err != nil {
			return err
		}
		go func() {
			if err := grpcSrv.Start(); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	if configPath != "" {
		watchConfig(configPath, logger)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", logging.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server failed", logging.Err(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if grpcSrv != nil {
		_ = grpcSrv.Stop(ctx)
	}
	if err := srv.Stop(ctx); err != nil {
		logger.Error("HTTP server shutdown error", logging.Err(err))
	}
	logger.Info("servers stopped")
	return nil
}

// watchConfig applies log level changes without a restart. Other settings
// take effect on the next start.
func watchConfig(path string, logger logging.Logger) {
	err := config.Watch(path, func(next *config.Config) {
		if err := logging.SetLevel(logger, next.Log.Level); err != nil {
			logger.Warn("ignoring log level change", logging.Err(err))
			return
		}
		logger.Info("configuration reloaded", logging.String("log_level", next.Log.Level))
	}, func(err error) {
		logger.Warn("configuration reload rejected", logging.Err(err))
	})
	if err != nil {
		logger.Warn("configuration watch disabled", logging.Err(err))
	}
}
