package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"nearaccount/config"
	"nearaccount/gateway/middleware"
	"nearaccount/gateway/routes"
	"nearaccount/observability/logging"
	telemetry "nearaccount/observability/otel"
	"nearaccount/rpc"
)

const serviceName = "account-gateway"

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to gateway configuration (.toml or .yaml)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.SetupWithOptions(serviceName, cfg.Network.Name, logging.Options{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
	})

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: serviceName,
		Environment: strings.TrimSpace(os.Getenv("NEAR_ENV")),
		Network:     cfg.Network.Name,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		logger.Error("failed to initialise telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = shutdownTelemetry(context.Background())
	}()

	handler, err := newHandler(cfg, logger)
	if err != nil {
		logger.Error("configure gateway", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              cfg.Gateway.ListenAddress,
		Handler:           handler,
		ReadTimeout:       cfg.Gateway.ReadTimeout.Duration,
		ReadHeaderTimeout: cfg.Gateway.ReadTimeout.Duration,
		WriteTimeout:      cfg.Gateway.WriteTimeout.Duration,
		IdleTimeout:       cfg.Gateway.IdleTimeout.Duration,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", cfg.Gateway.ListenAddress)
	if err != nil {
		logger.Error("listen", "address", cfg.Gateway.ListenAddress, "error", err)
		os.Exit(1)
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("gateway listening",
			slog.String("address", listener.Addr().String()),
			slog.String("endpoint", cfg.Network.RPCURL))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("serve", "error", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
}

// newHandler wires the RPC client, middleware and routes described by cfg.
func newHandler(cfg config.Config, logger *slog.Logger) (http.Handler, error) {
	client, err := rpc.NewClient(cfg.Network.RPCURL,
		rpc.WithTimeout(cfg.Network.Timeout.Duration),
		rpc.WithAPIKey(cfg.Network.APIKey),
		rpc.WithRateLimit(cfg.Network.RequestsPerSecond, cfg.Network.Burst),
		rpc.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("rpc client: %w", err)
	}

	obs := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName: serviceName,
		LogRequests: cfg.Gateway.LogRequests,
	}, logger)

	var auth *middleware.Authenticator
	if cfg.Gateway.Auth.Enabled {
		auth = middleware.NewAuthenticator(middleware.AuthConfig{
			Enabled:    true,
			HMACSecret: cfg.Gateway.Auth.HMACSecret,
			Issuer:     cfg.Gateway.Auth.Issuer,
			Audience:   cfg.Gateway.Auth.Audience,
			ClockSkew:  cfg.Gateway.Auth.ClockSkew.Duration,
		}, logger)
	}

	router, err := routes.New(routes.Config{
		Provider:       client,
		Status:         client,
		Logger:         logger,
		RequestTimeout: cfg.Network.Timeout.Duration,
		Authenticator:  auth,
		RateLimiter: middleware.NewRateLimiter(middleware.RateLimit{
			RequestsPerMinute: cfg.Gateway.RequestsPerMinute,
			Burst:             cfg.Gateway.Burst,
		}),
		Observability: obs,
		CORS:          middleware.CORSConfig{AllowedOrigins: cfg.Gateway.AllowedOrigins},
	})
	if err != nil {
		return nil, err
	}

	handler := http.Handler(router)
	if cfg.Telemetry.Traces {
		handler = otelhttp.NewHandler(router, serviceName)
	}
	return handler, nil
}
