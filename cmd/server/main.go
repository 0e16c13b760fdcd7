// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/opd-ai/go-orbitsim/pkg/auth"
	"github.com/opd-ai/go-orbitsim/pkg/config"
	"github.com/opd-ai/go-orbitsim/pkg/event"
	"github.com/opd-ai/go-orbitsim/pkg/health"
	"github.com/opd-ai/go-orbitsim/pkg/logging"
	"github.com/opd-ai/go-orbitsim/pkg/metrics"
	"github.com/opd-ai/go-orbitsim/pkg/network"
	"github.com/opd-ai/go-orbitsim/pkg/resource"
	"github.com/opd-ai/go-orbitsim/pkg/session"
)

func main() {
	logger := logging.NewLogger()
	ctx := context.Background()

	configPath := flag.String("config", os.Getenv("ORBITSIM_MISSIONS_FILE"), "Path to mission catalogue (JSON, YAML or TOML)")
	createDefault := flag.Bool("default", false, "Write the stock mission catalogue to -config and exit")
	flag.Parse()

	if *createDefault {
		if *configPath == "" {
			*configPath = "missions.json"
		}
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default catalogue", err, "config_path", *configPath)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default catalogue", "config_path", *configPath)
		return
	}

	env, err := config.LoadConfigFromEnv()
	if err != nil {
		logger.Error(ctx, "Failed to load environment configuration", err)
		os.Exit(1)
	}

	catalogue, err := loadCatalogue(ctx, logger, *configPath)
	if err != nil {
		logger.Error(ctx, "Failed to load mission catalogue", err, "config_path", *configPath)
		os.Exit(1)
	}
	if err := config.ApplyEnvironmentOverrides(catalogue); err != nil {
		logger.Error(ctx, "Failed to apply environment overrides", err)
		os.Exit(1)
	}

	resources := resource.NewResourceManager(env, logger)
	if err := resources.Start(); err != nil {
		logger.Error(ctx, "Failed to start resource manager", err)
		os.Exit(1)
	}

	bus := event.NewEventBus()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		logger.Error(ctx, "Failed to register metrics", err)
		os.Exit(1)
	}
	collector.Subscribe(bus)

	sessions := session.NewManager(catalogue, session.OptionsFromEnv(env), resources, bus, logger)
	if err := collector.TrackSessions(sessions.Count); err != nil {
		logger.Error(ctx, "Failed to register session gauge", err)
		os.Exit(1)
	}

	sender := auth.NewBreakerSender(auth.NewLogSender(logger), env, logger)
	authSvc := auth.NewService(auth.NewMemoryStore(), sender, env.OTPTTL, env.OTPRequestsPerMin, logger)
	authSvc.SetTokenTTL(env.TokenTTL)

	checker := health.NewHealthChecker()
	drain := &health.DrainCheck{}
	checker.AddCheck(drain)
	checker.AddCheck(health.NewSessionHealthCheck(sessions.Count, sessions.Capacity()))
	checker.AddCheck(resource.NewResourceHealthCheck(resources))

	server := network.NewServer(network.Options{
		Addr:         env.HTTPAddr,
		ReadTimeout:  env.ReadTimeout,
		WriteTimeout: env.WriteTimeout,
		Gatherer:     reg,
	}, sessions, authSvc, collector, checker, logger)
	checker.AddCheck(health.NewListenerHealthCheck(server.Addr))

	if err := server.Start(); err != nil {
		logger.Error(ctx, "Failed to start server", err, "address", env.HTTPAddr)
		os.Exit(1)
	}
	logger.Info(ctx, "Mission control ready",
		"address", server.Addr(),
		"missions", len(catalogue.Missions),
		"max_sessions", env.MaxSessions,
		"tick_rate", env.TickRate,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info(ctx, "Shutting down server")
	drain.Drain()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), env.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP server shutdown failed", err)
	}
	if err := sessions.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Session shutdown failed", err)
	}
	authSvc.Close()
	collector.Close()
	if err := resources.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Resource manager shutdown failed", err)
	}
}

// loadCatalogue reads the catalogue file, or falls back to the stock
// missions when no path is given or the file does not exist.
func loadCatalogue(ctx context.Context, logger *logging.Logger, path string) (*config.Config, error) {
	if path == "" {
		logger.Info(ctx, "No mission catalogue configured, using stock missions")
		return config.DefaultConfig(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info(ctx, "Mission catalogue not found, using stock missions", "config_path", path)
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(path)
}
