package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/cdn-tags/internal/application"
	"github.com/eugenenazirov/cdn-tags/internal/config"
	"github.com/eugenenazirov/cdn-tags/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	overrides, err := parseFlags(os.Args[1:])
	kingpin.FatalIfError(err, "parse flags")

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.Environment)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

// parseFlags maps command-line flags onto config overrides. Flags left at
// their defaults do not override YAML or environment values.
func parseFlags(args []string) (*config.CLIOverrides, error) {
	kingpinApp := kingpin.New("cdn-tags", "CDN Tags - serves pages whose script and stylesheet tags point at CDN URLs in selected environments")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").Envar("CDN_TAGS_CONFIG").String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	env := kingpinApp.Flag("env", "Environment the application runs under (overrides APP_ENV)").Short('e').String()
	cdnEnvs := kingpinApp.Flag("cdn-env", "Environment in which CDN URLs replace local paths (repeatable)").Strings()
	raiseOnMissing := kingpinApp.Flag("raise-on-missing", "Fail on unmapped assets: true, false or a comma-separated environment list").String()
	var precompileSet bool
	addToPrecompile := kingpinApp.Flag("add-to-precompile", "Register mapped assets with the precompile manifest").Default("true").IsSetByUser(&precompileSet).Bool()
	rateLimitRPSFlag := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	if _, err := kingpinApp.Parse(args); err != nil {
		return nil, err
	}

	overrides := &config.CLIOverrides{
		ConfigFile:      *configFile,
		CDNEnvironments: *cdnEnvs,
	}

	if *port != "" {
		overrides.Port = port
	}

	if *env != "" {
		overrides.Environment = env
	}

	if *raiseOnMissing != "" {
		overrides.RaiseOnMissing = raiseOnMissing
	}

	if precompileSet {
		overrides.AddToPrecompile = addToPrecompile
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	return overrides, nil
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
