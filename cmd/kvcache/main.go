// Package main is the entry point for the kvcache demo.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/kvcache/internal/config"
	"github.com/vyrodovalexey/kvcache/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	fetchURL    string
	reset       bool
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig(flags, logger)
	if err != nil {
		logger.Error("failed to load configuration", observability.Error(err))
		os.Exit(1)
	}
	logger = configuredLogger(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, flags.fetchURL, os.Stdout, logger); err != nil {
		logger.Error("kvcache failed", observability.Error(err))
		stop()
		os.Exit(1)
	}
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("KVCACHE_CONFIG_PATH", ""),
		"Path to configuration file (defaults are used when empty)")
	logLevel := flag.String("log-level", getEnvOrDefault("KVCACHE_LOG_LEVEL", ""),
		"Log level (debug, info, warn, error); overrides the configuration")
	logFormat := flag.String("log-format", getEnvOrDefault("KVCACHE_LOG_FORMAT", ""),
		"Log format (json, console); overrides the configuration")
	fetchURL := flag.String("url", getEnvOrDefault("KVCACHE_FETCH_URL", ""),
		"URL to fetch twice through the page cache")
	reset := flag.Bool("reset", getEnvBool("KVCACHE_RESET", false),
		"Flush the store before running. Destructive")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		fetchURL:    *fetchURL,
		reset:       *reset,
		showVersion: *showVersion,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("kvcache version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the bootstrap logger from flags. The configured
// level applies once the configuration is loaded.
func initLogger(flags cliFlags) observability.Logger {
	logCfg := observability.DefaultLogConfig()
	if flags.logLevel != "" {
		logCfg.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		logCfg.Format = flags.logFormat
	}

	logger, err := observability.NewLogger(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// configuredLogger replaces the bootstrap logger with one built from the
// loaded configuration.
func configuredLogger(cfg *config.Config, bootstrap observability.Logger) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: "stderr",
	})
	if err != nil {
		bootstrap.Warn("keeping bootstrap logger", observability.Error(err))
		return bootstrap
	}
	_ = bootstrap.Sync()
	return logger
}

// loadConfig reads the configuration file, or defaults when none is given,
// and applies flag overrides.
func loadConfig(flags cliFlags, logger observability.Logger) (*config.Config, error) {
	logger.Info("starting kvcache",
		observability.String("version", version),
		observability.String("config", flags.configPath),
	)

	cfg := config.DefaultConfig()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}
	if flags.reset {
		cfg.Reset = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
