package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/submitto/submitto/internal/app"
	"github.com/submitto/submitto/internal/common"
	"github.com/submitto/submitto/internal/models"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
	manualLogin  = flag.String("login", "", "Open a visible browser for manual provider login (naver or daum), then exit")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Submitto version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Initialize logger
	// 3. Print banner

	if len(configFiles) == 0 {
		if _, err := os.Stat("submitto.toml"); err == nil {
			configFiles = append(configFiles, "submitto.toml")
		} else if _, err := os.Stat("deployments/local/submitto.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/submitto.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		if len(configFiles) == 0 {
			tempLogger.Fatal().Err(err).Msg("Failed to load configuration: no config file found")
		} else {
			tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		}
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("badger_path", config.Storage.Badger.Path).
		Str("log_level", config.Logging.Level).
		Msg("Application configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}

	// Manual login mode: drive one interactive login and exit.
	if *manualLogin != "" {
		runManualLogin(application, logger, *manualLogin)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		application.Stop()
		logger.Fatal().Err(err).Msg("Failed to start application")
		os.Exit(1)
	}

	logger.Info().Msg("Submitto running - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received, shutting down")
	application.Stop()
}

func runManualLogin(application *app.App, logger arbor.ILogger, providerName string) {
	defer application.Stop()

	provider, err := models.ParseProvider(providerName)
	if err != nil {
		logger.Fatal().Err(err).Msg("Unknown provider for manual login")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := application.SessionManager.ManualLogin(ctx, provider); err != nil {
		logger.Fatal().Err(err).Str("provider", providerName).Msg("Manual login failed")
		os.Exit(1)
	}
	logger.Info().Str("provider", providerName).Msg("Manual login succeeded, session persisted")
}
