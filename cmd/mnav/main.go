// ====================================
// File: cmd/mnav/main.go
// ====================================
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/mnav/internal/config"
	"github.com/rovshanmuradov/mnav/internal/engine"
	"github.com/rovshanmuradov/mnav/internal/utils/logger"
	"github.com/rovshanmuradov/mnav/internal/utils/metrics"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	os.Exit(run())
}

func run() int {
	// .env is optional; real environment variables win over it
	envErr := godotenv.Load()

	configPath := os.Getenv("MNAV_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return 1
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.Log.File
	logCfg.Development = cfg.Log.Debug
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	if envErr != nil {
		log.Debug(".env not loaded", zap.Error(envErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runLog := log.WithOperation("mnav")
	runner, err := engine.NewRunner(cfg, runLog.WithComponent("engine"), os.Stdout, metrics.NewCollector())
	if err != nil {
		runLog.LogError("Failed to initialize engine", err)
		return 1
	}

	// an undefined valuation is an expected outcome, not a crash
	if _, err := runner.Run(ctx); err != nil {
		runLog.Warn("mNAV run failed", zap.Error(err))
		return 1
	}
	return 0
}
