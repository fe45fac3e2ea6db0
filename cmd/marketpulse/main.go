package main

import (
	"fmt"
	"os"

	"marketpulse/internal/cli"
	"marketpulse/internal/config"
	"marketpulse/internal/logging"
)

func main() {
	// MARKETPULSE_CONFIG_DIR overrides the default ~/.config/marketpulse.
	cfg, err := config.Load(os.Getenv("MARKETPULSE_CONFIG_DIR"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "marketpulse: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLoggerWithConfig(logging.LogConfig{
		Level:      cfg.Log.Level,
		Console:    cfg.Log.Console,
		File:       cfg.Log.File,
		FilePath:   logging.DefaultLogConfig().FilePath,
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
	})

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "marketpulse: %v\n", err)
		os.Exit(1)
	}
}
