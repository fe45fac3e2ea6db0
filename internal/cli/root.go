// Package cli provides the command-line interface for the market data hub.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"marketpulse/internal/config"
	"marketpulse/internal/logging"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "marketpulse",
		Short: "Real-time crypto market data hub",
		Long: `MarketPulse keeps crypto market data channels continuously fresh:
spot prices, DeFi protocols, NFT collections, GameFi projects, DAO
tokens, market movers, and the fear & greed index. Channels refresh on
their own cadence, merge live push feeds where available, and fan
updates out to subscribers. Price moves beyond a configurable threshold
and portfolio actions surface as notifications.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				logging.SetDebugLevel()
			}
		},
	}

	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newVersionCmd(),
		newConfigCmd(app),
		newWatchCmd(app),
		newShowCmd(app),
		newStatusCmd(app),
		newNotificationsCmd(app),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := NewOutput(cmd)
			if out.IsJSON() {
				out.JSON(map[string]string{"version": Version})
				return
			}
			out.Printf("marketpulse %s\n", Version)
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)
			return out.JSON(app.Config)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration directory",
		Run: func(cmd *cobra.Command, args []string) {
			NewOutput(cmd).Println(config.DefaultConfigDir())
		},
	})

	return configCmd
}
