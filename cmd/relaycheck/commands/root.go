package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/busybox42/relaycheck/internal/config"
	"github.com/busybox42/relaycheck/internal/logging"
)

var (
	// Global configuration
	configPath string
	cfg        *config.Config
	logger     *slog.Logger

	// Root command
	rootCmd = &cobra.Command{
		Use:   "relaycheck",
		Short: "Mail relay reputation checker",
		Long: `A tool for checking mail relay hosts against DNS-based blocklists.
Relaycheck extracts the originating relay from a message's Received trace
and queries the configured DNSBL zones using the reverse-octet protocol.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}

			var err error
			cfg, err = config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("error loading config: %w", err)
			}

			logger, err = logging.New(cfg.Logging)
			if err != nil {
				return fmt.Errorf("error configuring logging: %w", err)
			}

			return nil
		},
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
}
