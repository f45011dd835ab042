package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thebtf/notekeeper/internal/config"
	"github.com/thebtf/notekeeper/internal/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	debug bool
	cfg   *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "notekeeper",
	Short: "Telegram notes and reminders bot",
	Long: `notekeeper keeps tagged notes and one-shot reminders for Telegram users
and sends a message when a reminder comes due.

Settings are read from ~/.notekeeper/settings.json and NOTEKEEPER_* environment
variables. TELEGRAM_BOT_TOKEN and DATABASE_URL are honoured as fallbacks.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.EnsureAll(); err != nil {
			log.Warn().Err(err).Msg("Failed to ensure data directory")
		}

		loaded, err := config.Load()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load config, using defaults")
			loaded = config.Default()
		}
		cfg = loaded

		logging.Setup(logging.Options{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
			Debug:  debug,
		})
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("notekeeper failed")
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}
