package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/roomchat-server/internal/config"
	roomlog "github.com/vovakirdan/roomchat-server/internal/log"
)

type rootOptions struct {
	configPath string
	logLevel   string
	addr       string
	dbDriver   string
	dbURL      string
	broker     string
}

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "roomchat",
		Short:         "Room-based real-time chat server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config.yaml")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.dbDriver, "db-driver", "", "database driver (sqlite, postgres, memory)")
	flags.StringVar(&opts.dbURL, "db-url", "", "database path or connection string")

	root.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address")
	root.Flags().StringVar(&opts.broker, "broker", "", "event broker (memory, redis)")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newHistoryCmd(opts),
		newClientCmd(),
	)
	return root
}

// loadConfig resolves configuration from file, environment and flags, in that order.
func loadConfig(opts *rootOptions) (config.Config, *zerolog.Logger, error) {
	bootstrap := roomlog.New(opts.logLevel)

	cfg, path, err := config.Load(bootstrap, opts.configPath)
	if err != nil {
		return cfg, nil, err
	}

	cfg.UpdateFrom(config.Config{
		Addr:     opts.addr,
		LogLevel: opts.logLevel,
		Database: config.DatabaseConfig{Driver: opts.dbDriver, URL: opts.dbURL},
	})
	if opts.broker != "" {
		cfg.Broker.Driver = opts.broker
	}

	if err := cfg.Validate(); err != nil {
		return cfg, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := roomlog.New(cfg.LogLevel)
	logger.Debug().Str("config", path).Msg("configuration loaded")
	return cfg, logger, nil
}
