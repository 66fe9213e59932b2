package main

import (
	"github.com/spf13/cobra"

	"github.com/vovakirdan/roomchat-server/internal/app"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and print their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return app.Migrate(cmd.Context(), cfg.Database, logger)
		},
	}
}
