package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/config"
	roomlog "github.com/vovakirdan/roomchat-server/internal/log"
	"github.com/vovakirdan/roomchat-server/internal/store"
	"github.com/vovakirdan/roomchat-server/internal/store/memory"
	"github.com/vovakirdan/roomchat-server/internal/store/migrations"
	"github.com/vovakirdan/roomchat-server/internal/store/postgres"
	"github.com/vovakirdan/roomchat-server/internal/store/sqlite"
)

// sqlBacked is implemented by stores living on a database/sql handle.
type sqlBacked interface {
	DB() *sql.DB
}

// OpenStore opens the configured backend and applies pending migrations when
// auto_migrate is set.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, logger *zerolog.Logger) (store.Store, error) {
	st, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := migrate(st, cfg.Driver, logger, false); err != nil {
			st.Close()
			return nil, err
		}
	}

	logger.Info().Str("driver", cfg.Driver).Msg("database initialized")
	return st, nil
}

// Migrate applies pending migrations and prints the migration status.
func Migrate(ctx context.Context, cfg config.DatabaseConfig, logger *zerolog.Logger) error {
	if cfg.Driver == config.DriverMemory {
		return fmt.Errorf("driver %q has no schema to migrate", cfg.Driver)
	}

	st, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	return migrate(st, cfg.Driver, logger, true)
}

func openBackend(ctx context.Context, cfg config.DatabaseConfig, logger *zerolog.Logger) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		st, err := sqlite.New(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return st, nil
	case config.DriverPostgres:
		var opts []postgres.Option
		if cfg.Debug {
			opts = append(opts, postgres.WithQueryLog(roomlog.Writer(logger, "bun")))
		}
		st, err := postgres.Open(ctx, cfg.URL, opts...)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return st, nil
	case config.DriverMemory:
		logger.Warn().Msg("using in-memory store, data is lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func migrate(st store.Store, driver string, logger *zerolog.Logger, withStatus bool) error {
	backed, ok := st.(sqlBacked)
	if !ok {
		return nil
	}

	dialect := migrations.DialectSQLite
	if driver == config.DriverPostgres {
		dialect = migrations.DialectPostgres
	}

	if err := migrations.Up(backed.DB(), dialect, logger); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	if withStatus {
		if err := migrations.Status(backed.DB(), dialect, logger); err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
	}
	return nil
}
