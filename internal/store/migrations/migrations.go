// Package migrations holds the embedded goose migrations for every supported SQL dialect.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// Dialects understood by Up.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// goose keeps its configuration in package globals.
var mu sync.Mutex

// Up applies all pending migrations for the given dialect.
func Up(db *sql.DB, dialect string, logger *zerolog.Logger) error {
	return run(db, dialect, logger, func(dir string) error {
		return goose.Up(db, dir)
	})
}

// Status logs the applied state of every migration for the given dialect.
func Status(db *sql.DB, dialect string, logger *zerolog.Logger) error {
	return run(db, dialect, logger, func(dir string) error {
		return goose.Status(db, dir)
	})
}

func run(db *sql.DB, dialect string, logger *zerolog.Logger, fn func(dir string) error) error {
	gooseDialect, err := gooseDialectFor(dialect)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	goose.SetBaseFS(files)
	defer goose.SetBaseFS(nil)

	goose.SetLogger(gooseLogger{log: logger})
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := fn(dialect); err != nil {
		return fmt.Errorf("migrate %s: %w", dialect, err)
	}
	return nil
}

func gooseDialectFor(dialect string) (string, error) {
	switch dialect {
	case DialectSQLite:
		return "sqlite3", nil
	case DialectPostgres:
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported migration dialect %q", dialect)
	}
}

// gooseLogger forwards goose output to zerolog. Fatal calls are downgraded to
// errors because goose only uses them from its own CLI.
type gooseLogger struct {
	log *zerolog.Logger
}

func (l gooseLogger) logger() *zerolog.Logger {
	if l.log == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return l.log
}

func (l gooseLogger) Fatal(v ...interface{}) { l.logger().Error().Msg(fmt.Sprint(v...)) }

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger().Error().Msgf(format, v...)
}

func (l gooseLogger) Print(v ...interface{}) { l.logger().Debug().Msg(fmt.Sprint(v...)) }

func (l gooseLogger) Println(v ...interface{}) { l.logger().Debug().Msg(fmt.Sprint(v...)) }

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger().Debug().Msgf(format, v...)
}
