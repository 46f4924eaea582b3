// Package migrations embeds the goose migrations of every durable store.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Postgres returns the migrations for the shared Postgres store.
func Postgres() fs.FS { return sub("postgres") }

// SQLite returns the migrations for the local SQLite store.
func SQLite() fs.FS { return sub("sqlite") }

func sub(dir string) fs.FS {
	f, err := fs.Sub(files, dir)
	if err != nil {
		panic(fmt.Sprintf("migrations: %s: %v", dir, err))
	}
	return f
}

// Up applies every pending migration of dialect to db.
func Up(ctx context.Context, dialect goose.Dialect, db *sql.DB) error {
	var src fs.FS
	switch dialect {
	case goose.DialectPostgres:
		src = Postgres()
	case goose.DialectSQLite3:
		src = SQLite()
	default:
		return fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}

	provider, err := goose.NewProvider(dialect, db, src)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
