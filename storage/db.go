package storage

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"path/filepath"

	"breads/tracing"

	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel/attribute"

	_ "github.com/mattn/go-sqlite3"
)

// Writer opens a sqlite database for the single writer of an import run,
// creating its directory if needed.
func Writer(ctx context.Context, dbPath string) (*sql.DB, error) {
	ctx, span := tr.Start(ctx, "open_writer")
	defer span.End()

	if err := os.MkdirAll(filepath.Dir(dbPath), os.ModePerm); err != nil {
		return nil, tracing.Error(span, err)
	}

	db, err := otelsql.Open("sqlite3", connectionString(dbPath),
		otelsql.WithAttributes(attribute.String("db.system", "sqlite")),
	)
	if err != nil {
		return nil, tracing.Error(span, err)
	}
	db.SetMaxOpenConns(1)

	if err := withPragmas(ctx, db); err != nil {
		db.Close()
		return nil, tracing.Error(span, err)
	}

	return db, nil
}

func CreateTables(ctx context.Context, db *sql.DB) error {
	ctx, span := tr.Start(ctx, "create_tables")
	defer span.End()

	if _, err := db.ExecContext(ctx,
		`create table if not exists authors (
		id text not null primary key,
		name text not null,
		personal_name text not null
	) STRICT`); err != nil {
		return tracing.Error(span, err)
	}

	// list columns hold json arrays, null when the record had no such list
	if _, err := db.ExecContext(ctx,
		`create table if not exists books (
		id text not null primary key,
		name text not null,
		description text,
		published_date text,
		cover_ids text,
		author_ids text,
		author_names text
	) STRICT`); err != nil {
		return tracing.Error(span, err)
	}

	return nil
}

func connectionString(filepath string) string {

	conn := url.Values{}
	conn.Add("_txlock", "immediate")
	conn.Add("_journal_mode", "WAL")
	conn.Add("_busy_timeout", "5000")
	conn.Add("_synchronous", "NORMAL")
	conn.Add("_cache_size", "1000000000")
	conn.Add("_foreign_keys", "true")

	return "file:" + filepath + "?" + conn.Encode()
}

func withPragmas(ctx context.Context, db *sql.DB) error {

	if _, err := db.ExecContext(ctx, `PRAGMA temp_store = memory`); err != nil {
		return err
	}

	return nil
}
