package storage

import (
	"context"

	"breads/config"
	"breads/openlibrary"
	"breads/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tr = otel.Tracer("storage")

// Store persists mapped records. Saves replace any record already stored
// under the same id, fields the new record lacks included.
type Store interface {
	SaveAuthor(ctx context.Context, author *openlibrary.Author) error
	SaveBook(ctx context.Context, book *openlibrary.Book) error

	// FindAuthorByID returns nil, nil when there is no such author.
	FindAuthorByID(ctx context.Context, id string) (*openlibrary.Author, error)
	// FindBookByID returns nil, nil when there is no such book.
	FindBookByID(ctx context.Context, id string) (*openlibrary.Book, error)

	Close() error
}

func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	ctx, span := tr.Start(ctx, "open_store")
	defer span.End()

	span.SetAttributes(attribute.String("driver", cfg.Store.Driver))

	switch cfg.Store.Driver {
	case "sqlite":
		store, err := OpenSqlite(ctx, cfg.Store.DatabaseFile)
		if err != nil {
			return nil, tracing.Error(span, err)
		}
		return store, nil

	case "postgres":
		store, err := OpenPostgres(ctx, cfg.Store.DSN, cfg.Datastax.Astra.SecureConnectBundle)
		if err != nil {
			return nil, tracing.Error(span, err)
		}
		return store, nil

	case "badger":
		store, err := OpenBadger(cfg.Store.Directory)
		if err != nil {
			return nil, tracing.Error(span, err)
		}
		return store, nil
	}

	return nil, tracing.Errorf(span, "unknown store driver '%s'", cfg.Store.Driver)
}
