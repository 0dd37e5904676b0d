package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"breads/openlibrary"
	"breads/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn, securing the connection with the given
// bundle when one is configured. A bundle with an endpoint supplies the
// host when dsn is empty.
func OpenPostgres(ctx context.Context, dsn string, bundlePath string) (*PostgresStore, error) {
	ctx, span := tr.Start(ctx, "open_postgres")
	defer span.End()

	var bundle *Bundle
	if bundlePath != "" {
		b, err := LoadBundle(bundlePath)
		if err != nil {
			return nil, tracing.Error(span, err)
		}
		bundle = b

		if dsn == "" && bundle.Host != "" {
			dsn = "postgres://" + net.JoinHostPort(bundle.Host, strconv.Itoa(bundle.Port)) + "/"
		}
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, tracing.Errorf(span, "parsing dsn: %w", err)
	}

	if bundle != nil {
		cfg.ConnConfig.TLSConfig = bundle.TLS
		cfg.ConnConfig.Fallbacks = nil
	}

	span.SetAttributes(attribute.String("host", cfg.ConnConfig.Host))

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, tracing.Error(span, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, tracing.Error(span, err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.createTables(ctx); err != nil {
		pool.Close()
		return nil, tracing.Error(span, err)
	}

	return store, nil
}

func (s *PostgresStore) createTables(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `
		create table if not exists authors (
			id text primary key,
			name text not null,
			personal_name text not null
		)`); err != nil {
		return fmt.Errorf("creating authors: %w", err)
	}

	if _, err := s.pool.Exec(ctx, `
		create table if not exists books (
			id text primary key,
			name text not null,
			description text,
			published_date date,
			cover_ids text[],
			author_ids text[],
			author_names text[]
		)`); err != nil {
		return fmt.Errorf("creating books: %w", err)
	}

	return nil
}

func (s *PostgresStore) SaveAuthor(ctx context.Context, author *openlibrary.Author) error {
	ctx, span := tr.Start(ctx, "save_author")
	defer span.End()

	span.SetAttributes(attribute.String("author.id", author.ID))

	_, err := s.pool.Exec(ctx, `
		insert into authors (id, name, personal_name) values ($1, $2, $3)
		on conflict (id) do update set
			name = excluded.name,
			personal_name = excluded.personal_name`,
		author.ID, author.Name, author.PersonalName)
	if err != nil {
		return tracing.Errorf(span, "saving author %s: %w", author.ID, err)
	}

	return nil
}

func (s *PostgresStore) SaveBook(ctx context.Context, book *openlibrary.Book) error {
	ctx, span := tr.Start(ctx, "save_book")
	defer span.End()

	span.SetAttributes(attribute.String("book.id", book.ID))

	_, err := s.pool.Exec(ctx, `
		insert into books (id, name, description, published_date, cover_ids, author_ids, author_names)
		values ($1, $2, $3, $4, $5, $6, $7)
		on conflict (id) do update set
			name = excluded.name,
			description = excluded.description,
			published_date = excluded.published_date,
			cover_ids = excluded.cover_ids,
			author_ids = excluded.author_ids,
			author_names = excluded.author_names`,
		book.ID, book.Name, book.Description, book.PublishedDate, book.CoverIDs, book.AuthorIDs, book.AuthorNames)
	if err != nil {
		return tracing.Errorf(span, "saving book %s: %w", book.ID, err)
	}

	return nil
}

func (s *PostgresStore) FindAuthorByID(ctx context.Context, id string) (*openlibrary.Author, error) {
	ctx, span := tr.Start(ctx, "find_author_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("author.id", id))

	author := &openlibrary.Author{}
	err := s.pool.QueryRow(ctx,
		`select id, name, personal_name from authors where id = $1`, id,
	).Scan(&author.ID, &author.Name, &author.PersonalName)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, tracing.Error(span, err)
	}

	return author, nil
}

func (s *PostgresStore) FindBookByID(ctx context.Context, id string) (*openlibrary.Book, error) {
	ctx, span := tr.Start(ctx, "find_book_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("book.id", id))

	book := &openlibrary.Book{}
	err := s.pool.QueryRow(ctx, `
		select id, name, description, published_date, cover_ids, author_ids, author_names
		from books
		where id = $1`, id,
	).Scan(&book.ID, &book.Name, &book.Description, &book.PublishedDate, &book.CoverIDs, &book.AuthorIDs, &book.AuthorNames)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, tracing.Error(span, err)
	}

	return book, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
