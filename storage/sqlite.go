package storage

import (
	"context"
	"database/sql"
	"errors"

	"breads/openlibrary"
	"breads/tracing"

	"go.opentelemetry.io/otel/attribute"
)

type SqliteStore struct {
	db *sql.DB

	authors *InsertAction[*openlibrary.Author]
	books   *InsertAction[*openlibrary.Book]
}

func OpenSqlite(ctx context.Context, dbPath string) (*SqliteStore, error) {
	ctx, span := tr.Start(ctx, "open_sqlite")
	defer span.End()

	span.SetAttributes(attribute.String("path", dbPath))

	db, err := Writer(ctx, dbPath)
	if err != nil {
		return nil, tracing.Error(span, err)
	}

	if err := CreateTables(ctx, db); err != nil {
		db.Close()
		return nil, tracing.Error(span, err)
	}

	authors, err := UpsertAuthor(ctx, db)
	if err != nil {
		db.Close()
		return nil, tracing.Error(span, err)
	}

	books, err := UpsertBook(ctx, db)
	if err != nil {
		authors.Close(ctx)
		db.Close()
		return nil, tracing.Error(span, err)
	}

	return &SqliteStore{db: db, authors: authors, books: books}, nil
}

func (s *SqliteStore) SaveAuthor(ctx context.Context, author *openlibrary.Author) error {
	ctx, span := tr.Start(ctx, "save_author")
	defer span.End()

	span.SetAttributes(attribute.String("author.id", author.ID))

	if err := s.authors.Exec(ctx, author); err != nil {
		return tracing.Errorf(span, "saving author %s: %w", author.ID, err)
	}

	return nil
}

func (s *SqliteStore) SaveBook(ctx context.Context, book *openlibrary.Book) error {
	ctx, span := tr.Start(ctx, "save_book")
	defer span.End()

	span.SetAttributes(attribute.String("book.id", book.ID))

	if err := s.books.Exec(ctx, book); err != nil {
		return tracing.Errorf(span, "saving book %s: %w", book.ID, err)
	}

	return nil
}

func (s *SqliteStore) FindAuthorByID(ctx context.Context, id string) (*openlibrary.Author, error) {
	ctx, span := tr.Start(ctx, "find_author_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("author.id", id))

	author := &openlibrary.Author{}
	err := s.db.QueryRowContext(ctx,
		`select id, name, personal_name from authors where id = ?`, id,
	).Scan(&author.ID, &author.Name, &author.PersonalName)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, tracing.Error(span, err)
	}

	return author, nil
}

func (s *SqliteStore) FindBookByID(ctx context.Context, id string) (*openlibrary.Book, error) {
	ctx, span := tr.Start(ctx, "find_book_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("book.id", id))

	book := &openlibrary.Book{}
	var description, published, covers, authorIDs, authorNames sql.NullString

	err := s.db.QueryRowContext(ctx, `
		select id, name, description, published_date, cover_ids, author_ids, author_names
		from books
		where id = ?`, id,
	).Scan(&book.ID, &book.Name, &description, &published, &covers, &authorIDs, &authorNames)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, tracing.Error(span, err)
	}

	book.Description = fromNullString(description)

	if book.PublishedDate, err = fromNullDate(published); err != nil {
		return nil, tracing.Error(span, err)
	}
	if book.CoverIDs, err = fromJsonList(covers); err != nil {
		return nil, tracing.Error(span, err)
	}
	if book.AuthorIDs, err = fromJsonList(authorIDs); err != nil {
		return nil, tracing.Error(span, err)
	}
	if book.AuthorNames, err = fromJsonList(authorNames); err != nil {
		return nil, tracing.Error(span, err)
	}

	return book, nil
}

func (s *SqliteStore) Close() error {
	ctx := context.Background()

	return errors.Join(
		s.authors.Close(ctx),
		s.books.Close(ctx),
		s.db.Close(),
	)
}
