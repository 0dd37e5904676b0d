package storage

import (
	"context"
	"errors"

	"breads/openlibrary"
	"breads/tracing"

	"github.com/dgraph-io/badger/v4"
	"github.com/segmentio/encoding/json"
	"go.opentelemetry.io/otel/attribute"
)

const (
	authorPrefix = "author:"
	bookPrefix   = "book:"
)

type BadgerStore struct {
	db *badger.DB
}

func OpenBadger(dir string) (*BadgerStore, error) {
	return openBadger(badger.DefaultOptions(dir).WithLogger(nil))
}

func openBadger(opts badger.Options) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) SaveAuthor(ctx context.Context, author *openlibrary.Author) error {
	ctx, span := tr.Start(ctx, "save_author")
	defer span.End()

	span.SetAttributes(attribute.String("author.id", author.ID))

	if err := s.put(authorPrefix+author.ID, author); err != nil {
		return tracing.Errorf(span, "saving author %s: %w", author.ID, err)
	}

	return nil
}

func (s *BadgerStore) SaveBook(ctx context.Context, book *openlibrary.Book) error {
	ctx, span := tr.Start(ctx, "save_book")
	defer span.End()

	span.SetAttributes(attribute.String("book.id", book.ID))

	if err := s.put(bookPrefix+book.ID, book); err != nil {
		return tracing.Errorf(span, "saving book %s: %w", book.ID, err)
	}

	return nil
}

func (s *BadgerStore) FindAuthorByID(ctx context.Context, id string) (*openlibrary.Author, error) {
	ctx, span := tr.Start(ctx, "find_author_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("author.id", id))

	author := &openlibrary.Author{}
	if err := s.get(authorPrefix+id, author); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, tracing.Error(span, err)
	}

	return author, nil
}

func (s *BadgerStore) FindBookByID(ctx context.Context, id string) (*openlibrary.Book, error) {
	ctx, span := tr.Start(ctx, "find_book_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("book.id", id))

	book := &openlibrary.Book{}
	if err := s.get(bookPrefix+id, book); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, tracing.Error(span, err)
	}

	return book, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) put(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *BadgerStore) get(key string, value any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}

		return item.Value(func(data []byte) error {
			return json.Unmarshal(data, value)
		})
	})
}
