package openlibrary

import (
	"context"
	"fmt"
	"time"

	"breads/dump"
	"breads/tracing"

	"github.com/segmentio/encoding/json"
	"go.opentelemetry.io/otel/attribute"
)

// CreatedLayout matches the microsecond timestamps in `created.value`.
const CreatedLayout = "2006-01-02T15:04:05.000000"

// MapWork builds a Book from a work record, looking up each listed author
// so the book carries their names. Authors missing from the store are named
// UnknownAuthor. An author role may give the author as {"key": id} or as the
// bare id string; both resolve the same way. Only an object description is
// read, a plain string leaves Description nil.
func MapWork(ctx context.Context, lookup AuthorLookup, obj dump.Object) (*Book, error) {
	ctx, span := tr.Start(ctx, "map_work")
	defer span.End()

	key, err := obj.String("key")
	if err != nil {
		return nil, tracing.Errorf(span, "%w: %w", ErrMissingKey, err)
	}

	book := &Book{
		ID:          stripKey(key, WorkPrefix),
		Name:        obj.OptString("title"),
		Description: description(obj),
	}
	span.SetAttributes(attribute.String("work.id", book.ID))

	if book.PublishedDate, err = publishedDate(obj); err != nil {
		return nil, tracing.Error(span, err)
	}

	if book.CoverIDs, err = coverIDs(obj); err != nil {
		return nil, tracing.Error(span, err)
	}

	if err := resolveAuthors(ctx, lookup, obj, book); err != nil {
		return nil, tracing.Error(span, err)
	}

	return book, nil
}

func description(obj dump.Object) *string {
	if text, found := obj.OptObject("description"); found {
		value := text.OptString("value")
		return &value
	}

	return nil
}

func publishedDate(obj dump.Object) (*time.Time, error) {
	created, found := obj.OptObject("created")
	if !found {
		return nil, nil
	}

	value, err := created.String("value")
	if err != nil {
		return nil, fmt.Errorf("%w: created: %w", ErrBadDate, err)
	}

	t, err := time.Parse(CreatedLayout, value)
	if err != nil {
		return nil, fmt.Errorf("%w: created: %w", ErrBadDate, err)
	}

	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &date, nil
}

func coverIDs(obj dump.Object) ([]string, error) {
	covers, found := obj.OptArray("covers")
	if !found {
		return nil, nil
	}

	ids := make([]string, 0, len(covers))
	for i, raw := range covers {
		id, ok := dump.Scalar(raw)
		if !ok {
			return nil, fmt.Errorf("%w: covers[%d] is %s", ErrBadField, i, raw)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func resolveAuthors(ctx context.Context, lookup AuthorLookup, obj dump.Object, book *Book) error {
	links, found := obj.OptArray("authors")
	if !found {
		return nil
	}

	book.AuthorIDs = make([]string, 0, len(links))
	book.AuthorNames = make([]string, 0, len(links))

	for i, raw := range links {
		id, err := authorID(raw)
		if err != nil {
			return fmt.Errorf("authors[%d]: %w", i, err)
		}

		author, err := lookup.FindAuthorByID(ctx, id)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrLookup, id, err)
		}

		name := UnknownAuthor
		if author != nil {
			name = author.Name
		}

		book.AuthorIDs = append(book.AuthorIDs, id)
		book.AuthorNames = append(book.AuthorNames, name)
	}

	return nil
}

// authorID reads an author role, which is usually {"author": {"key": id}}
// but in some records is {"author": id}.
func authorID(raw json.RawMessage) (string, error) {
	link, ok := dump.ObjectOf(raw)
	if !ok {
		return "", fmt.Errorf("%w: author link is %s", ErrBadField, raw)
	}

	if author, found := link.OptObject("author"); found {
		key, err := author.String("key")
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrBadField, err)
		}
		return stripKey(key, AuthorPrefix), nil
	}

	key, err := link.String("author")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadField, err)
	}

	return stripKey(key, AuthorPrefix), nil
}
