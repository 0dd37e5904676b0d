package storage

import (
	"context"
	"database/sql"
	"time"

	"breads/openlibrary"

	"github.com/segmentio/encoding/json"
)

const dateLayout = "2006-01-02"

type InsertAction[T any] struct {
	Exec  func(ctx context.Context, data T) error
	Close func(ctx context.Context) error
}

func UpsertAuthor(ctx context.Context, db *sql.DB) (*InsertAction[*openlibrary.Author], error) {

	statement, err := db.PrepareContext(ctx, `
		insert into authors (id, name, personal_name) values (?, ?, ?)
		on conflict (id) do update set
			name = excluded.name,
			personal_name = excluded.personal_name`)
	if err != nil {
		return nil, err
	}

	return &InsertAction[*openlibrary.Author]{
		Exec: func(ctx context.Context, a *openlibrary.Author) error {
			if _, err := statement.ExecContext(ctx, a.ID, a.Name, a.PersonalName); err != nil {
				return err
			}
			return nil
		},
		Close: func(ctx context.Context) error {
			return statement.Close()
		},
	}, nil
}

func UpsertBook(ctx context.Context, db *sql.DB) (*InsertAction[*openlibrary.Book], error) {

	statement, err := db.PrepareContext(ctx, `
		insert into books (id, name, description, published_date, cover_ids, author_ids, author_names)
		values (?, ?, ?, ?, ?, ?, ?)
		on conflict (id) do update set
			name = excluded.name,
			description = excluded.description,
			published_date = excluded.published_date,
			cover_ids = excluded.cover_ids,
			author_ids = excluded.author_ids,
			author_names = excluded.author_names`)
	if err != nil {
		return nil, err
	}

	return &InsertAction[*openlibrary.Book]{
		Exec: func(ctx context.Context, b *openlibrary.Book) error {
			covers, err := jsonList(b.CoverIDs)
			if err != nil {
				return err
			}
			authorIDs, err := jsonList(b.AuthorIDs)
			if err != nil {
				return err
			}
			authorNames, err := jsonList(b.AuthorNames)
			if err != nil {
				return err
			}

			_, err = statement.ExecContext(ctx,
				b.ID,
				b.Name,
				nullString(b.Description),
				nullDate(b.PublishedDate),
				covers,
				authorIDs,
				authorNames,
			)
			return err
		},
		Close: func(ctx context.Context) error {
			return statement.Close()
		},
	}, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(dateLayout), Valid: true}
}

func jsonList(values []string) (sql.NullString, error) {
	if values == nil {
		return sql.NullString{}, nil
	}

	b, err := json.Marshal(values)
	if err != nil {
		return sql.NullString{}, err
	}

	return sql.NullString{String: string(b), Valid: true}, nil
}

func fromNullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func fromNullDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}

	t, err := time.Parse(dateLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func fromJsonList(s sql.NullString) ([]string, error) {
	if !s.Valid {
		return nil, nil
	}

	values := []string{}
	if err := json.Unmarshal([]byte(s.String), &values); err != nil {
		return nil, err
	}
	return values, nil
}
