package openlibrary

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
)

var tr = otel.Tracer("openlibrary")

const (
	AuthorPrefix = "/authors/"
	WorkPrefix   = "/works/"

	UnknownAuthor = "Unknown Author"
)

var (
	ErrMissingKey = errors.New("record has no key")
	ErrBadDate    = errors.New("unparseable date")
	ErrBadField   = errors.New("unexpected field value")
	ErrLookup     = errors.New("author lookup failed")
)

type Author struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PersonalName string `json:"personalName"`
}

// Book is a work record with its authors' names copied in at load time.
// Nil fields were absent from the source record; an empty CoverIDs means
// the record listed no covers.
type Book struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   *string    `json:"description"`
	PublishedDate *time.Time `json:"publishedDate"`
	CoverIDs      []string   `json:"coverIds"`

	// AuthorNames[i] is the name of AuthorIDs[i]
	AuthorIDs   []string `json:"authorIds"`
	AuthorNames []string `json:"authorNames"`
}

type AuthorLookup interface {
	// FindAuthorByID returns nil, nil when there is no such author.
	FindAuthorByID(ctx context.Context, id string) (*Author, error)
}

func stripKey(key string, prefix string) string {
	return strings.TrimPrefix(key, prefix)
}
