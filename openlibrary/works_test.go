package openlibrary

import (
	"context"
	"errors"
	"testing"
	"time"

	"breads/dump"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLookup struct {
	mock.Mock
}

func (m *mockLookup) FindAuthorByID(ctx context.Context, id string) (*Author, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Author), args.Error(1)
}

type authorMap map[string]*Author

func (am authorMap) FindAuthorByID(ctx context.Context, id string) (*Author, error) {
	return am[id], nil
}

func mapLine(t *testing.T, lookup AuthorLookup, line string) (*Book, error) {
	t.Helper()

	obj, err := dump.Extract(line)
	require.NoError(t, err)

	return MapWork(context.Background(), lookup, obj)
}

func TestMappingWorks(t *testing.T) {

	t.Run("unknown author", func(t *testing.T) {
		book, err := mapLine(t, authorMap{}, `junkprefix{"key":"/works/OL1W","title":"T","authors":[{"author":{"key":"/authors/A1"}}]}`)
		require.NoError(t, err)

		assert.Equal(t, &Book{
			ID:          "OL1W",
			Name:        "T",
			AuthorIDs:   []string{"A1"},
			AuthorNames: []string{"Unknown Author"},
		}, book)
	})

	t.Run("known author", func(t *testing.T) {
		lookup := authorMap{"A1": {ID: "A1", Name: "Jane Doe"}}

		book, err := mapLine(t, lookup, `junkprefix{"key":"/works/OL1W","title":"T","authors":[{"author":{"key":"/authors/A1"}}]}`)
		require.NoError(t, err)

		assert.Equal(t, []string{"A1"}, book.AuthorIDs)
		assert.Equal(t, []string{"Jane Doe"}, book.AuthorNames)
	})

	t.Run("author names follow author order", func(t *testing.T) {
		lookup := authorMap{
			"A1": {ID: "A1", Name: "Jane Doe"},
			"A3": {ID: "A3", Name: "John Roe"},
		}

		book, err := mapLine(t, lookup, `{"key":"/works/OL1W","authors":[
			{"author":{"key":"/authors/A3"}},
			{"author":{"key":"/authors/A2"}},
			{"author":{"key":"/authors/A1"}}
		]}`)
		require.NoError(t, err)

		assert.Equal(t, []string{"A3", "A2", "A1"}, book.AuthorIDs)
		assert.Equal(t, []string{"John Roe", "Unknown Author", "Jane Doe"}, book.AuthorNames)
	})

	t.Run("string based author", func(t *testing.T) {
		book, err := mapLine(t, authorMap{}, `{ "key": "/works/normal-author",  "authors": [{"type": {"key": "/type/author_role"}, "author": "/authors/someone"}]}`)
		require.NoError(t, err)

		assert.Equal(t, []string{"someone"}, book.AuthorIDs)
		assert.Equal(t, []string{"Unknown Author"}, book.AuthorNames)
	})

	t.Run("empty authors", func(t *testing.T) {
		book, err := mapLine(t, authorMap{}, `{"key":"/works/OL1W","authors":[]}`)
		require.NoError(t, err)

		assert.NotNil(t, book.AuthorIDs)
		assert.NotNil(t, book.AuthorNames)
		assert.Empty(t, book.AuthorIDs)
		assert.Empty(t, book.AuthorNames)
	})

	t.Run("minimal record", func(t *testing.T) {
		book, err := mapLine(t, authorMap{}, `{"key":"/works/OL1W"}`)
		require.NoError(t, err)

		assert.Equal(t, &Book{ID: "OL1W"}, book)
		assert.Nil(t, book.CoverIDs)
		assert.Nil(t, book.AuthorIDs)
		assert.Nil(t, book.AuthorNames)
		assert.Nil(t, book.Description)
		assert.Nil(t, book.PublishedDate)
	})
}

func TestMappingOptionalFields(t *testing.T) {

	t.Run("created date", func(t *testing.T) {
		book, err := mapLine(t, authorMap{}, `{"key":"/works/OL1W","created":{"type":"/type/datetime","value":"2020-01-02T03:04:05.000000"}}`)
		require.NoError(t, err)

		require.NotNil(t, book.PublishedDate)
		assert.Equal(t, time.Date(2020, time.January, 2, 0, 0, 0, 0, time.UTC), *book.PublishedDate)
	})

	t.Run("created is not an object", func(t *testing.T) {
		book, err := mapLine(t, authorMap{}, `{"key":"/works/OL1W","created":"2020-01-02T03:04:05.000000"}`)
		require.NoError(t, err)
		assert.Nil(t, book.PublishedDate)
	})

	t.Run("bad dates", func(t *testing.T) {
		lines := []string{
			`{"key":"/works/OL1W","created":{"value":"not-a-date"}}`,
			`{"key":"/works/OL1W","created":{"value":"2020-01-02T03:04:05"}}`,
			`{"key":"/works/OL1W","created":{"value":"2020-01-02T03:04:05.123"}}`,
			`{"key":"/works/OL1W","created":{"type":"/type/datetime"}}`,
		}

		for _, line := range lines {
			_, err := mapLine(t, authorMap{}, line)
			assert.ErrorIs(t, err, ErrBadDate, line)
		}
	})

	t.Run("description object", func(t *testing.T) {
		book, err := mapLine(t, authorMap{}, `{"key":"/works/OL1W","description":{"type":"/type/text","value":"Once upon a time"}}`)
		require.NoError(t, err)

		require.NotNil(t, book.Description)
		assert.Equal(t, "Once upon a time", *book.Description)
	})

	t.Run("description without value", func(t *testing.T) {
		book, err := mapLine(t, authorMap{}, `{"key":"/works/OL1W","description":{"type":"/type/text"}}`)
		require.NoError(t, err)

		require.NotNil(t, book.Description)
		assert.Equal(t, "", *book.Description)
	})

	t.Run("description string", func(t *testing.T) {
		book, err := mapLine(t, authorMap{}, `{"key":"/works/OL1W","description":"Plain"}`)
		require.NoError(t, err)

		assert.Nil(t, book.Description)
	})

	t.Run("description array", func(t *testing.T) {
		book, err := mapLine(t, authorMap{}, `{"key":"/works/OL1W","description":["Plain"]}`)
		require.NoError(t, err)

		assert.Nil(t, book.Description)
	})

	t.Run("covers", func(t *testing.T) {
		book, err := mapLine(t, authorMap{}, `{"key":"/works/OL1W","covers":[8739111, -1, "12"]}`)
		require.NoError(t, err)

		assert.Equal(t, []string{"8739111", "-1", "12"}, book.CoverIDs)
	})

	t.Run("empty covers", func(t *testing.T) {
		book, err := mapLine(t, authorMap{}, `{"key":"/works/OL1W","covers":[]}`)
		require.NoError(t, err)

		assert.NotNil(t, book.CoverIDs)
		assert.Empty(t, book.CoverIDs)
	})

	t.Run("bad cover", func(t *testing.T) {
		_, err := mapLine(t, authorMap{}, `{"key":"/works/OL1W","covers":[{"id":1}]}`)
		assert.ErrorIs(t, err, ErrBadField)
	})

	t.Run("title", func(t *testing.T) {
		book, err := mapLine(t, authorMap{}, `{"key":"/works/OL1W","title":null}`)
		require.NoError(t, err)
		assert.Equal(t, "", book.Name)
	})
}

func TestMappingFailures(t *testing.T) {

	t.Run("missing key", func(t *testing.T) {
		_, err := mapLine(t, authorMap{}, `{"title":"No Key"}`)
		assert.ErrorIs(t, err, ErrMissingKey)
	})

	t.Run("author link without key", func(t *testing.T) {
		_, err := mapLine(t, authorMap{}, `{"key":"/works/OL1W","authors":[{"author":{}}]}`)
		assert.ErrorIs(t, err, ErrBadField)
	})

	t.Run("author link is not an object", func(t *testing.T) {
		_, err := mapLine(t, authorMap{}, `{"key":"/works/OL1W","authors":["/authors/A1"]}`)
		assert.ErrorIs(t, err, ErrBadField)
	})

	t.Run("lookup failure", func(t *testing.T) {
		lookup := &mockLookup{}
		lookup.On("FindAuthorByID", mock.Anything, "A1").Return(nil, errors.New("connection reset"))

		_, err := mapLine(t, lookup, `{"key":"/works/OL1W","authors":[{"author":{"key":"/authors/A1"}}]}`)
		assert.ErrorIs(t, err, ErrLookup)
		lookup.AssertExpectations(t)
	})
}

func TestLookupPerAuthor(t *testing.T) {
	lookup := &mockLookup{}
	lookup.On("FindAuthorByID", mock.Anything, "A1").Return(&Author{ID: "A1", Name: "Jane Doe"}, nil).Twice()
	lookup.On("FindAuthorByID", mock.Anything, "A2").Return(nil, nil).Once()

	book, err := mapLine(t, lookup, `{"key":"/works/OL1W","authors":[
		{"author":{"key":"/authors/A1"}},
		{"author":{"key":"/authors/A2"}},
		{"author":{"key":"/authors/A1"}}
	]}`)
	require.NoError(t, err)

	assert.Equal(t, []string{"Jane Doe", "Unknown Author", "Jane Doe"}, book.AuthorNames)
	lookup.AssertExpectations(t)
}
