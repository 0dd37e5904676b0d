package ingest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"breads/openlibrary"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	authorsFile = "../dump/test_data/authors.txt"
	worksFile   = "../dump/test_data/works.txt"
)

type memoryStore struct {
	authors map[string]*openlibrary.Author
	books   map[string]*openlibrary.Book
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		authors: map[string]*openlibrary.Author{},
		books:   map[string]*openlibrary.Book{},
	}
}

func (m *memoryStore) SaveAuthor(ctx context.Context, author *openlibrary.Author) error {
	m.authors[author.ID] = author
	return nil
}

func (m *memoryStore) SaveBook(ctx context.Context, book *openlibrary.Book) error {
	m.books[book.ID] = book
	return nil
}

func (m *memoryStore) FindAuthorByID(ctx context.Context, id string) (*openlibrary.Author, error) {
	return m.authors[id], nil
}

func (m *memoryStore) FindBookByID(ctx context.Context, id string) (*openlibrary.Book, error) {
	return m.books[id], nil
}

func (m *memoryStore) Close() error { return nil }

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SaveAuthor(ctx context.Context, author *openlibrary.Author) error {
	return m.Called(ctx, author).Error(0)
}

func (m *mockStore) SaveBook(ctx context.Context, book *openlibrary.Book) error {
	return m.Called(ctx, book).Error(0)
}

func (m *mockStore) FindAuthorByID(ctx context.Context, id string) (*openlibrary.Author, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openlibrary.Author), args.Error(1)
}

func (m *mockStore) FindBookByID(ctx context.Context, id string) (*openlibrary.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openlibrary.Book), args.Error(1)
}

func (m *mockStore) Close() error { return nil }

type recordingReporter struct {
	saved    int
	skipped  []error
	finished bool
	summary  Summary
	err      error
}

func (r *recordingReporter) LineProcessed(saved bool, err error) {
	if saved {
		r.saved++
	} else {
		r.skipped = append(r.skipped, err)
	}
}

func (r *recordingReporter) Finished(summary Summary, err error) {
	r.finished = true
	r.summary = summary
	r.err = err
}

func TestImportingAuthors(t *testing.T) {
	store := newMemoryStore()
	driver := NewDriver(store)

	summary, err := driver.Run(context.Background(), Authors, authorsFile)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Lines)
	assert.Equal(t, 2, summary.Saved)
	assert.Equal(t, 1, summary.Skipped)
	assert.NotEqual(t, uuid.Nil, summary.RunID)

	assert.Equal(t, &openlibrary.Author{ID: "OL1A", Name: "Jane Doe", PersonalName: "Jane Q. Doe"}, store.authors["OL1A"])
	assert.Equal(t, &openlibrary.Author{ID: "OL2A"}, store.authors["OL2A"])
	assert.Len(t, store.authors, 2)
}

func TestImportingWorks(t *testing.T) {

	t.Run("without authors", func(t *testing.T) {
		store := newMemoryStore()
		reporter := &recordingReporter{}
		driver := NewDriver(store, WithReporter(reporter))

		summary, err := driver.Run(context.Background(), Works, worksFile)
		require.NoError(t, err)

		assert.Equal(t, 6, summary.Lines)
		assert.Equal(t, 2, summary.Saved)
		assert.Equal(t, 4, summary.Skipped)

		book := store.books["OL1W"]
		require.NotNil(t, book)
		assert.Equal(t, "The First", book.Name)
		assert.Equal(t, []string{"OL1A"}, book.AuthorIDs)
		assert.Equal(t, []string{openlibrary.UnknownAuthor}, book.AuthorNames)
		assert.Equal(t, []string{"123", "456"}, book.CoverIDs)
		require.NotNil(t, book.PublishedDate)
		assert.Equal(t, "2020-01-02", book.PublishedDate.Format("2006-01-02"))

		assert.Equal(t, 2, reporter.saved)
		assert.Len(t, reporter.skipped, 4)
		assert.True(t, reporter.finished)
		assert.Equal(t, summary, reporter.summary)
		assert.NoError(t, reporter.err)
	})

	t.Run("after authors", func(t *testing.T) {
		store := newMemoryStore()
		driver := NewDriver(store)

		_, err := driver.Run(context.Background(), Authors, authorsFile)
		require.NoError(t, err)

		_, err = driver.Run(context.Background(), Works, worksFile)
		require.NoError(t, err)

		book := store.books["OL5W"]
		require.NotNil(t, book)
		require.NotNil(t, book.Description)
		assert.Equal(t, "A description.", *book.Description)
		assert.Equal(t, []string{"OL1A", "OL404A"}, book.AuthorIDs)
		assert.Equal(t, []string{"Jane Doe", openlibrary.UnknownAuthor}, book.AuthorNames)
		assert.Nil(t, book.CoverIDs)
		assert.Nil(t, book.PublishedDate)
	})

	t.Run("running twice", func(t *testing.T) {
		store := newMemoryStore()
		driver := NewDriver(store)

		_, err := driver.Run(context.Background(), Works, worksFile)
		require.NoError(t, err)
		first := store.books["OL1W"]

		summary, err := driver.Run(context.Background(), Works, worksFile)
		require.NoError(t, err)

		assert.Equal(t, 2, summary.Saved)
		assert.Len(t, store.books, 2)
		assert.Equal(t, first, store.books["OL1W"])
	})
}

func TestSkippedLinesAreLogged(t *testing.T) {
	buffer := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buffer, &slog.HandlerOptions{Level: slog.LevelDebug}))

	driver := NewDriver(newMemoryStore(), WithLogger(logger))
	summary, err := driver.Run(context.Background(), Works, worksFile)
	require.NoError(t, err)

	warnings := 0
	for _, entry := range strings.Split(strings.TrimSpace(buffer.String()), "\n") {
		if strings.Contains(entry, `"level":"WARN"`) {
			warnings++
			assert.Contains(t, entry, `"line":`)
			assert.Contains(t, entry, `"error":`)
			assert.Contains(t, entry, `"run":"`+summary.RunID.String()+`"`)
		}
	}

	assert.Equal(t, 4, warnings)
	assert.Contains(t, buffer.String(), `"line":2`)
	assert.Contains(t, buffer.String(), "import finished")
}

func TestFatalErrors(t *testing.T) {

	t.Run("missing file", func(t *testing.T) {
		reporter := &recordingReporter{}
		driver := NewDriver(newMemoryStore(), WithReporter(reporter))

		summary, err := driver.Run(context.Background(), Works, filepath.Join(t.TempDir(), "nope.txt"))
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Equal(t, 0, summary.Lines)
		assert.True(t, reporter.finished)
		assert.Error(t, reporter.err)
	})

	t.Run("unknown kind", func(t *testing.T) {
		driver := NewDriver(newMemoryStore())

		_, err := driver.Run(context.Background(), Kind("editions"), worksFile)
		assert.ErrorContains(t, err, "unknown record kind")
	})

	t.Run("save failure", func(t *testing.T) {
		store := &mockStore{}
		store.On("FindAuthorByID", mock.Anything, "OL1A").Return(nil, nil)
		store.On("SaveBook", mock.Anything, mock.Anything).Return(errors.New("disk full"))

		summary, err := NewDriver(store).Run(context.Background(), Works, worksFile)
		assert.ErrorContains(t, err, "disk full")
		assert.Equal(t, 1, summary.Lines)
		assert.Equal(t, 0, summary.Saved)
		store.AssertNumberOfCalls(t, "SaveBook", 1)
	})

	t.Run("lookup failure", func(t *testing.T) {
		store := &mockStore{}
		store.On("FindAuthorByID", mock.Anything, "OL1A").Return(nil, errors.New("connection reset"))

		summary, err := NewDriver(store).Run(context.Background(), Works, worksFile)
		assert.ErrorIs(t, err, openlibrary.ErrLookup)
		assert.Equal(t, 1, summary.Lines)
		assert.Equal(t, 0, summary.Skipped)
		store.AssertNotCalled(t, "SaveBook", mock.Anything, mock.Anything)
	})

	t.Run("oversized line", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "works.txt")
		require.NoError(t, os.WriteFile(path, []byte(`{"key":"/works/OL1W"`+strings.Repeat(" ", 64*1024*1024)+"}\n"), 0o644))

		_, err := NewDriver(newMemoryStore()).Run(context.Background(), Works, path)
		assert.Error(t, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewDriver(newMemoryStore()).Run(ctx, Works, worksFile)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
