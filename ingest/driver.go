package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"breads/dump"
	"breads/openlibrary"
	"breads/storage"
	"breads/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tr = otel.Tracer("ingest")

// ProgressEvery is how many lines pass between progress log entries.
const ProgressEvery = 10000

type Kind string

const (
	Authors Kind = "authors"
	Works   Kind = "works"
)

type Summary struct {
	RunID uuid.UUID
	Kind  Kind
	Path  string

	Lines   int
	Saved   int
	Skipped int
}

type Option func(d *Driver)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

func WithReporter(reporter Reporter) Option {
	return func(d *Driver) {
		d.reporter = reporter
	}
}

// Driver loads dump files into a store, one line at a time.
type Driver struct {
	store    storage.Store
	logger   *slog.Logger
	reporter Reporter
}

func NewDriver(store storage.Store, opts ...Option) *Driver {
	d := &Driver{
		store:    store,
		logger:   slog.New(slog.DiscardHandler),
		reporter: nopReporter{},
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// skipped marks a line that could not be turned into a record. The run
// carries on past it.
type skipped struct {
	err error
}

func (s *skipped) Error() string { return s.err.Error() }
func (s *skipped) Unwrap() error { return s.err }

// Run reads every line of the dump at path, saving each record it can map
// and skipping the rest. It stops at the first read or store failure.
func (d *Driver) Run(ctx context.Context, kind Kind, path string) (summary Summary, err error) {
	ctx, span := tr.Start(ctx, "run")
	defer span.End()

	summary = Summary{RunID: uuid.New(), Kind: kind, Path: path}
	defer func() { d.reporter.Finished(summary, err) }()

	span.SetAttributes(
		attribute.String("run.id", summary.RunID.String()),
		attribute.String("kind", string(kind)),
		attribute.String("path", path),
	)

	process, err := d.processor(kind)
	if err != nil {
		return summary, tracing.Error(span, err)
	}

	file, err := dump.Open(path)
	if err != nil {
		return summary, tracing.Errorf(span, "opening %s: %w", path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = tracing.Error(span, closeErr)
		}
	}()

	logger := d.logger.With("run", summary.RunID.String(), "kind", string(kind))
	logger.Info("import started", "path", path)

	for line, err := range file.Lines() {
		if err != nil {
			return summary, tracing.Error(span, err)
		}

		if err := ctx.Err(); err != nil {
			return summary, tracing.Error(span, err)
		}

		summary.Lines++

		err = process(ctx, line.Text)

		var skip *skipped
		switch {
		case errors.As(err, &skip):
			summary.Skipped++
			logger.Warn("skipping line", "line", line.Number, "error", skip.err)
			d.reporter.LineProcessed(false, skip.err)

		case err != nil:
			return summary, tracing.Errorf(span, "line %d: %w", line.Number, err)

		default:
			summary.Saved++
			d.reporter.LineProcessed(true, nil)
		}

		if summary.Lines%ProgressEvery == 0 {
			logger.Info("progress", "lines", summary.Lines, "saved", summary.Saved, "skipped", summary.Skipped)
		}
	}

	span.SetAttributes(
		attribute.Int("lines", summary.Lines),
		attribute.Int("saved", summary.Saved),
		attribute.Int("skipped", summary.Skipped),
	)
	logger.Info("import finished", "lines", summary.Lines, "saved", summary.Saved, "skipped", summary.Skipped)

	return summary, nil
}

type processLine = func(ctx context.Context, text string) error

func (d *Driver) processor(kind Kind) (processLine, error) {
	switch kind {
	case Authors:
		return d.processAuthor, nil
	case Works:
		return d.processWork, nil
	}

	return nil, fmt.Errorf("unknown record kind '%s'", kind)
}

func (d *Driver) processAuthor(ctx context.Context, text string) error {
	obj, err := dump.Extract(text)
	if err != nil {
		return &skipped{err}
	}

	author, err := openlibrary.MapAuthor(obj)
	if err != nil {
		return &skipped{err}
	}

	return d.store.SaveAuthor(ctx, author)
}

func (d *Driver) processWork(ctx context.Context, text string) error {
	obj, err := dump.Extract(text)
	if err != nil {
		return &skipped{err}
	}

	book, err := openlibrary.MapWork(ctx, d.store, obj)
	if errors.Is(err, openlibrary.ErrLookup) {
		return err
	}
	if err != nil {
		return &skipped{err}
	}

	return d.store.SaveBook(ctx, book)
}
