package import_openlibrary

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"breads/config"
	"breads/dump"
	"breads/ingest"
	"breads/logging"
	"breads/storage"
	"breads/tracing"

	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

var tr = otel.Tracer("command.import.openlibrary")

// NewImportCommand imports the given kinds of dump in order. Authors need
// to be loaded before works for books to carry their author names.
func NewImportCommand(kinds ...ingest.Kind) *ImportCommand {
	return &ImportCommand{
		kinds: kinds,
		out:   os.Stdout,
	}
}

type ImportCommand struct {
	kinds    []ingest.Kind
	progress bool

	out io.Writer
}

func (c *ImportCommand) Synopsis() string {
	if len(c.kinds) == 1 {
		return fmt.Sprintf("import an openlibrary %s dump", c.kinds[0])
	}
	return "import the openlibrary authors dump, then the works dump"
}

func (c *ImportCommand) Flags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("import.openlibrary", pflag.ContinueOnError)
	flags.BoolVar(&c.progress, "progress", false, "show a progress bar while importing")
	return flags
}

func (c *ImportCommand) Execute(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error {
	ctx, span := tr.Start(ctx, "execute")
	defer span.End()

	if len(c.kinds) != 1 && len(args) != 0 {
		return tracing.Errorf(span, "this command takes no arguments, dump paths come from datadump.location")
	}
	if len(args) > 1 {
		return tracing.Errorf(span, "this command takes at most 1 argument: a path to import")
	}

	paths := make([]string, len(c.kinds))
	for i, kind := range c.kinds {
		path, err := dumpPath(cfg, kind, args)
		if err != nil {
			return tracing.Error(span, err)
		}
		paths[i] = path
	}

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return tracing.Error(span, err)
	}
	defer store.Close()

	for i, kind := range c.kinds {
		summary, err := c.importFile(ctx, cfg, store, logger, kind, paths[i])
		if err != nil {
			return tracing.Error(span, err)
		}

		fmt.Fprintf(c.out, "Imported %s from %s\nLines: %d\nSaved: %d\nSkipped: %d\n",
			kind, summary.Path, summary.Lines, summary.Saved, summary.Skipped)
	}

	return nil
}

func dumpPath(cfg *config.Config, kind ingest.Kind, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	switch kind {
	case ingest.Authors:
		if cfg.Datadump.Location.Author != "" {
			return cfg.Datadump.Location.Author, nil
		}
		return "", fmt.Errorf("no authors dump given, pass a path or set datadump.location.author")

	case ingest.Works:
		if cfg.Datadump.Location.Works != "" {
			return cfg.Datadump.Location.Works, nil
		}
		return "", fmt.Errorf("no works dump given, pass a path or set datadump.location.works")
	}

	return "", fmt.Errorf("unknown record kind '%s'", kind)
}

func (c *ImportCommand) importFile(ctx context.Context, cfg *config.Config, store storage.Store, logger *slog.Logger, kind ingest.Kind, path string) (ingest.Summary, error) {
	ctx, span := tr.Start(ctx, "import_file")
	defer span.End()

	span.SetAttributes(attribute.String("kind", string(kind)), attribute.String("path", path))

	if !c.progress {
		driver := ingest.NewDriver(store, ingest.WithLogger(logger))

		summary, err := driver.Run(ctx, kind, path)
		if err != nil {
			return summary, tracing.Error(span, err)
		}
		return summary, nil
	}

	total, err := dump.CountLines(path)
	if err != nil {
		return ingest.Summary{}, tracing.Error(span, err)
	}

	runLogger, logFile, err := progressLog(cfg.Log, kind)
	if err != nil {
		return ingest.Summary{}, tracing.Error(span, err)
	}
	defer func() {
		logFile.Close()
		logger.Info("import log written", "path", logFile.Name())
	}()

	//add this opt if using the debugger tea.WithInput(nil)
	prg := tea.NewProgram(&model{
		kind:    kind,
		total:   total,
		records: progress.New(progress.WithDefaultGradient()),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	})

	driver := ingest.NewDriver(store,
		ingest.WithLogger(runLogger),
		ingest.WithReporter(&programReporter{send: prg.Send}),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var summary ingest.Summary
	var runErr error
	done := make(chan struct{})

	go func() {
		defer close(done)
		summary, runErr = driver.Run(ctx, kind, path)
	}()

	_, err = prg.Run()

	// the view may quit before the import does
	cancel()
	<-done

	if err != nil {
		return summary, tracing.Error(span, err)
	}
	if runErr != nil {
		return summary, tracing.Error(span, runErr)
	}

	return summary, nil
}

// progressLog gives the driver a log file to write to while the progress
// view owns the terminal.
func progressLog(cfg config.Log, kind ingest.Kind) (*slog.Logger, *os.File, error) {
	f, err := os.CreateTemp("", "breads-import-"+string(kind)+"-*.log")
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(f, cfg)
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, nil, err
	}

	return logger, f, nil
}

type programReporter struct {
	send func(msg tea.Msg)
}

func (r *programReporter) LineProcessed(saved bool, err error) {
	r.send(lineProcessed{saved: saved, err: err})
}

func (r *programReporter) Finished(summary ingest.Summary, err error) {
	r.send(importFinished{summary: summary, err: err})
}
