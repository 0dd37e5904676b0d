package show

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"breads/config"
	"breads/storage"
	"breads/tracing"

	"github.com/segmentio/encoding/json"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tr = otel.Tracer("command.show")

func NewShowCommand() *ShowCommand {
	return &ShowCommand{out: os.Stdout}
}

type ShowCommand struct {
	out io.Writer
}

func (c *ShowCommand) Synopsis() string {
	return "prints a stored author or book as json"
}

func (c *ShowCommand) Flags() *pflag.FlagSet {
	return pflag.NewFlagSet("show", pflag.ContinueOnError)
}

func (c *ShowCommand) Execute(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error {
	ctx, span := tr.Start(ctx, "execute")
	defer span.End()

	if len(args) != 2 {
		return tracing.Errorf(span, "this command takes exactly 2 arguments: author|book and an id")
	}
	kind, id := args[0], args[1]

	span.SetAttributes(attribute.String("kind", kind), attribute.String("id", id))

	if kind != "author" && kind != "book" {
		return tracing.Errorf(span, "expected 'author' or 'book', received '%s'", kind)
	}

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return tracing.Error(span, err)
	}
	defer store.Close()

	var record any
	switch kind {
	case "author":
		author, err := store.FindAuthorByID(ctx, id)
		if err != nil {
			return tracing.Error(span, err)
		}
		if author == nil {
			return tracing.Errorf(span, "no author with id '%s'", id)
		}
		record = author

	case "book":
		book, err := store.FindBookByID(ctx, id)
		if err != nil {
			return tracing.Error(span, err)
		}
		if book == nil {
			return tracing.Errorf(span, "no book with id '%s'", id)
		}
		record = book
	}

	out, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return tracing.Error(span, err)
	}

	if _, err := fmt.Fprintln(c.out, string(out)); err != nil {
		return tracing.Error(span, err)
	}

	return nil
}
