package command

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"breads/config"
	"breads/logging"
	"breads/tracing"

	"github.com/hashicorp/cli"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
)

var tr = otel.Tracer("command")

type Command interface {
	Synopsis() string
	Flags() *pflag.FlagSet
	Execute(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error
}

// NewCommand adapts a Command to the cli package, giving every command a
// --config flag plus configured logging and tracing.
func NewCommand(cmd Command) cli.CommandFactory {
	return func() (cli.Command, error) {
		return &wrapper{cmd: cmd, stderr: os.Stderr}, nil
	}
}

type wrapper struct {
	cmd    Command
	stderr io.Writer

	configFile string
}

func (w *wrapper) flags() *pflag.FlagSet {
	flags := w.cmd.Flags()
	flags.StringVar(&w.configFile, "config", "", "path to a config file, defaults to ./breads.yaml when present")
	return flags
}

func (w *wrapper) Help() string {
	sb := strings.Builder{}
	sb.WriteString(w.cmd.Synopsis())
	sb.WriteString("\n\nFlags:\n\n")
	sb.WriteString(w.flags().FlagUsages())

	return sb.String()
}

func (w *wrapper) Synopsis() string {
	return w.cmd.Synopsis()
}

func (w *wrapper) Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := w.run(ctx, args); err != nil {
		fmt.Fprintln(w.stderr, err.Error())
		return 1
	}

	return 0
}

func (w *wrapper) run(ctx context.Context, args []string) error {
	flags := w.flags()
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(w.configFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(w.stderr, cfg.Log)
	if err != nil {
		return err
	}

	shutdown, err := tracing.Configure(ctx, cfg.Tracing.Endpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	ctx, span := tr.Start(ctx, "run")
	defer span.End()

	if err := w.cmd.Execute(ctx, cfg, logger, flags.Args()); err != nil {
		return tracing.Error(span, err)
	}

	return nil
}
