package version

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"

	"breads/config"

	"github.com/spf13/pflag"
)

// Version is overridden at build time with -ldflags "-X breads/command/version.Version=..."
var Version = ""

func NewVersionCommand() *VersionCommand {
	return &VersionCommand{out: os.Stdout}
}

type VersionCommand struct {
	out io.Writer
}

func (c *VersionCommand) Synopsis() string {
	return "prints the version"
}

func (c *VersionCommand) Flags() *pflag.FlagSet {
	return pflag.NewFlagSet("version", pflag.ContinueOnError)
}

func (c *VersionCommand) Execute(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error {
	_, err := fmt.Fprintln(c.out, "breads", current())
	return err
}

func current() string {
	if Version != "" {
		return Version
	}

	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}

	return "dev"
}
