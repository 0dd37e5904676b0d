package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"breads/config"

	"github.com/lepinkainen/humanlog"
)

func New(w io.Writer, cfg config.Log) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "human", "":
		handler = humanlog.NewHandler(w, &humanlog.Options{Level: level})
	default:
		return nil, fmt.Errorf("unknown log format '%s'", cfg.Format)
	}

	return slog.New(handler), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}

	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return level, err
	}

	return level, nil
}
