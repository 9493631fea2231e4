package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"go.elastic.co/ecszerolog"
)

// Options controls how the process logger is built.
type Options struct {
	Level   string
	Format  string // console, json or ecs
	Service string
	Out     io.Writer
}

// New builds the process logger. The returned logger is passed explicitly to
// every component; nothing here touches zerolog's global logger.
func New(opts Options) (zerolog.Logger, error) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("parse log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	var logger zerolog.Logger
	switch opts.Format {
	case "console":
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	case "ecs":
		// ecszerolog renames timestamp/level/message to the ECS field names.
		logger = ecszerolog.New(out)
	case "", "json":
		logger = zerolog.New(out).With().Timestamp().Logger()
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", opts.Format)
	}

	if opts.Service != "" {
		logger = logger.With().Str("service", opts.Service).Logger()
	}
	return logger.Level(level), nil
}
