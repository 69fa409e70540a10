// Package logger builds the *slog.Logger every cortex component logs through.
//
// Library packages never construct a handler themselves: they take a
// *slog.Logger through their options and default to Nop. Commands pick the
// Format (pretty for terminals, json for files and services).
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// Format selects the slog handler.
type Format string

const (
	FormatPretty Format = "pretty"
	FormatText   Format = "text"
	FormatJSON   Format = "json"
)

// Formats lists the accepted Format values.
var Formats = []Format{FormatPretty, FormatText, FormatJSON}

// ParseFormat maps a flag or config value onto a Format. Empty means
// FormatPretty.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatPretty, nil
	case FormatPretty, FormatText, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown log format %q (available: pretty, text, json)", s)
	}
}

type config struct {
	level   slog.Level
	format  Format
	source  bool
	writers []io.Writer
	attrs   []any
}

// Option configures New.
type Option func(*config)

// WithDebug lowers the level to Debug when true.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = slog.LevelDebug
		} else {
			c.level = slog.LevelInfo
		}
	}
}

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithFormat selects the handler. The default is FormatText.
func WithFormat(f Format) Option {
	return func(c *config) {
		c.format = f
	}
}

// WithWriter sets the destinations. Several writers receive the same bytes.
func WithWriter(w ...io.Writer) Option {
	return func(c *config) {
		c.writers = w
	}
}

// WithSource adds the caller's file:line to records.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}

// WithAttrs binds key/value pairs to every record, like (*slog.Logger).With.
func WithAttrs(args ...any) Option {
	return func(c *config) {
		c.attrs = append(c.attrs, args...)
	}
}

// New builds a *slog.Logger. Without options it writes text records at Info
// level to os.Stderr.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:  slog.LevelInfo,
		format: FormatText,
	}
	for _, opt := range opts {
		opt(c)
	}

	l := slog.New(c.handler())
	if len(c.attrs) > 0 {
		l = l.With(c.attrs...)
	}
	return l
}

func (c *config) handler() slog.Handler {
	var w io.Writer
	switch len(c.writers) {
	case 0:
		w = os.Stderr
	case 1:
		w = c.writers[0]
	default:
		w = io.MultiWriter(c.writers...)
	}

	opts := &slog.HandlerOptions{Level: c.level, AddSource: c.source}

	switch c.format {
	case FormatPretty:
		level := charmlog.InfoLevel
		if c.level <= slog.LevelDebug {
			level = charmlog.DebugLevel
		}
		return charmlog.NewWithOptions(w, charmlog.Options{
			Level:           level,
			ReportTimestamp: true,
			ReportCaller:    c.source,
		})
	case FormatJSON:
		return slog.NewJSONHandler(w, opts)
	default:
		return slog.NewTextHandler(w, opts)
	}
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
