// ABOUTME: Builds the process logger from level, format and color options, and resolves
// ABOUTME: the option strings accepted on the command line.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

var ErrUnknownFormat = errors.New("unknown log format")

// Options configures a logger.
type Options struct {
	Level  string // any logrus level name; empty means info
	Format string // "text" or "json"; empty means text
	Color  bool   // force colored text output
	Caller bool   // add file/line fields via ContextHook
	Output io.Writer
}

// New builds a logger from opts.
func New(opts Options) (*logrus.Logger, error) {
	logger := logrus.New()
	if err := apply(logger, opts); err != nil {
		return nil, err
	}
	return logger, nil
}

// Configure applies opts to the logrus standard logger.
func Configure(opts Options) error {
	return apply(logrus.StandardLogger(), opts)
}

func apply(logger *logrus.Logger, opts Options) error {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return err
		}
		level = parsed
	}

	var formatter logrus.Formatter
	switch opts.Format {
	case FormatText, "":
		formatter = &logrus.TextFormatter{
			ForceColors:   opts.Color,
			DisableColors: !opts.Color,
			FullTimestamp: true,
		}
	case FormatJSON:
		formatter = &logrus.JSONFormatter{}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	logger.SetLevel(level)
	logger.SetFormatter(formatter)
	logger.SetOutput(out)
	if opts.Caller {
		logger.AddHook(ContextHook{})
	}
	return nil
}
