// Package logging configures the logrus logger for the CLI and the interactive board.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// Options selects level and destination.
type Options struct {
	// Level is a logrus level name. Empty means info.
	Level string
	// Debug forces the debug level.
	Debug bool
	// Quiet raises the level to error unless Debug is set.
	Quiet bool
	// Output receives the logs. Defaults to stderr.
	Output io.Writer
}

// Setup configures logger.
func Setup(logger *log.Logger, opts Options) error {
	level := log.InfoLevel
	if opts.Level != "" {
		l, err := log.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		level = l
	}
	switch {
	case opts.Debug:
		level = log.DebugLevel
	case opts.Quiet && level > log.ErrorLevel:
		level = log.ErrorLevel
	}
	logger.SetLevel(level)

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)
	logger.SetFormatter(&log.TextFormatter{DisableColors: out != os.Stderr, FullTimestamp: true})
	return nil
}

// OpenFile opens path for appending, creating its directory.
// Used to keep logs off the screen while the interactive board runs.
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
