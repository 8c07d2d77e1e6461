// Package commands implements the taskboard subcommands.
package commands

import (
	"context"
	"flag"
	"io"

	"taskboard/internal/config"
	"taskboard/internal/service"
)

// Command is a single taskboard subcommand.
type Command interface {
	Name() string
	Aliases() []string

	// Synopsis is the one-line summary shown by help.
	Synopsis() string
	Usage() string

	// NeedsBackend reports whether the command talks to the board backend.
	// The dispatcher only opens a backend for commands that return true.
	NeedsBackend() bool

	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command with its positional args and returns the
	// process exit code. svc is nil unless NeedsBackend is true.
	Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int
}
