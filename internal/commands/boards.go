package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskboard/internal/config"
	"taskboard/internal/exitcode"
	"taskboard/internal/output"
	"taskboard/internal/service"
)

func init() {
	Register(&BoardsCmd{})
}

// BoardsCmd implements the boards command.
// Also runs for `taskboard` with no args.
type BoardsCmd struct{}

func (c *BoardsCmd) Name() string       { return "boards" }
func (c *BoardsCmd) Aliases() []string  { return nil }
func (c *BoardsCmd) Synopsis() string   { return "List boards" }
func (c *BoardsCmd) Usage() string      { return "taskboard boards" }
func (c *BoardsCmd) NeedsBackend() bool { return true }

func (c *BoardsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *BoardsCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	boards, err := svc.ListBoards(ctx)
	if err != nil {
		return backendError(errOut, err)
	}

	if len(boards) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no boards found")
		}
		return exitcode.Success
	}

	for _, b := range boards {
		output.FormatBoardLine(out, b)
	}
	return exitcode.Success
}
