package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskboard/internal/config"
	"taskboard/internal/exitcode"
	"taskboard/internal/optimistic"
	"taskboard/internal/service"
)

func init() {
	Register(&MoveCmd{})
}

// MoveCmd implements the move command.
type MoveCmd struct{}

func (c *MoveCmd) Name() string       { return "move" }
func (c *MoveCmd) Aliases() []string  { return []string{"mv"} }
func (c *MoveCmd) Synopsis() string   { return "Move a card to another column" }
func (c *MoveCmd) Usage() string      { return "taskboard move <board> <card> <column...>" }
func (c *MoveCmd) NeedsBackend() bool { return true }

func (c *MoveCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *MoveCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) < 3 {
		fmt.Fprintln(errOut, "error: board, card and column required")
		return exitcode.UserError
	}

	b, card, code := lookupCard(ctx, svc, args[0], args[1], errOut)
	if code != exitcode.Success {
		return code
	}

	columnRef := strings.Join(args[2:], " ")
	to, err := service.ResolveColumn(b, columnRef)
	if err != nil {
		return reportError(errOut, "column", columnRef, err)
	}

	exec := newExecutor(cfg, svc, b, errOut, c.Name())
	p, err := exec.Move(ctx, card.ID, card.ColumnID, to.ID)
	if err != nil {
		return reportError(errOut, "card", card.ID, err)
	}

	outcome, err := p.Wait(ctx)
	switch outcome {
	case optimistic.OutcomeNoop, optimistic.OutcomeCommitted:
		if !cfg.Quiet {
			fmt.Fprintln(out, "ok")
		}
		return exitcode.Success
	case optimistic.OutcomeRolledBack:
		// The sink already printed the revert notice.
		if errors.Is(err, service.ErrUnauthorized) {
			return exitcode.AuthError
		}
		return exitcode.BackendError
	default:
		fmt.Fprintln(errOut, "error: cancelled")
		return exitcode.BackendError
	}
}
