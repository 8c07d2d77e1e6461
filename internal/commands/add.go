package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"taskboard/internal/board"
	"taskboard/internal/config"
	"taskboard/internal/exitcode"
	"taskboard/internal/optimistic"
	"taskboard/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	boardName   string
	columnName  string
	description string
	due         string
	assignees   multiFlag
	labels      multiFlag
}

// SetBoard sets the board and column names (for testing).
func (c *AddCmd) SetBoard(boardName, columnName string) {
	c.boardName = boardName
	c.columnName = columnName
}

// SetDetails sets the optional card fields (for testing).
func (c *AddCmd) SetDetails(description, due string, assignees, labels []string) {
	c.description = description
	c.due = due
	c.assignees = assignees
	c.labels = labels
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a card" }
func (c *AddCmd) Usage() string {
	return "taskboard add [--board <board>] [--column <column>] [--description <text>] [--due YYYY-MM-DD] [--assignee <user>]... [--label <label>]... <title...>"
}
func (c *AddCmd) NeedsBackend() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	c.assignees, c.labels = nil, nil
	fs.StringVar(&c.boardName, "board", "", "")
	fs.StringVar(&c.boardName, "b", "", "")
	fs.StringVar(&c.columnName, "column", "", "")
	fs.StringVar(&c.columnName, "c", "", "")
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.due, "due", "", "")
	fs.Var(&c.assignees, "assignee", "")
	fs.Var(&c.labels, "label", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	due, err := parseDue(c.due)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	b, err := resolveBoard(ctx, svc, c.boardName)
	if err != nil {
		return reportError(errOut, "board", c.boardName, err)
	}

	var col service.Column
	switch {
	case c.columnName != "":
		col, err = service.ResolveColumn(b, c.columnName)
		if err != nil {
			return reportError(errOut, "column", c.columnName, err)
		}
	case len(b.Columns) > 0:
		col = b.Columns[0]
	default:
		fmt.Fprintf(errOut, "error: board has no columns: %s\n", b.Name)
		return exitcode.UserError
	}

	draft := board.NewDraft(col.ID)
	draft.Title = title
	draft.Description = c.description
	draft.DueDate = due
	if draft.Assignees, err = resolveUsers(ctx, svc, c.assignees); err != nil {
		return reportError(errOut, "assignee", strings.Join(c.assignees, ","), err)
	}
	if draft.Labels, err = resolveLabels(ctx, svc, c.labels); err != nil {
		return reportError(errOut, "label", strings.Join(c.labels, ","), err)
	}

	return saveCard(ctx, cfg, svc, b, draft, c.Name(), out, errOut)
}

// saveCard submits card through the executor and waits for the verdict.
func saveCard(ctx context.Context, cfg *config.Config, svc service.Service, b service.Board, card service.Card, command string, out, errOut io.Writer) int {
	exec := newExecutor(cfg, svc, b, errOut, command)
	p, err := exec.Save(ctx, card)
	if err != nil {
		return reportError(errOut, "card", card.ID, err)
	}

	outcome, err := p.Wait(ctx)
	switch outcome {
	case optimistic.OutcomeCommitted:
		saved, _ := p.Card()
		if !cfg.Quiet {
			fmt.Fprintf(out, "ok %s\n", saved.ID)
		}
		return exitcode.Success
	case optimistic.OutcomeRejected:
		// The sink already printed the backing service's message.
		if errors.Is(err, service.ErrUnauthorized) {
			return exitcode.AuthError
		}
		return exitcode.BackendError
	default:
		fmt.Fprintln(errOut, "error: cancelled")
		return exitcode.BackendError
	}
}

// parseDue parses a YYYY-MM-DD due date. Empty means none.
func parseDue(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("invalid due date: %s (want YYYY-MM-DD)", s)
	}
	return &d, nil
}
