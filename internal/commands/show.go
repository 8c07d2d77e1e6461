package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskboard/internal/board"
	"taskboard/internal/config"
	"taskboard/internal/exitcode"
	"taskboard/internal/output"
	"taskboard/internal/service"
)

func init() {
	Register(&ShowCmd{})
}

// ShowCmd implements the show command.
type ShowCmd struct {
	labels    multiFlag
	assignees multiFlag
}

// SetFilters sets the label and assignee filters (for testing).
func (c *ShowCmd) SetFilters(labels, assignees []string) {
	c.labels = labels
	c.assignees = assignees
}

func (c *ShowCmd) Name() string      { return "show" }
func (c *ShowCmd) Aliases() []string { return nil }
func (c *ShowCmd) Synopsis() string  { return "Show the columns and cards of a board" }
func (c *ShowCmd) Usage() string {
	return "taskboard show [--label <label>]... [--assignee <user>]... <board>"
}
func (c *ShowCmd) NeedsBackend() bool { return true }

func (c *ShowCmd) RegisterFlags(fs *flag.FlagSet) {
	c.labels, c.assignees = nil, nil
	fs.Var(&c.labels, "label", "")
	fs.Var(&c.assignees, "assignee", "")
}

func (c *ShowCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	boardRef := strings.Join(args, " ")
	b, err := resolveBoard(ctx, svc, boardRef)
	if err != nil {
		return reportError(errOut, "board", boardRef, err)
	}

	labels, err := resolveLabels(ctx, svc, c.labels)
	if err != nil {
		return reportError(errOut, "label", strings.Join(c.labels, ","), err)
	}
	users, err := resolveUsers(ctx, svc, c.assignees)
	if err != nil {
		return reportError(errOut, "assignee", strings.Join(c.assignees, ","), err)
	}

	labelIDs := make([]string, len(labels))
	for i, l := range labels {
		labelIDs[i] = l.ID
	}
	userIDs := make([]string, len(users))
	for i, u := range users {
		userIDs[i] = u.ID
	}

	filtered := board.Filter(b, labelIDs, userIDs)
	output.FormatBoard(out, filtered)

	if len(labelIDs)+len(userIDs) > 0 && !cfg.Quiet {
		fmt.Fprintf(errOut, "filtered: %s\n", output.Plural(countCards(filtered), "card"))
	}
	return exitcode.Success
}

func countCards(b service.Board) int {
	n := 0
	for _, col := range b.Columns {
		n += len(col.Cards)
	}
	return n
}
