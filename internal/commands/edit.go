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
	"taskboard/internal/service"
)

// ClearValue clears an optional field when passed to edit, e.g. --due none.
const ClearValue = "none"

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command. Only flags that are given change the card.
type EditCmd struct {
	title       *string
	description *string
	due         *string
	assignees   multiFlag
	labels      multiFlag
}

// SetTitle sets a new title (for testing).
func (c *EditCmd) SetTitle(title string) { c.title = &title }

// SetDescription sets a new description (for testing).
func (c *EditCmd) SetDescription(description string) { c.description = &description }

// SetDue sets a new due date, or ClearValue (for testing).
func (c *EditCmd) SetDue(due string) { c.due = &due }

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Update a card" }
func (c *EditCmd) Usage() string {
	return "taskboard edit [--title <title>] [--description <text>] [--due YYYY-MM-DD|none] [--assignee <user>|none]... [--label <label>|none]... <board> <card>"
}
func (c *EditCmd) NeedsBackend() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.title, c.description, c.due = nil, nil, nil
	c.assignees, c.labels = nil, nil
	fs.Func("title", "", func(s string) error { c.title = &s; return nil })
	fs.Func("description", "", func(s string) error { c.description = &s; return nil })
	fs.Func("due", "", func(s string) error { c.due = &s; return nil })
	fs.Var(&c.assignees, "assignee", "")
	fs.Var(&c.labels, "label", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintln(errOut, "error: board and card required")
		return exitcode.UserError
	}
	if c.title == nil && c.description == nil && c.due == nil && len(c.assignees) == 0 && len(c.labels) == 0 {
		fmt.Fprintln(errOut, "error: nothing to change")
		return exitcode.UserError
	}

	b, card, code := lookupCard(ctx, svc, args[0], args[1], errOut)
	if code != exitcode.Success {
		return code
	}

	edited := board.CloneCard(card)
	if c.title != nil {
		edited.Title = strings.TrimSpace(*c.title)
	}
	if c.description != nil {
		edited.Description = *c.description
	}
	if c.due != nil {
		if strings.EqualFold(strings.TrimSpace(*c.due), ClearValue) {
			edited.DueDate = nil
		} else {
			due, err := parseDue(*c.due)
			if err != nil {
				fmt.Fprintf(errOut, "error: %v\n", err)
				return exitcode.UserError
			}
			edited.DueDate = due
		}
	}

	var err error
	if len(c.assignees) > 0 {
		if edited.Assignees, err = resolveUsers(ctx, svc, withoutClear(c.assignees)); err != nil {
			return reportError(errOut, "assignee", strings.Join(c.assignees, ","), err)
		}
	}
	if len(c.labels) > 0 {
		if edited.Labels, err = resolveLabels(ctx, svc, withoutClear(c.labels)); err != nil {
			return reportError(errOut, "label", strings.Join(c.labels, ","), err)
		}
	}

	return saveCard(ctx, cfg, svc, b, edited, c.Name(), out, errOut)
}

// withoutClear drops ClearValue entries so that "--label none" empties the set.
func withoutClear(refs []string) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if !strings.EqualFold(strings.TrimSpace(r), ClearValue) {
			out = append(out, r)
		}
	}
	return out
}
