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
	Register(&UsersCmd{})
	Register(&LabelsCmd{})
}

// UsersCmd implements the users command.
type UsersCmd struct{}

func (c *UsersCmd) Name() string       { return "users" }
func (c *UsersCmd) Aliases() []string  { return nil }
func (c *UsersCmd) Synopsis() string   { return "List users that can be assigned" }
func (c *UsersCmd) Usage() string      { return "taskboard users" }
func (c *UsersCmd) NeedsBackend() bool { return true }

func (c *UsersCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UsersCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	users, err := svc.ListUsers(ctx)
	if err != nil {
		return backendError(errOut, err)
	}
	if len(users) == 0 && !cfg.Quiet {
		fmt.Fprintln(out, "no users found")
	}
	for _, u := range users {
		output.FormatUser(out, u)
	}
	return exitcode.Success
}

// LabelsCmd implements the labels command.
type LabelsCmd struct{}

func (c *LabelsCmd) Name() string       { return "labels" }
func (c *LabelsCmd) Aliases() []string  { return nil }
func (c *LabelsCmd) Synopsis() string   { return "List labels" }
func (c *LabelsCmd) Usage() string      { return "taskboard labels" }
func (c *LabelsCmd) NeedsBackend() bool { return true }

func (c *LabelsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LabelsCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	labels, err := svc.ListLabels(ctx)
	if err != nil {
		return backendError(errOut, err)
	}
	if len(labels) == 0 && !cfg.Quiet {
		fmt.Fprintln(out, "no labels found")
	}
	for _, l := range labels {
		output.FormatLabel(out, l)
	}
	return exitcode.Success
}
