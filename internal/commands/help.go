package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskboard/internal/config"
	"taskboard/internal/exitcode"
	"taskboard/internal/service"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "taskboard help" }
func (c *HelpCmd) NeedsBackend() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	for _, cmd := range DefaultRegistry.All() {
		name := cmd.Name()
		if aliases := cmd.Aliases(); len(aliases) > 0 {
			name += " (" + strings.Join(aliases, ", ") + ")"
		}
		fmt.Fprintf(out, "  %-18s %s\n", name, cmd.Synopsis())
	}
	return exitcode.Success
}

const helpText = `Usage:
  taskboard                                          List boards
  taskboard boards [common flags]
  taskboard show [common flags] [--label <label>]... [--assignee <user>]... [<board>]
  taskboard move [common flags] <board> <card> <column...>
  taskboard add [common flags] [--board <board>] [--column <column>] [--description <text>]
                [--due YYYY-MM-DD] [--assignee <user>]... [--label <label>]... <title...>
  taskboard edit [common flags] [--title <title>] [--description <text>] [--due YYYY-MM-DD|none]
                 [--assignee <user>|none]... [--label <label>|none]... <board> <card>
  taskboard comments [common flags] <board> <card>
  taskboard comment [common flags] <board> <card> <text...>
  taskboard watch [common flags] <board> <card>
  taskboard tui [common flags] [<board>]
  taskboard users [common flags]
  taskboard labels [common flags]
  taskboard login [common flags]
  taskboard logout [common flags]
  taskboard help
  taskboard version

Boards and columns are named by id or by name (case-insensitive).
Cards are named by id, or by column letter and number as printed by show (e.g. b2).

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
