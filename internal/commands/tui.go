package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"taskboard/internal/config"
	"taskboard/internal/exitcode"
	"taskboard/internal/logging"
	"taskboard/internal/service"
	"taskboard/internal/tui"
)

func init() {
	Register(&TuiCmd{})
}

// TuiCmd implements the tui command: the interactive board.
type TuiCmd struct{}

func (c *TuiCmd) Name() string       { return "tui" }
func (c *TuiCmd) Aliases() []string  { return []string{"ui"} }
func (c *TuiCmd) Synopsis() string   { return "Open the interactive board" }
func (c *TuiCmd) Usage() string      { return "taskboard tui [<board>]" }
func (c *TuiCmd) NeedsBackend() bool { return true }

func (c *TuiCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *TuiCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 1 {
		fmt.Fprintln(errOut, "error: too many arguments")
		return exitcode.UserError
	}
	ref := ""
	if len(args) == 1 {
		ref = args[0]
	}

	b, err := resolveBoard(ctx, svc, ref)
	if err != nil {
		return reportError(errOut, "board", ref, err)
	}

	// The screen belongs to the board while it runs.
	var logOut io.Writer = io.Discard
	if path := cfg.LogPath(); path != "" {
		f, err := logging.OpenFile(path)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		defer f.Close()
		logOut = f
	}
	if err := logging.Setup(log.StandardLogger(), logging.Options{
		Level:  cfg.Settings.Log.Level,
		Debug:  cfg.Debug,
		Output: logOut,
	}); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	defer log.SetOutput(errOut)

	entry := log.WithFields(log.Fields{"command": "tui", "board": b.ID})
	entry.Info("interactive board started")

	err = tui.Run(ctx, svc, b, tui.Options{
		ConfirmTimeout: cfg.Settings.ConfirmTimeout,
		ToastDuration:  cfg.Settings.ToastDuration,
		Logger:         entry,
	})
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
