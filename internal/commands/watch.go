package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"taskboard/internal/board"
	"taskboard/internal/config"
	"taskboard/internal/exitcode"
	"taskboard/internal/output"
	"taskboard/internal/service"
)

func init() {
	Register(&WatchCmd{})
}

// WatchCmd implements the watch command: the comment thread of a card,
// followed by live comments until interrupted.
type WatchCmd struct{}

func (c *WatchCmd) Name() string       { return "watch" }
func (c *WatchCmd) Aliases() []string  { return nil }
func (c *WatchCmd) Synopsis() string   { return "Follow the comments of a card" }
func (c *WatchCmd) Usage() string      { return "taskboard watch <board> <card>" }
func (c *WatchCmd) NeedsBackend() bool { return true }

func (c *WatchCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WatchCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintln(errOut, "error: board and card required")
		return exitcode.UserError
	}

	_, card, code := lookupCard(ctx, svc, args[0], args[1], errOut)
	if code != exitcode.Success {
		return code
	}

	// Subscribe before listing so nothing posted in between is missed.
	// The thread drops what arrives twice.
	stream, err := svc.SubscribeComments(ctx, card.ID)
	if err != nil {
		return backendError(errOut, err)
	}
	initial, err := svc.ListComments(ctx, card.ID)
	if err != nil {
		return backendError(errOut, err)
	}

	thread := board.NewThread(card.ID)
	output.FormatCardDetail(out, card)
	for _, cm := range initial {
		if thread.Append(cm) > 0 {
			output.FormatComment(out, cm)
		}
	}

	logger := log.WithFields(log.Fields{"command": c.Name(), "card": card.ID})
	logger.Debug("watching comments")
	for cm := range stream {
		if thread.Append(cm) > 0 {
			output.FormatComment(out, cm)
		}
	}
	logger.WithField("comments", thread.Len()).Debug("stopped watching")
	return exitcode.Success
}
