package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskboard/internal/config"
	"taskboard/internal/exitcode"
	"taskboard/internal/output"
	"taskboard/internal/service"
)

func init() {
	Register(&CommentsCmd{})
	Register(&CommentCmd{})
}

// CommentsCmd implements the comments command.
type CommentsCmd struct{}

func (c *CommentsCmd) Name() string       { return "comments" }
func (c *CommentsCmd) Aliases() []string  { return nil }
func (c *CommentsCmd) Synopsis() string   { return "Show a card and its comments" }
func (c *CommentsCmd) Usage() string      { return "taskboard comments <board> <card>" }
func (c *CommentsCmd) NeedsBackend() bool { return true }

func (c *CommentsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *CommentsCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintln(errOut, "error: board and card required")
		return exitcode.UserError
	}

	_, card, code := lookupCard(ctx, svc, args[0], args[1], errOut)
	if code != exitcode.Success {
		return code
	}

	comments, err := svc.ListComments(ctx, card.ID)
	if err != nil {
		return backendError(errOut, err)
	}

	output.FormatCardDetail(out, card)
	if len(comments) == 0 && !cfg.Quiet {
		fmt.Fprintln(out, "no comments")
	}
	for _, cm := range comments {
		output.FormatComment(out, cm)
	}
	return exitcode.Success
}

// CommentCmd implements the comment command.
type CommentCmd struct{}

func (c *CommentCmd) Name() string       { return "comment" }
func (c *CommentCmd) Aliases() []string  { return nil }
func (c *CommentCmd) Synopsis() string   { return "Post a comment on a card" }
func (c *CommentCmd) Usage() string      { return "taskboard comment <board> <card> <text...>" }
func (c *CommentCmd) NeedsBackend() bool { return true }

func (c *CommentCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *CommentCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) < 2 {
		fmt.Fprintln(errOut, "error: board and card required")
		return exitcode.UserError
	}

	text := strings.TrimSpace(strings.Join(args[2:], " "))
	if err := service.ValidateCommentText(text); err != nil {
		fmt.Fprintf(errOut, "error: comment %v\n", err)
		return exitcode.UserError
	}

	_, card, code := lookupCard(ctx, svc, args[0], args[1], errOut)
	if code != exitcode.Success {
		return code
	}

	posted, err := svc.PostComment(ctx, card.ID, text)
	if err != nil {
		return reportError(errOut, "card", card.ID, err)
	}

	if !cfg.Quiet {
		output.FormatComment(out, posted)
	}
	return exitcode.Success
}
