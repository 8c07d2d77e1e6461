package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"

	"taskboard/internal/board"
	"taskboard/internal/config"
	"taskboard/internal/exitcode"
	"taskboard/internal/notify"
	"taskboard/internal/optimistic"
	"taskboard/internal/service"
)

// reportError prints err and returns its exit code. kind and ref name the
// thing being looked up for not found and ambiguous errors.
func reportError(errOut io.Writer, kind, ref string, err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		fmt.Fprintf(errOut, "error: %s not found: %s\n", kind, ref)
		return exitcode.UserError
	case errors.Is(err, service.ErrAmbiguous):
		fmt.Fprintf(errOut, "error: ambiguous %s name: %s\n", kind, ref)
		return exitcode.UserError
	case service.IsValidation(err):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	case errors.Is(err, service.ErrUnsupported):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	return backendError(errOut, err)
}

// backendError prints an error returned by the backing service.
func backendError(errOut io.Writer, err error) int {
	if errors.Is(err, service.ErrUnauthorized) {
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
		return exitcode.AuthError
	}
	fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	return exitcode.BackendError
}

// resolveBoard loads the board named ref, or the first board when ref is empty.
func resolveBoard(ctx context.Context, svc service.Service, ref string) (service.Board, error) {
	if strings.TrimSpace(ref) != "" {
		return service.ResolveBoard(ctx, svc, ref)
	}
	boards, err := svc.ListBoards(ctx)
	if err != nil {
		return service.Board{}, err
	}
	if len(boards) == 0 {
		return service.Board{}, fmt.Errorf("board: %w", service.ErrNotFound)
	}
	return svc.GetBoard(ctx, boards[0].ID)
}

// lookupCard resolves a board argument and a card reference on it.
// On failure the error is printed and a non-zero exit code returned.
func lookupCard(ctx context.Context, svc service.Service, boardRef, cardArg string, errOut io.Writer) (service.Board, service.Card, int) {
	b, err := service.ResolveBoard(ctx, svc, boardRef)
	if err != nil {
		return service.Board{}, service.Card{}, reportError(errOut, "board", boardRef, err)
	}

	ref, err := ParseCardRef(cardArg)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Board{}, service.Card{}, exitcode.UserError
	}
	card, err := ResolveCard(b, ref)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return service.Board{}, service.Card{}, reportError(errOut, "card", ref.String(), err)
		}
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Board{}, service.Card{}, exitcode.UserError
	}
	return b, card, exitcode.Success
}

// resolveUsers maps ids or names to users of the catalogue.
func resolveUsers(ctx context.Context, svc service.Service, refs []string) ([]service.User, error) {
	users := []service.User{}
	if len(refs) == 0 {
		return users, nil
	}
	all, err := svc.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, ref := range refs {
		u, ok := findByRef(all, ref, func(u service.User) (string, string) { return u.ID, u.Name })
		if !ok {
			return nil, fmt.Errorf("assignee %s: %w", ref, service.ErrNotFound)
		}
		users = append(users, u)
	}
	return users, nil
}

// resolveLabels maps ids or names to labels of the catalogue.
func resolveLabels(ctx context.Context, svc service.Service, refs []string) ([]service.Label, error) {
	labels := []service.Label{}
	if len(refs) == 0 {
		return labels, nil
	}
	all, err := svc.ListLabels(ctx)
	if err != nil {
		return nil, err
	}
	for _, ref := range refs {
		l, ok := findByRef(all, ref, func(l service.Label) (string, string) { return l.ID, l.Name })
		if !ok {
			return nil, fmt.Errorf("label %s: %w", ref, service.ErrNotFound)
		}
		labels = append(labels, l)
	}
	return labels, nil
}

func findByRef[T any](items []T, ref string, key func(T) (id, name string)) (T, bool) {
	ref = strings.TrimSpace(ref)
	for _, it := range items {
		if id, _ := key(it); id == ref {
			return it, true
		}
	}
	for _, it := range items {
		if _, name := key(it); strings.EqualFold(strings.TrimSpace(name), ref) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// newExecutor builds an executor over b confirming through svc. Notifications
// go to errOut; success messages are dropped since commands print their own.
func newExecutor(cfg *config.Config, svc service.Service, b service.Board, errOut io.Writer, command string) *optimistic.Executor {
	sink := notify.NewWriterSink(errOut)
	sink.MinSeverity = notify.Error
	ch := optimistic.NewServiceChannel(svc, cfg.Settings.ConfirmTimeout)
	return optimistic.NewExecutor(board.NewStore(b), ch, sink, optimistic.Options{
		ToastDuration: cfg.Settings.ToastDuration,
		Logger:        log.WithField("command", command),
	})
}

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}
