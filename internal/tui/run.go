package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"taskboard/internal/service"
)

// Run shows b until the user quits or ctx is done. It returns once every
// confirmation still in flight has resolved.
func Run(ctx context.Context, svc service.Service, b service.Board, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := New(ctx, svc, b, opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
