package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"taskboard/internal/notify"
	"taskboard/internal/service"
)

const (
	defaultWidth   = 100
	minColumnWidth = 18
	columnGap      = 2
	maxComments    = 8
)

var (
	titleStyle         = lipgloss.NewStyle().Bold(true)
	mutedStyle         = lipgloss.NewStyle().Faint(true)
	headerStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")).Background(lipgloss.Color("238"))
	headerFocusedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62"))
	cardSelectedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	successStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	paneStyle          = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

const (
	footerHelp          = "h/l: column  j/k: card  H/L: move  n: new  e: edit  f/F: label filter  c: comments  q: quit"
	commentsFooterHelp  = "a: add comment  c/esc: close comments"
	editorFooterHelp    = "enter: save  esc: cancel"
	editorSavingMessage = "Saving..."
)

// View renders the board.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.view.Name))
	if len(m.labelFilter) > 0 {
		b.WriteString(mutedStyle.Render("  filtered by " + m.filterNames()))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderColumns())
	b.WriteString("\n")

	if m.comments != nil {
		b.WriteString("\n")
		b.WriteString(m.renderComments())
		b.WriteString("\n")
	}

	if m.editor.mode != inputNone {
		b.WriteString("\n")
		b.WriteString(m.editor.input.View())
		switch {
		case m.editor.saving:
			b.WriteString("  " + mutedStyle.Render(editorSavingMessage))
		case m.editor.err != "":
			b.WriteString("  " + errorStyle.Render(m.editor.err))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.toast != nil {
		b.WriteString(renderToast(*m.toast))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(mutedStyle.Render(m.status))
		b.WriteString("\n")
	}

	switch {
	case m.editor.mode != inputNone:
		b.WriteString(mutedStyle.Render(editorFooterHelp))
	case m.comments != nil:
		b.WriteString(mutedStyle.Render(commentsFooterHelp + "  " + footerHelp))
	default:
		b.WriteString(mutedStyle.Render(footerHelp))
	}
	return b.String()
}

func (m *Model) renderColumns() string {
	n := len(m.view.Columns)
	if n == 0 {
		return mutedStyle.Render("This board has no columns.")
	}

	width := m.width
	if width <= 0 {
		width = defaultWidth
	}
	colW := (width - columnGap*(n-1)) / n
	if colW < minColumnWidth {
		colW = minColumnWidth
	}

	cols := make([]string, 0, n*2)
	for i, col := range m.view.Columns {
		if i > 0 {
			cols = append(cols, strings.Repeat(" ", columnGap))
		}
		cols = append(cols, m.renderColumn(i, col, colW))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m *Model) renderColumn(idx int, col service.Column, width int) string {
	header := headerStyle
	if idx == m.col {
		header = headerFocusedStyle
	}
	lines := []string{header.Width(width).Render(truncate(fmt.Sprintf("%s (%d)", col.Title, len(col.Cards)), width))}

	if len(col.Cards) == 0 {
		lines = append(lines, mutedStyle.Width(width).Render("(empty)"))
	}
	for ri, card := range col.Cards {
		text := card.Title
		if m.exec.Moving(card.ID) {
			text = "~ " + text
		}
		line := truncate(text, width)
		if idx == m.col && ri == m.row {
			lines = append(lines, cardSelectedStyle.Width(width).Render(line))
		} else {
			lines = append(lines, lipgloss.NewStyle().Width(width).Render(line))
		}
		if meta := cardMeta(card); meta != "" {
			lines = append(lines, mutedStyle.Width(width).Render(truncate(meta, width)))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderComments() string {
	p := m.comments
	var b strings.Builder
	b.WriteString(titleStyle.Render("Comments: " + p.title))
	b.WriteString("\n")

	comments := p.thread.Comments()
	switch {
	case p.err != "":
		b.WriteString(errorStyle.Render(p.err))
	case len(comments) == 0:
		b.WriteString(mutedStyle.Render("No comments yet."))
	default:
		if len(comments) > maxComments {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("(%d earlier)", len(comments)-maxComments)))
			b.WriteString("\n")
			comments = comments[len(comments)-maxComments:]
		}
		for i, c := range comments {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "%s %s: %s", mutedStyle.Render(c.Timestamp.Local().Format("15:04")), c.User.Name, c.Text)
		}
	}
	return paneStyle.Render(b.String())
}

func (m *Model) filterNames() string {
	names := make([]string, 0, len(m.labelFilter))
	all := m.store.Current()
	for _, id := range m.labelFilter {
		name := id
		for _, col := range all.Columns {
			for _, c := range col.Cards {
				for _, l := range c.Labels {
					if l.ID == id {
						name = l.Name
					}
				}
			}
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func cardMeta(c service.Card) string {
	var parts []string
	for _, l := range c.Labels {
		parts = append(parts, "#"+l.Name)
	}
	for _, u := range c.Assignees {
		parts = append(parts, "@"+u.Name)
	}
	if c.CommentCount > 0 {
		parts = append(parts, fmt.Sprintf("%dc", c.CommentCount))
	}
	return strings.Join(parts, " ")
}

func renderToast(n notify.Notification) string {
	switch n.Severity {
	case notify.Error:
		return errorStyle.Render(n.Message)
	case notify.Success:
		return successStyle.Render(n.Message)
	default:
		return n.Message
	}
}

// truncate shortens s to at most width runes, marking the cut with "…".
func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
