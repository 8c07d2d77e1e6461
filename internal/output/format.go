// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"taskboard/internal/service"
)

const (
	// ColumnSeparator is the separator line for column sections.
	ColumnSeparator = "------------"

	// TimestampLayout formats comment timestamps.
	TimestampLayout = "2006-01-02 15:04"
)

// FormatBoardLine formats a board for the boards command.
// Format: "{ID}  {NAME}\n"
func FormatBoardLine(w io.Writer, b service.Board) {
	fmt.Fprintf(w, "%s  %s\n", b.ID, normalizeTitle(b.Name))
}

// FormatBoard formats a whole board: its name, description and every column.
func FormatBoard(w io.Writer, b service.Board) {
	fmt.Fprintln(w, normalizeTitle(b.Name))
	if d := strings.TrimSpace(b.Description); d != "" {
		fmt.Fprintln(w, oneLine(d))
	}
	for i, col := range b.Columns {
		FormatColumnHeader(w, ColumnLetter(i), col)
		if len(col.Cards) == 0 {
			fmt.Fprintln(w, "   (empty)")
		}
		for j, c := range col.Cards {
			FormatCard(w, j+1, c)
		}
	}
}

// ColumnLetter returns the letter addressing the column at index i,
// or 0 past the 26th column.
func ColumnLetter(i int) rune {
	if i < 0 || i >= 26 {
		return 0
	}
	return 'a' + rune(i)
}

// FormatColumnHeader formats a column section header with its card count.
// Format: "[{LETTER}] {TITLE} ({N})" between separators.
func FormatColumnHeader(w io.Writer, letter rune, col service.Column) {
	fmt.Fprintln(w, ColumnSeparator)
	if letter != 0 {
		fmt.Fprintf(w, "[%c] ", letter)
	}
	fmt.Fprintf(w, "%s (%d)\n", normalizeTitle(col.Title), len(col.Cards))
	fmt.Fprintln(w, ColumnSeparator)
}

// FormatCard formats a card line with its 1-based position in the column.
// Format: "{NUM:4}  {ID}  {TITLE}[  #{LABEL}...][  @{ASSIGNEE}...][  due {DATE}][  {N} comments]\n"
func FormatCard(w io.Writer, num int, c service.Card) {
	parts := []string{c.ID, normalizeTitle(c.Title)}
	if len(c.Labels) > 0 {
		tags := make([]string, len(c.Labels))
		for i, l := range c.Labels {
			tags[i] = "#" + l.Name
		}
		parts = append(parts, strings.Join(tags, " "))
	}
	if len(c.Assignees) > 0 {
		names := make([]string, len(c.Assignees))
		for i, u := range c.Assignees {
			names[i] = "@" + u.Name
		}
		parts = append(parts, strings.Join(names, " "))
	}
	if c.DueDate != nil {
		parts = append(parts, "due "+c.DueDate.Format(time.DateOnly))
	}
	if c.CommentCount > 0 {
		parts = append(parts, Plural(c.CommentCount, "comment"))
	}
	fmt.Fprintf(w, "%4d  %s\n", num, strings.Join(parts, "  "))
}

// FormatCardDetail formats a card as a heading followed by its description.
func FormatCardDetail(w io.Writer, c service.Card) {
	fmt.Fprintf(w, "%s  %s\n", c.ID, normalizeTitle(c.Title))
	if d := strings.TrimSpace(c.Description); d != "" {
		for _, line := range strings.Split(d, "\n") {
			fmt.Fprintf(w, "  %s\n", strings.TrimRight(line, "\r"))
		}
	}
	fmt.Fprintln(w, ColumnSeparator)
}

// FormatComment formats a comment line.
// Format: "[{TIME}] {AUTHOR}: {TEXT}\n"
func FormatComment(w io.Writer, c service.Comment) {
	fmt.Fprintf(w, "[%s] %s: %s\n", c.Timestamp.Local().Format(TimestampLayout), c.User.Name, oneLine(c.Text))
}

// FormatUser formats a user for the users command.
func FormatUser(w io.Writer, u service.User) {
	fmt.Fprintf(w, "%s  %s\n", u.ID, u.Name)
}

// FormatLabel formats a label for the labels command.
func FormatLabel(w io.Writer, l service.Label) {
	if l.Color == "" {
		fmt.Fprintf(w, "%s  %s\n", l.ID, l.Name)
		return
	}
	fmt.Fprintf(w, "%s  %s (%s)\n", l.ID, l.Name, l.Color)
}

// Plural returns "1 comment" or "3 comments".
func Plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// normalizeTitle normalizes a title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = oneLine(title)
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
