// Package seed holds the demo data the local backends start with.
package seed

import (
	"fmt"
	"time"

	"taskboard/internal/service"
)

// CurrentUser is the author of comments posted from this client.
var CurrentUser = Users()[0]

// Users returns the user catalogue.
func Users() []service.User {
	return []service.User{
		{ID: "user-1", Name: "Alex", AvatarURL: "https://i.pravatar.cc/32?u=user-1"},
		{ID: "user-2", Name: "Brenda", AvatarURL: "https://i.pravatar.cc/32?u=user-2"},
		{ID: "user-3", Name: "Charlie", AvatarURL: "https://i.pravatar.cc/32?u=user-3"},
		{ID: "user-4", Name: "Diana", AvatarURL: "https://i.pravatar.cc/32?u=user-4"},
	}
}

// Labels returns the label catalogue.
func Labels() []service.Label {
	return []service.Label{
		{ID: "label-1", Name: "Bug", Color: "red"},
		{ID: "label-2", Name: "Feature", Color: "blue"},
		{ID: "label-3", Name: "Docs", Color: "green"},
		{ID: "label-4", Name: "Tech Debt", Color: "yellow"},
		{ID: "label-5", Name: "Design", Color: "purple"},
	}
}

func day(s string) *time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return &t
}

// Boards returns the demo boards: "Project Phoenix" and a "Marketing Campaign"
// board with the same layout under its own ids.
func Boards() []service.Board {
	return []service.Board{
		phoenix("board-1", "Project Phoenix", "The main development board for Project Phoenix.", ""),
		phoenix("board-2", "Marketing Campaign", "Launch plan for the autumn campaign.", "mkt-"),
	}
}

func phoenix(id, name, description, prefix string) service.Board {
	u, l := Users(), Labels()
	col := func(n int) string { return fmt.Sprintf("%scol-%d", prefix, n) }
	cardID := func(n int) string { return fmt.Sprintf("%scard-%d", prefix, n) }

	cards := []service.Card{
		{ID: cardID(1), Title: "Implement user authentication", Description: "Set up JWT-based authentication with login and registration pages.",
			ColumnID: col(1), Assignees: []service.User{u[0]}, Labels: []service.Label{l[1], l[3]}, CommentCount: 6},
		{ID: cardID(2), Title: "Design the new dashboard page", Description: "Create mockups and wireframes for the main dashboard.",
			ColumnID: col(1), Assignees: []service.User{u[3]}, Labels: []service.Label{l[4]}, DueDate: day("2024-08-15"), CommentCount: 4},
		{ID: cardID(3), Title: "Refactor database schema", Description: "Optimize database queries and normalize tables.",
			ColumnID: col(1), Assignees: []service.User{u[0]}, Labels: []service.Label{l[3]}, CommentCount: 9},
		{ID: cardID(4), Title: "Fix login button CSS issue on mobile", Description: "The login button is misaligned on screens smaller than 400px.",
			ColumnID: col(2), Assignees: []service.User{u[1]}, Labels: []service.Label{l[0]}, DueDate: day("2024-08-20")},
		{ID: cardID(5), Title: "Setup CI/CD pipeline", Description: "Automate build, test, and deployment processes.",
			ColumnID: col(2), Assignees: []service.User{u[0], u[2]}, Labels: []service.Label{l[1]}, CommentCount: 5},
		{ID: cardID(6), Title: "Write API documentation for /users endpoint", Description: "Use Swagger/OpenAPI to document all user-related endpoints.",
			ColumnID: col(3), Assignees: []service.User{u[3]}, Labels: []service.Label{l[2]}, CommentCount: 4},
		{ID: cardID(7), Title: "User profile page UI complete", Description: "The user profile page is fully implemented and styled.",
			ColumnID: col(4), Assignees: []service.User{u[0]}, Labels: []service.Label{l[1], l[4]}, CommentCount: 8},
	}

	titles := []string{"Backlog", "In Progress", "In Review", "Done"}
	b := service.Board{ID: id, Name: name, Description: description}
	for i, title := range titles {
		c := service.Column{ID: col(i + 1), Title: title, Cards: []service.Card{}}
		for _, card := range cards {
			if card.ColumnID == c.ID {
				c.Cards = append(c.Cards, card)
			}
		}
		b.Columns = append(b.Columns, c)
	}
	return b
}

// Comments returns the opening thread of a card, stamped relative to now.
func Comments(cardID string, now time.Time) []service.Comment {
	u := Users()
	return []service.Comment{
		{ID: cardID + "-comment-1", CardID: cardID, User: u[1], Text: "I'll start working on this tomorrow.", Timestamp: now.Add(-2 * time.Hour)},
		{ID: cardID + "-comment-2", CardID: cardID, User: u[0], Text: "Sounds good, let me know if you need help.", Timestamp: now.Add(-time.Hour)},
	}
}

// LiveCommentText is the text of the synthetic comments streamed by the demo backends.
const LiveCommentText = "This is a new real-time comment!"
