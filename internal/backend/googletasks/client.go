// Package googletasks implements the service.Service interface using Google Tasks API.
//
// The signed-in account is presented as a single board. Each task list is a
// column and each open task is a card. Google Tasks has no comments, users or
// labels: those reads come back empty and posting a comment is unsupported.
package googletasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"taskboard/internal/config"
	"taskboard/internal/service"
)

const (
	// BoardID is the id of the only board.
	BoardID = "google-tasks"

	// BoardName is the name of the only board.
	BoardName = "Google Tasks"

	// PageSize is the number of tasks per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// Scope is the OAuth scope for Google Tasks.
	Scope = "https://www.googleapis.com/auth/tasks"
)

// Client implements service.Service using Google Tasks API.
type Client struct {
	svc *tasks.Service
}

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	oauthConfig, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}
	token, err := LoadToken(cfg)
	if err != nil {
		return nil, err
	}

	// The token source refreshes the access token as needed.
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, token))

	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client and endpoint (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, endpoint string) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{svc: svc}, nil
}

// ListBoards implements service.Service.
func (c *Client) ListBoards(ctx context.Context) ([]service.Board, error) {
	return []service.Board{{ID: BoardID, Name: BoardName, Description: "Task lists of the signed-in account."}}, nil
}

// GetBoard implements service.Service. Columns follow the API's list order
// and cards the tasks' positions.
func (c *Client) GetBoard(ctx context.Context, id string) (service.Board, error) {
	if id != BoardID {
		return service.Board{}, fmt.Errorf("board %s: %w", id, service.ErrNotFound)
	}
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	b := service.Board{ID: BoardID, Name: BoardName, Description: "Task lists of the signed-in account."}
	err := c.svc.Tasklists.List().MaxResults(100).Pages(ctx, func(resp *tasks.TaskLists) error {
		for _, list := range resp.Items {
			b.Columns = append(b.Columns, service.Column{ID: list.Id, Title: list.Title, Cards: []service.Card{}})
		}
		return nil
	})
	if err != nil {
		return service.Board{}, wrapError(err)
	}

	for i := range b.Columns {
		col := &b.Columns[i]
		err := c.svc.Tasks.List(col.ID).
			MaxResults(PageSize).
			ShowCompleted(false).
			ShowDeleted(false).
			ShowHidden(false).
			Pages(ctx, func(resp *tasks.Tasks) error {
				for _, t := range resp.Items {
					col.Cards = append(col.Cards, toCard(t, col.ID))
				}
				return nil
			})
		if err != nil {
			return service.Board{}, wrapError(err)
		}
	}
	return b, nil
}

// MoveCard implements service.Service.
func (c *Client) MoveCard(ctx context.Context, cardID, toColumnID, fromColumnID string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	_, err := c.svc.Tasks.Move(fromColumnID, cardID).DestinationTasklist(toColumnID).Context(ctx).Do()
	return wrapError(err)
}

// CreateCard implements service.Service. Assignees and labels are dropped.
func (c *Client) CreateCard(ctx context.Context, draft service.Card) (service.Card, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	t, err := c.svc.Tasks.Insert(draft.ColumnID, fromCard(draft)).Context(ctx).Do()
	if err != nil {
		return service.Card{}, wrapError(err)
	}
	return toCard(t, draft.ColumnID), nil
}

// UpdateCard implements service.Service.
func (c *Client) UpdateCard(ctx context.Context, card service.Card) (service.Card, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	patch := fromCard(card)
	patch.ForceSendFields = []string{"Notes"}
	if card.DueDate == nil {
		patch.NullFields = []string{"Due"}
	}
	t, err := c.svc.Tasks.Patch(card.ColumnID, card.ID, patch).Context(ctx).Do()
	if err != nil {
		return service.Card{}, wrapError(err)
	}
	return toCard(t, card.ColumnID), nil
}

// ListComments implements service.Service. Tasks have no comments.
func (c *Client) ListComments(ctx context.Context, cardID string) ([]service.Comment, error) {
	return []service.Comment{}, nil
}

// SubscribeComments implements service.Service. The stream stays silent and
// closes when ctx is done.
func (c *Client) SubscribeComments(ctx context.Context, cardID string) (<-chan service.Comment, error) {
	ch := make(chan service.Comment)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

// PostComment implements service.Service.
func (c *Client) PostComment(ctx context.Context, cardID, text string) (service.Comment, error) {
	return service.Comment{}, fmt.Errorf("comments: %w", service.ErrUnsupported)
}

// ListUsers implements service.Service.
func (c *Client) ListUsers(ctx context.Context) ([]service.User, error) {
	return []service.User{}, nil
}

// ListLabels implements service.Service.
func (c *Client) ListLabels(ctx context.Context) ([]service.Label, error) {
	return []service.Label{}, nil
}

func toCard(t *tasks.Task, listID string) service.Card {
	card := service.Card{
		ID:          t.Id,
		Title:       t.Title,
		Description: t.Notes,
		ColumnID:    listID,
		Assignees:   []service.User{},
		Labels:      []service.Label{},
	}
	if t.Due != "" {
		if due, err := time.Parse(time.RFC3339, t.Due); err == nil {
			d := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
			card.DueDate = &d
		}
	}
	return card
}

func fromCard(card service.Card) *tasks.Task {
	t := &tasks.Task{Title: card.Title, Notes: card.Description}
	if card.DueDate != nil {
		t.Due = card.DueDate.UTC().Format(time.RFC3339)
	}
	return t
}

// wrapError maps API errors onto service errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("token expired or revoked (run: taskboard login): %w", service.ErrUnauthorized)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", apiErr.Message, service.ErrNotFound)
		}
	}
	return err
}
