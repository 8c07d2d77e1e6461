package optimistic

import (
	"context"
	"errors"
	"time"

	"taskboard/internal/service"
)

// IntentKind is the kind of mutation sent for confirmation.
type IntentKind int

const (
	IntentMove IntentKind = iota + 1
	IntentCreate
	IntentUpdate
)

func (k IntentKind) String() string {
	switch k {
	case IntentMove:
		return "move card"
	case IntentCreate:
		return "create card"
	case IntentUpdate:
		return "update card"
	default:
		return "unknown"
	}
}

// Intent is a mutation awaiting confirmation by the backing service.
type Intent struct {
	Kind IntentKind

	// Move fields.
	CardID       string
	FromColumnID string
	ToColumnID   string

	// Create and update payload.
	Card service.Card
}

// Channel sends an intent to the backing service and waits for its verdict.
// A call resolves exactly once: an optional confirmed card, or an error.
// Implementations do not retry.
type Channel interface {
	Confirm(ctx context.Context, in Intent) (*service.Card, error)
}

// ChannelFunc adapts a function to Channel.
type ChannelFunc func(ctx context.Context, in Intent) (*service.Card, error)

func (f ChannelFunc) Confirm(ctx context.Context, in Intent) (*service.Card, error) {
	return f(ctx, in)
}

// ServiceChannel confirms intents against a service.Service.
type ServiceChannel struct {
	svc service.Service

	// Timeout bounds each confirmation. Zero means no timeout.
	Timeout time.Duration
}

// NewServiceChannel creates a channel backed by svc.
func NewServiceChannel(svc service.Service, timeout time.Duration) *ServiceChannel {
	return &ServiceChannel{svc: svc, Timeout: timeout}
}

// Confirm implements Channel. Errors are returned as *service.RejectedError.
func (c *ServiceChannel) Confirm(ctx context.Context, in Intent) (*service.Card, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	switch in.Kind {
	case IntentMove:
		err := c.svc.MoveCard(ctx, in.CardID, in.ToColumnID, in.FromColumnID)
		return nil, service.Reject(in.Kind.String(), err)
	case IntentCreate:
		saved, err := c.svc.CreateCard(ctx, in.Card)
		if err != nil {
			return nil, service.Reject(in.Kind.String(), err)
		}
		return &saved, nil
	case IntentUpdate:
		saved, err := c.svc.UpdateCard(ctx, in.Card)
		if err != nil {
			return nil, service.Reject(in.Kind.String(), err)
		}
		return &saved, nil
	default:
		return nil, service.Reject(in.Kind.String(), errors.New("unknown intent"))
	}
}
