// Package events publishes domain events after their writes commit.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	PostCreated     = "post.created"
	CommentCreated  = "comment.created"
	VoteApplied     = "vote.applied"
	CommunityJoined = "community.joined"
)

// Event is the payload every backend publishes.
type Event struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	OccurredAt  time.Time              `json:"occurred_at"`
	UserID      uint                   `json:"user_id,omitempty"`
	CommunityID uint                   `json:"community_id,omitempty"`
	PostID      uint                   `json:"post_id,omitempty"`
	CommentID   uint                   `json:"comment_id,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// New stamps an event of type kind with a fresh id and the current time.
func New(kind string) Event {
	return Event{ID: uuid.NewString(), Type: kind, OccurredAt: time.Now().UTC()}
}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events to subscribers outside the process.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

const publishTimeout = 2 * time.Second

// Emit publishes evt and logs a failure instead of returning it. Callers
// invoke it after their transaction has committed.
func Emit(ctx context.Context, p Publisher, evt Event) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, evt); err != nil {
		slog.WarnContext(ctx, "event publish failed",
			slog.String("type", evt.Type),
			slog.String("event_id", evt.ID),
			slog.String("error", err.Error()),
		)
	}
}
