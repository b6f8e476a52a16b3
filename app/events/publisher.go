// Package events announces comment submissions to downstream consumers such
// as moderation tooling.
package events

import (
	"context"
	"time"

	"mediumplus/app/models"

	"github.com/google/uuid"
)

const DefaultTopic = "blog.comment.submitted"

// CommentSubmittedEvent is published once a comment is stored awaiting approval.
type CommentSubmittedEvent struct {
	EventID   string    `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
	CommentID string    `json:"commentId"`
	PostID    string    `json:"postId"`
	Name      string    `json:"name"`
}

func NewCommentSubmittedEvent(c *models.Comment, now time.Time) CommentSubmittedEvent {
	return CommentSubmittedEvent{
		EventID:   uuid.New().String(),
		Timestamp: now,
		CommentID: c.ID,
		PostID:    c.Post.Ref,
		Name:      c.Name,
	}
}

type Publisher interface {
	PublishCommentSubmitted(ctx context.Context, comment *models.Comment) error
	Close() error
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishCommentSubmitted(context.Context, *models.Comment) error { return nil }
func (NopPublisher) Close() error { return nil }
