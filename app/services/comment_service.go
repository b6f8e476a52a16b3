package services

import (
	"context"
	"errors"
	"fmt"

	"mediumplus/app/events"
	"mediumplus/app/metrics"
	"mediumplus/app/models"
	"mediumplus/app/repositories"

	"go.uber.org/zap"
)

var ErrCommentNotSubmitted = errors.New("couldn't submit comment")

// CommentService accepts reader comments and stores them for moderation.
type CommentService struct {
	store     repositories.ContentStore
	publisher events.Publisher
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewCommentService(store repositories.ContentStore, publisher events.Publisher, logger *zap.Logger, m *metrics.Metrics) *CommentService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{
		store:     store,
		publisher: publisher,
		logger:    logger.Named("comments"),
		metrics:   m,
	}
}

// Submit validates sub and writes it as an unapproved comment. Invalid input
// returns a *models.ValidationError without touching the store; a failed write
// returns an error wrapping ErrCommentNotSubmitted.
func (s *CommentService) Submit(ctx context.Context, sub *models.CommentSubmission) (*models.Comment, error) {
	sub.Normalize()
	if err := sub.Validate(); err != nil {
		s.metrics.CommentSubmitted("invalid")
		return nil, err
	}

	comment := sub.ToComment()
	if err := s.store.CreateComment(ctx, comment); err != nil {
		s.metrics.CommentSubmitted("failed")
		s.logger.Error("failed to create comment", zap.String("post_id", sub.PostID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCommentNotSubmitted, err)
	}

	if err := s.publisher.PublishCommentSubmitted(ctx, comment); err != nil {
		s.logger.Warn("failed to publish comment event",
			zap.String("comment_id", comment.ID), zap.Error(err))
	}

	s.metrics.CommentSubmitted("submitted")
	s.logger.Info("comment submitted",
		zap.String("comment_id", comment.ID),
		zap.String("post_id", comment.Post.Ref))
	return comment, nil
}
