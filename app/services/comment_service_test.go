package services

import (
	"context"
	"errors"
	"testing"

	"mediumplus/app/metrics"
	"mediumplus/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingPublisher struct {
	published []*models.Comment
	err       error
}

func (p *recordingPublisher) PublishCommentSubmitted(_ context.Context, c *models.Comment) error {
	p.published = append(p.published, c)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestCommentServiceSubmit(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	pub := &recordingPublisher{}
	svc := NewCommentService(store, pub, zaptest.NewLogger(t), metrics.New())

	comment, err := svc.Submit(ctx, &models.CommentSubmission{
		PostID:  "p1",
		Name:    "  Jane  ",
		Email:   "jane@example.com",
		Comment: "Great read!",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, comment.ID)
	assert.False(t, comment.Approved)
	assert.Equal(t, "Jane", comment.Name)

	stored := store.Comments("p1")
	require.Len(t, stored, 1)
	assert.False(t, stored[0].Approved)
	require.Len(t, pub.published, 1)
	assert.Equal(t, comment.ID, pub.published[0].ID)

	props, err := NewPostService(store, 0).DetailProps(ctx, "hello-world")
	require.NoError(t, err)
	assert.Empty(t, props.Post.Comments, "pending comments are not shown")
}

func TestCommentServiceRejectsIncompleteSubmissions(t *testing.T) {
	tests := []struct {
		name      string
		sub       models.CommentSubmission
		wantField string
	}{
		{"missing name", models.CommentSubmission{PostID: "p1", Email: "a@example.com", Comment: "hi"}, "name"},
		{"missing email", models.CommentSubmission{PostID: "p1", Name: "A", Comment: "hi"}, "email"},
		{"missing comment", models.CommentSubmission{PostID: "p1", Name: "A", Email: "a@example.com"}, "comment"},
		{"blank comment", models.CommentSubmission{PostID: "p1", Name: "A", Email: "a@example.com", Comment: "   "}, "comment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &failingStore{}
			pub := &recordingPublisher{}
			svc := NewCommentService(store, pub, nil, nil)

			sub := tt.sub
			_, err := svc.Submit(context.Background(), &sub)

			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tt.wantField)
			assert.Zero(t, store.calls, "store must not be touched")
			assert.Empty(t, pub.published)
		})
	}
}

func TestCommentServiceWriteFailure(t *testing.T) {
	cause := errors.New("insufficient permissions")
	pub := &recordingPublisher{}
	svc := NewCommentService(&failingStore{err: cause}, pub, zaptest.NewLogger(t), nil)

	_, err := svc.Submit(context.Background(), &models.CommentSubmission{
		PostID: "p1", Name: "A", Email: "a@example.com", Comment: "hi",
	})
	assert.ErrorIs(t, err, ErrCommentNotSubmitted)
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, pub.published)
}

func TestCommentServicePublishFailureStillSucceeds(t *testing.T) {
	store := seededStore(t)
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewCommentService(store, pub, zaptest.NewLogger(t), nil)

	comment, err := svc.Submit(context.Background(), &models.CommentSubmission{
		PostID: "p1", Name: "A", Email: "a@example.com", Comment: "hi",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, comment.ID)
	assert.Len(t, store.Comments("p1"), 1)
}
