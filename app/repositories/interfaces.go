package repositories

import (
	"context"
	"errors"

	"mediumplus/app/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrEmptySlug = errors.New("slug is empty")
)

// ContentStore is the read/write surface of the content backend.
type ContentStore interface {
	// ListPosts returns every post, newest first, without bodies or comments.
	ListPosts(ctx context.Context) ([]*models.Post, error)
	// ListSlugs returns the slug of every post that has one.
	ListSlugs(ctx context.Context) ([]string, error)
	// GetPostBySlug returns the post with its body and approved comments.
	GetPostBySlug(ctx context.Context, slug string) (*models.Post, error)
	// CreateComment stores an unapproved comment and sets its ID.
	CreateComment(ctx context.Context, comment *models.Comment) error
}
