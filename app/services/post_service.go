package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mediumplus/app/models"
	"mediumplus/app/repositories"
)

// FallbackBlocking means a slug that was not built ahead of time is rendered
// on its first request while that request waits.
const FallbackBlocking = "blocking"

// DetailPaths lists the detail pages to build ahead of requests.
type DetailPaths struct {
	Slugs    []string
	Fallback string
}

// DetailProps is what a detail page is rendered from. When NotFound is set
// Post is nil.
type DetailProps struct {
	Post       *models.Post
	NotFound   bool
	Revalidate time.Duration
}

// PostService assembles page data from the content store.
type PostService struct {
	store      repositories.ContentStore
	revalidate time.Duration
}

func NewPostService(store repositories.ContentStore, revalidate time.Duration) *PostService {
	return &PostService{
		store:      store,
		revalidate: revalidate,
	}
}

func (s *PostService) Revalidate() time.Duration { return s.revalidate }

// ListingProps fetches every post. It is never cached.
func (s *PostService) ListingProps(ctx context.Context) ([]*models.Post, error) {
	posts, err := s.store.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load listing: %w", err)
	}
	return posts, nil
}

func (s *PostService) DetailPaths(ctx context.Context) (*DetailPaths, error) {
	slugs, err := s.store.ListSlugs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate posts: %w", err)
	}
	return &DetailPaths{Slugs: slugs, Fallback: FallbackBlocking}, nil
}

// DetailProps loads one post. Unknown and empty slugs are reported through
// NotFound rather than an error.
func (s *PostService) DetailProps(ctx context.Context, slug string) (*DetailProps, error) {
	post, err := s.store.GetPostBySlug(ctx, slug)
	switch {
	case errors.Is(err, repositories.ErrNotFound), errors.Is(err, repositories.ErrEmptySlug):
		return &DetailProps{NotFound: true}, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load post %q: %w", slug, err)
	}

	post.Comments = post.ApprovedComments()
	return &DetailProps{Post: post, Revalidate: s.revalidate}, nil
}
