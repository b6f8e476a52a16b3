// Package memory is an in-process ContentStore used for demo mode and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mediumplus/app/models"
	"mediumplus/app/repositories"

	"github.com/google/uuid"
)

type Store struct {
	posts    map[string]*models.Post
	comments map[string]*models.Comment
	mutex    sync.RWMutex
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		posts:    make(map[string]*models.Post),
		comments: make(map[string]*models.Comment),
		now:      time.Now,
	}
}

var _ repositories.ContentStore = (*Store)(nil)

func (m *Store) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.posts = make(map[string]*models.Post)
	m.comments = make(map[string]*models.Comment)
}

// AddPost stores post, replacing any post with the same ID. A missing ID or
// creation time is filled in.
func (m *Store) AddPost(post *models.Post) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = m.now().UTC()
	}
	stored := *post
	stored.Comments = nil
	m.posts[post.ID] = &stored
}

// DeletePost removes a post and every comment referencing it.
func (m *Store) DeletePost(id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.posts[id]; !exists {
		return repositories.ErrNotFound
	}
	delete(m.posts, id)
	for cid, c := range m.comments {
		if c.Post.Ref == id {
			delete(m.comments, cid)
		}
	}
	return nil
}

// Approve marks a comment as approved, making it visible on its post.
func (m *Store) Approve(commentID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	c, exists := m.comments[commentID]
	if !exists {
		return repositories.ErrNotFound
	}
	c.Approved = true
	c.UpdatedAt = m.now().UTC()
	return nil
}

// Comments returns every comment on a post, approved or not, oldest first.
func (m *Store) Comments(postID string) []models.Comment {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.commentsFor(postID, false)
}

func (m *Store) commentsFor(postID string, approvedOnly bool) []models.Comment {
	var out []models.Comment
	for _, c := range m.comments {
		if c.Post.Ref != postID || (approvedOnly && !c.Approved) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *Store) ListPosts(ctx context.Context) ([]*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	posts := make([]*models.Post, 0, len(m.posts))
	for _, p := range m.posts {
		summary := *p
		summary.Body = nil
		summary.Comments = nil
		posts = append(posts, &summary)
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts, nil
}

func (m *Store) ListSlugs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	slugs := make([]string, 0, len(m.posts))
	for _, p := range m.posts {
		if p.Slug.Current != "" {
			slugs = append(slugs, p.Slug.Current)
		}
	}
	sort.Strings(slugs)
	return slugs, nil
}

func (m *Store) GetPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	if slug == "" {
		return nil, repositories.ErrEmptySlug
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, p := range m.posts {
		if p.Slug.Current == slug {
			post := *p
			post.Comments = m.commentsFor(p.ID, true)
			return &post, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.posts[comment.Post.Ref]; !exists {
		return fmt.Errorf("post %q: %w", comment.Post.Ref, repositories.ErrNotFound)
	}

	now := m.now().UTC()
	comment.ID = uuid.NewString()
	comment.Type = "comment"
	comment.Post.Type = "reference"
	comment.Approved = false
	comment.CreatedAt = now
	comment.UpdatedAt = now

	stored := *comment
	m.comments[comment.ID] = &stored
	return nil
}
