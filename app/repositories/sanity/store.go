package sanity

import (
	"context"
	"fmt"
	"time"

	"mediumplus/app/models"
	"mediumplus/app/repositories"
)

const (
	listPostsQuery = `*[_type == "post"] | order(_createdAt desc){
  _id,
  _createdAt,
  title,
  author->{name, image{asset->{_id, url}}},
  description,
  mainImage{asset->{_id, url}},
  slug
}`

	listSlugsQuery = `*[_type == "post" && defined(slug.current)]{_id, slug{current}}`

	// Comments are restricted to approved ones here; unapproved comments
	// never leave the content lake.
	postBySlugQuery = `*[_type == "post" && slug.current == $slug][0]{
  _id,
  _createdAt,
  title,
  author->{name, image{asset->{_id, url}}},
  "comments": *[_type == "comment" && post._ref == ^._id && approved == true] | order(_createdAt asc),
  description,
  mainImage{asset->{_id, url}},
  slug,
  body[]{..., asset->{_id, url}}
}`
)

// Store implements repositories.ContentStore on top of a Client.
type Store struct {
	client *Client
	now    func() time.Time
}

func NewStore(client *Client) *Store {
	return &Store{client: client, now: time.Now}
}

var _ repositories.ContentStore = (*Store)(nil)

func (s *Store) ListPosts(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	if err := s.client.Query(ctx, listPostsQuery, nil, &posts); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

func (s *Store) ListSlugs(ctx context.Context) ([]string, error) {
	var docs []struct {
		ID   string      `json:"_id"`
		Slug models.Slug `json:"slug"`
	}
	if err := s.client.Query(ctx, listSlugsQuery, nil, &docs); err != nil {
		return nil, fmt.Errorf("failed to list slugs: %w", err)
	}

	slugs := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.Slug.Current != "" {
			slugs = append(slugs, d.Slug.Current)
		}
	}
	return slugs, nil
}

func (s *Store) GetPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	if slug == "" {
		return nil, repositories.ErrEmptySlug
	}

	var post *models.Post
	params := map[string]any{"slug": slug}
	if err := s.client.Query(ctx, postBySlugQuery, params, &post); err != nil {
		return nil, fmt.Errorf("failed to fetch post %q: %w", slug, err)
	}
	if post == nil {
		return nil, repositories.ErrNotFound
	}
	return post, nil
}

// commentDocument is the shape written to the content lake; system fields
// such as _createdAt are assigned server side.
type commentDocument struct {
	Type     string           `json:"_type"`
	Post     models.Reference `json:"post"`
	Name     string           `json:"name"`
	Email    string           `json:"email"`
	Comment  string           `json:"comment"`
	Approved bool             `json:"approved"`
}

func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	doc := commentDocument{
		Type:     "comment",
		Post:     models.Reference{Ref: comment.Post.Ref, Type: "reference"},
		Name:     comment.Name,
		Email:    comment.Email,
		Comment:  comment.Comment,
		Approved: false,
	}

	res, err := s.client.Mutate(ctx, Mutation{Create: doc})
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	if len(res.Results) > 0 {
		comment.ID = res.Results[0].ID
	}
	comment.Type = doc.Type
	comment.Post.Type = doc.Post.Type
	comment.Approved = false
	comment.CreatedAt = s.now().UTC()
	comment.UpdatedAt = comment.CreatedAt
	return nil
}
