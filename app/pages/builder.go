// Package pages renders complete HTML pages from service data.
package pages

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"mediumplus/app/cache"
	"mediumplus/app/services"
	"mediumplus/app/views"
)

const ContentTypeHTML = "text/html; charset=utf-8"

// CacheKey is the page store key of a post's detail page.
func CacheKey(slug string) string {
	return "post:" + slug
}

type Builder struct {
	posts *services.PostService
	views *views.Views
}

func NewBuilder(posts *services.PostService, v *views.Views) *Builder {
	return &Builder{posts: posts, views: v}
}

// Listing renders the index page from a fresh read of every post.
func (b *Builder) Listing(ctx context.Context) (*cache.Page, error) {
	posts, err := b.posts.ListingProps(ctx)
	if err != nil {
		return nil, err
	}
	return b.render(http.StatusOK, views.Index, views.IndexData{Posts: posts})
}

// Detail returns the generator for slug's page. Unknown slugs produce the
// not-found page with a 404 status, which the page cache never stores.
func (b *Builder) Detail(slug string) cache.Generator {
	return func(ctx context.Context) (*cache.Page, error) {
		return b.DetailWithForm(ctx, slug, views.FormState{}, http.StatusOK)
	}
}

// DetailWithForm renders slug's page with the comment form in the given
// state. The result is specific to one submission and is not cached.
func (b *Builder) DetailWithForm(ctx context.Context, slug string, form views.FormState, status int) (*cache.Page, error) {
	props, err := b.posts.DetailProps(ctx, slug)
	if err != nil {
		return nil, err
	}
	if props.NotFound {
		return b.NotFound()
	}
	if form.Errors == nil {
		form.Errors = map[string]string{}
	}

	return b.render(status, views.Show, views.ShowData{
		Title:    props.Post.Title,
		Post:     props.Post,
		Comments: props.Post.Comments,
		Form:     form,
	})
}

func (b *Builder) NotFound() (*cache.Page, error) {
	return b.render(http.StatusNotFound, views.NotFound, views.ErrorData{Title: "Not Found"})
}

// Error renders the generic failure page, falling back to plain text if the
// template itself fails.
func (b *Builder) Error(requestID string) *cache.Page {
	page, err := b.render(http.StatusInternalServerError, views.Error, views.ErrorData{
		Title:     "Error",
		RequestID: requestID,
	})
	if err != nil {
		return cache.NewPage(http.StatusInternalServerError, "text/plain; charset=utf-8",
			[]byte(http.StatusText(http.StatusInternalServerError)))
	}
	return page
}

func (b *Builder) render(status int, name string, data any) (*cache.Page, error) {
	var buf bytes.Buffer
	if err := b.views.Render(&buf, name, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return cache.NewPage(status, ContentTypeHTML, buf.Bytes()), nil
}
