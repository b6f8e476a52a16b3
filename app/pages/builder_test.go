package pages

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"mediumplus/app/models"
	"mediumplus/app/render"
	"mediumplus/app/repositories/memory"
	"mediumplus/app/services"
	"mediumplus/app/views"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct{ *memory.Store }

func (brokenStore) GetPostBySlug(context.Context, string) (*models.Post, error) {
	return nil, errors.New("content api down")
}

func newTestBuilder(t *testing.T) (*Builder, *memory.Store) {
	store := memory.NewStore()
	store.AddPost(&models.Post{
		ID:          "p1",
		Title:       "Hello World",
		Description: "The first post",
		Author:      models.Author{Name: "Sonny"},
		Slug:        models.Slug{Current: "hello-world"},
	})
	v, err := views.New(render.New(render.ImageURLBuilder{}))
	require.NoError(t, err)
	return NewBuilder(services.NewPostService(store, time.Minute), v), store
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "post:hello-world", CacheKey("hello-world"))
}

func TestListing(t *testing.T) {
	b, _ := newTestBuilder(t)
	page, err := b.Listing(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.Status)
	assert.Equal(t, ContentTypeHTML, page.ContentType)
	assert.Contains(t, string(page.Body), "Hello World")
	assert.NotEmpty(t, page.ETag)
}

func TestDetail(t *testing.T) {
	b, _ := newTestBuilder(t)

	page, err := b.Detail("hello-world")(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.Status)
	assert.True(t, page.Cacheable())
	body := string(page.Body)
	assert.Contains(t, body, "Hello World")
	assert.Contains(t, body, "The first post")
	assert.Contains(t, body, "Sonny")

	missing, err := b.Detail("does-not-exist")(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, missing.Status)
	assert.False(t, missing.Cacheable())
}

func TestDetailWithForm(t *testing.T) {
	b, _ := newTestBuilder(t)

	page, err := b.DetailWithForm(context.Background(), "hello-world", views.FormState{
		Errors: map[string]string{"email": "The Email Field is required"},
	}, http.StatusUnprocessableEntity)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, page.Status)
	assert.Contains(t, string(page.Body), "The Email Field is required")
}

func TestDetailStoreFailure(t *testing.T) {
	store := brokenStore{memory.NewStore()}
	v, err := views.New(render.New(render.ImageURLBuilder{}))
	require.NoError(t, err)
	b := NewBuilder(services.NewPostService(store, time.Minute), v)

	_, err = b.Detail("hello-world")(context.Background())
	assert.Error(t, err)

	page := b.Error("req-1")
	assert.Equal(t, http.StatusInternalServerError, page.Status)
	assert.Contains(t, string(page.Body), "req-1")
}
