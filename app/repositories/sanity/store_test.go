package sanity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"mediumplus/app/models"
	"mediumplus/app/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreListPosts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, listPostsQuery, r.URL.Query().Get("query"))
		w.Write([]byte(`{"result": [
			{"_id": "b", "_createdAt": "2022-02-01T00:00:00Z", "title": "Second", "slug": {"current": "second"}, "author": {"name": "Ann"}},
			{"_id": "a", "_createdAt": "2022-01-01T00:00:00Z", "title": "First", "slug": {"current": "first"}, "author": {"name": "Bob"}}
		]}`))
	}, Config{ProjectID: "p"})

	posts, err := NewStore(c).ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "Second", posts[0].Title)
	assert.Equal(t, "Bob", posts[1].AuthorName())
}

func TestStoreListSlugs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, listSlugsQuery, r.URL.Query().Get("query"))
		w.Write([]byte(`{"result": [{"_id": "a", "slug": {"current": "first"}}, {"_id": "b", "slug": {}}, {"_id": "c", "slug": {"current": "third"}}]}`))
	}, Config{ProjectID: "p"})

	slugs, err := NewStore(c).ListSlugs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "third"}, slugs)
}

func TestStoreGetPostBySlug(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, postBySlugQuery, r.URL.Query().Get("query"))
		switch r.URL.Query().Get("$slug") {
		case `"hello-world"`:
			w.Write([]byte(`{"result": {
				"_id": "a", "title": "Hello", "slug": {"current": "hello-world"},
				"body": [{"_type": "block", "children": [{"_type": "span", "text": "Hi"}]}],
				"comments": [{"_id": "c1", "name": "Ann", "comment": "Nice", "approved": true}]
			}}`))
		default:
			w.Write([]byte(`{"result": null}`))
		}
	}, Config{ProjectID: "p"})
	store := NewStore(c)

	t.Run("found", func(t *testing.T) {
		post, err := store.GetPostBySlug(context.Background(), "hello-world")
		require.NoError(t, err)
		assert.Equal(t, "Hello", post.Title)
		require.Len(t, post.Body, 1)
		require.Len(t, post.Comments, 1)
		assert.True(t, post.Comments[0].Approved)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := store.GetPostBySlug(context.Background(), "does-not-exist")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("empty slug", func(t *testing.T) {
		_, err := store.GetPostBySlug(context.Background(), "")
		assert.ErrorIs(t, err, repositories.ErrEmptySlug)
	})
}

func TestStoreGetPostBySlugPropagatesFailures(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, Config{ProjectID: "p"})

	_, err := NewStore(c).GetPostBySlug(context.Background(), "hello-world")
	require.Error(t, err)
	assert.False(t, errors.Is(err, repositories.ErrNotFound))
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
}

func TestStoreCreateComment(t *testing.T) {
	var sent struct {
		Mutations []struct {
			Create map[string]any `json:"create"`
		} `json:"mutations"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		w.Write([]byte(`{"transactionId": "tx", "results": [{"id": "comment-1", "operation": "create"}]}`))
	}, Config{ProjectID: "p", Token: "secret"})

	store := NewStore(c)
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	sub := &models.CommentSubmission{PostID: "post-1", Name: "Jane", Email: "jane@example.com", Comment: "Hello"}
	comment := sub.ToComment()
	require.NoError(t, store.CreateComment(context.Background(), comment))

	assert.Equal(t, "comment-1", comment.ID)
	assert.Equal(t, fixed, comment.CreatedAt)
	assert.False(t, comment.Approved)

	require.Len(t, sent.Mutations, 1)
	doc := sent.Mutations[0].Create
	assert.Equal(t, "comment", doc["_type"])
	assert.Equal(t, false, doc["approved"])
	assert.Equal(t, "Jane", doc["name"])
	assert.Equal(t, map[string]any{"_ref": "post-1", "_type": "reference"}, doc["post"])
}

func TestStoreCreateCommentFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"description": "Insufficient permissions"}}`))
	}, Config{ProjectID: "p", Token: "read-only"})

	err := NewStore(c).CreateComment(context.Background(), &models.Comment{Name: "x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}
