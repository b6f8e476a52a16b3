package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostApprovedComments(t *testing.T) {
	post := &Post{
		ID:    "post-1",
		Title: "Hello World",
		Comments: []Comment{
			{ID: "c1", Name: "Ann", Approved: true},
			{ID: "c2", Name: "Bob", Approved: false},
			{ID: "c3", Name: "Cy", Approved: true},
		},
	}

	approved := post.ApprovedComments()
	require.Len(t, approved, 2)
	assert.Equal(t, "c1", approved[0].ID)
	assert.Equal(t, "c3", approved[1].ID)

	t.Run("no comments", func(t *testing.T) {
		empty := &Post{}
		assert.Empty(t, empty.ApprovedComments())
	})
}

func TestPostDecodeFromCMS(t *testing.T) {
	doc := `{
		"_id": "post-1",
		"_createdAt": "2022-01-10T12:00:00Z",
		"title": "Hello World",
		"author": {"name": "Sonny", "image": {"asset": {"_id": "image-a", "url": "https://cdn.example.com/a.png"}}},
		"description": "A first post",
		"mainImage": {"asset": {"_ref": "image-b"}},
		"slug": {"current": "hello-world"},
		"body": [
			{"_type": "block", "style": "h1", "children": [{"_type": "span", "text": "Intro"}]},
			{"_type": "youtube", "url": "https://youtu.be/x"}
		],
		"comments": [
			{"_id": "c1", "_createdAt": "2022-01-11T09:30:00Z", "name": "Ann", "email": "ann@example.com",
			 "comment": "Nice", "approved": true, "post": {"_ref": "post-1", "_type": "reference"}}
		]
	}`

	var post Post
	require.NoError(t, json.Unmarshal([]byte(doc), &post))

	assert.Equal(t, "hello-world", post.SlugString())
	assert.Equal(t, "Sonny", post.AuthorName())
	assert.Equal(t, "https://cdn.example.com/a.png", post.Author.Image.Asset.URL)
	assert.Equal(t, "image-b", post.MainImage.Asset.Ref)
	assert.Equal(t, time.Date(2022, 1, 10, 12, 0, 0, 0, time.UTC), post.CreatedAt.UTC())
	require.Len(t, post.Body, 2)
	assert.Equal(t, "heading", post.Body[0].Kind())
	assert.Equal(t, "youtube", post.Body[1].Kind())
	require.Len(t, post.Comments, 1)
	assert.Equal(t, "post-1", post.Comments[0].Post.Ref)
}
