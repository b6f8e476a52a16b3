package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mediumplus/app/cache"
	"mediumplus/app/controllers"
	"mediumplus/app/metrics"
	"mediumplus/app/middleware"
	"mediumplus/app/models"
	"mediumplus/app/pages"
	"mediumplus/app/render"
	"mediumplus/app/repositories/memory"
	"mediumplus/app/services"
	"mediumplus/app/views"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupTestServer(t *testing.T) (*httptest.Server, *memory.Store, *models.Post) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	m := metrics.New()

	store := memory.NewStore()
	post := &models.Post{
		Title:       "Hello World",
		Description: "A first post",
		Author:      models.Author{Name: "Sonny"},
		Slug:        models.Slug{Current: "hello-world"},
	}
	store.AddPost(post)

	pageStore, err := cache.OpenBadgerStore(cache.BadgerOptions{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { pageStore.Close() })

	v, err := views.New(render.New(render.ImageURLBuilder{}))
	require.NoError(t, err)

	regen := cache.NewRegenerator(pageStore, time.Minute, logger, cache.WithMetrics(m))
	t.Cleanup(regen.Close)

	postService := services.NewPostService(store, time.Minute)
	builder := pages.NewBuilder(postService, v)
	commentService := services.NewCommentService(store, nil, logger, m)

	server := httptest.NewServer(Handler(Handlers{
		Posts:    controllers.NewPostController(builder, regen, logger),
		Comments: controllers.NewCommentController(commentService, builder, logger),
		Metrics:  m,
		Logger:   logger,
	}))
	t.Cleanup(server.Close)
	return server, store, post
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var sb strings.Builder
	_, err = io.Copy(&sb, resp.Body)
	require.NoError(t, err)
	return resp, sb.String()
}

func TestRoutes(t *testing.T) {
	server, _, _ := setupTestServer(t)

	tests := []struct {
		name        string
		path        string
		wantStatus  int
		wantType    string
		wantContain string
	}{
		{"listing", "/", http.StatusOK, "text/html", "Hello World"},
		{"detail", "/post/hello-world", http.StatusOK, "text/html", "A first post"},
		{"unknown slug", "/post/does-not-exist", http.StatusNotFound, "text/html", ""},
		{"unmatched route", "/posts/1/edit", http.StatusNotFound, "text/html", ""},
		{"health", "/healthz", http.StatusOK, "text/plain", "ok"},
		{"stylesheet", "/static/style.css", http.StatusOK, "text/css", ""},
		{"comment api wrong method", "/api/createComment", http.StatusMethodNotAllowed, "application/json", "Method not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, server.URL+tt.path)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Type"), tt.wantType)
			assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
			assert.Contains(t, body, tt.wantContain)
		})
	}
}

func TestCreateCommentRoute(t *testing.T) {
	server, store, post := setupTestServer(t)

	payload := `{"_id":"` + post.ID + `","name":"Jane","email":"jane@example.com","comment":"Great read!"}`
	resp, err := http.Post(server.URL+"/api/createComment", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	comments := store.Comments(post.ID)
	require.Len(t, comments, 1)
	assert.False(t, comments[0].Approved)

	_, body := get(t, server.URL+"/post/hello-world")
	assert.NotContains(t, body, "Great read!")
}

func TestMetricsRoute(t *testing.T) {
	server, _, _ := setupTestServer(t)

	get(t, server.URL+"/post/hello-world")
	get(t, server.URL+"/post/hello-world")

	resp, body := get(t, server.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `mediumplus_pages_requests_total{state="miss"} 1`)
	assert.Contains(t, body, `mediumplus_pages_requests_total{state="hit"} 1`)
}

func TestRouteTemplate(t *testing.T) {
	router := SetupRoutes(Handlers{
		Posts:    &controllers.PostController{},
		Comments: &controllers.CommentController{},
	})

	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/post/hello-world", "/post/{slug}"},
		{http.MethodPost, "/post/hello-world/comments", "/post/{slug}/comments"},
		{http.MethodPost, "/api/createComment", "/api/createComment"},
		{http.MethodGet, "/nope/nope", "unmatched"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil).WithContext(context.Background())
		assert.Equal(t, tt.want, routeTemplate(router, req), tt.path)
	}
}
