package sanity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"mediumplus/app/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg Config) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL
	cfg.HTTPClient = srv.Client()
	c, err := NewClient(cfg, zaptest.NewLogger(t), metrics.New())
	require.NoError(t, err)
	return c
}

func TestNewClientDefaults(t *testing.T) {
	_, err := NewClient(Config{}, nil, nil)
	assert.Error(t, err)

	c, err := NewClient(Config{ProjectID: "abc123", APIVersion: "v2021-03-25"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "production", c.cfg.Dataset)
	assert.Equal(t, "2021-03-25", c.cfg.APIVersion)

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"live api", Config{ProjectID: "abc123"}, "https://abc123.api.sanity.io/v2021-10-21/data/query/production"},
		{"cdn", Config{ProjectID: "abc123", UseCDN: true}, "https://abc123.apicdn.sanity.io/v2021-10-21/data/query/production"},
		{"other dataset", Config{ProjectID: "abc123", Dataset: "staging"}, "https://abc123.api.sanity.io/v2021-10-21/data/query/staging"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.cfg, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.endpoint("query", tt.cfg.UseCDN))
		})
	}
}

func TestQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v2021-10-21/data/query/production", r.URL.Path)
		assert.Equal(t, `*[_type == "post" && slug.current == $slug][0]`, r.URL.Query().Get("query"))
		assert.Equal(t, `"hello-world"`, r.URL.Query().Get("$slug"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"ms": 3, "result": {"title": "Hello"}}`))
	}, Config{ProjectID: "p"})

	var out struct {
		Title string `json:"title"`
	}
	err := c.Query(context.Background(), `*[_type == "post" && slug.current == $slug][0]`, map[string]any{"slug": "hello-world"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Hello", out.Title)
}

func TestQueryNullResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": null}`))
	}, Config{ProjectID: "p"})

	var out *struct{ Title string }
	require.NoError(t, c.Query(context.Background(), "*[0]", nil, &out))
	assert.Nil(t, out)
}

func TestQueryAPIError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantDesc string
	}{
		{"error description", http.StatusBadRequest, `{"error": {"description": "unable to parse query"}}`, "unable to parse query"},
		{"message", http.StatusUnauthorized, `{"message": "unauthorized"}`, "unauthorized"},
		{"no body", http.StatusBadGateway, ``, "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}, Config{ProjectID: "p"})

			err := c.Query(context.Background(), "*", nil, nil)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantDesc, apiErr.Description)
		})
	}
}

func TestMutate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2021-10-21/data/mutate/production", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("returnIds"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.JSONEq(t, `{"mutations":[{"create":{"_type":"thing"}}]}`, string(body))

		w.Write([]byte(`{"transactionId": "tx1", "results": [{"id": "doc1", "operation": "create"}]}`))
	}, Config{ProjectID: "p", Token: "secret"})

	res, err := c.Mutate(context.Background(), Mutation{Create: map[string]string{"_type": "thing"}})
	require.NoError(t, err)
	assert.Equal(t, "tx1", res.TransactionID)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "doc1", res.Results[0].ID)
}

func TestMutateRequiresToken(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, Config{ProjectID: "p"})

	_, err := c.Mutate(context.Background(), Mutation{Create: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, ErrNoToken)
	assert.False(t, called)
}
