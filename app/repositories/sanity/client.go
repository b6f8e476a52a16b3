// Package sanity talks to the Sanity content lake over its HTTP API.
package sanity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mediumplus/app/metrics"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	DefaultDataset    = "production"
	DefaultAPIVersion = "2021-10-21"

	maxErrorBody = 64 << 10
)

var ErrNoToken = errors.New("sanity: write token not configured")

// Config identifies a project/dataset pair.
type Config struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	UseCDN     bool
	// Token authorizes mutations. Queries with a token always hit the live API.
	Token string
	// BaseURL replaces the project host for both queries and mutations.
	BaseURL    string
	HTTPClient *http.Client
}

// APIError is a non-2xx response from the content API.
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sanity: %d %s", e.StatusCode, e.Description)
}

type Client struct {
	cfg     Config
	http    *http.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewClient(cfg Config, logger *zap.Logger, m *metrics.Metrics) (*Client, error) {
	if cfg.ProjectID == "" && cfg.BaseURL == "" {
		return nil, errors.New("sanity: project id is required")
	}
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	cfg.APIVersion = strings.TrimPrefix(cfg.APIVersion, "v")
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		cfg:     cfg,
		http:    hc,
		logger:  logger.Named("sanity"),
		metrics: m,
	}, nil
}

func (c *Client) host(cdn bool) string {
	if c.cfg.BaseURL != "" {
		return c.cfg.BaseURL
	}
	api := "api"
	if cdn {
		api = "apicdn"
	}
	return fmt.Sprintf("https://%s.%s.sanity.io", c.cfg.ProjectID, api)
}

func (c *Client) endpoint(kind string, cdn bool) string {
	return fmt.Sprintf("%s/v%s/data/%s/%s", c.host(cdn), c.cfg.APIVersion, kind, c.cfg.Dataset)
}

// Query runs a GROQ query and decodes its result into out. A null result
// leaves out untouched.
func (c *Client) Query(ctx context.Context, query string, params map[string]any, out any) error {
	values := url.Values{}
	values.Set("query", query)
	for name, v := range params {
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode query param %s: %w", name, err)
		}
		values.Set("$"+name, string(encoded))
	}

	endpoint := c.endpoint("query", c.cfg.UseCDN && c.cfg.Token == "") + "?" + values.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := c.do(req, "query", &envelope); err != nil {
		return err
	}
	if out == nil || len(envelope.Result) == 0 || bytes.Equal(envelope.Result, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("failed to decode query result: %w", err)
	}
	return nil
}

// Mutation is one entry of a mutate transaction.
type Mutation struct {
	Create any `json:"create,omitempty"`
}

type MutateResult struct {
	TransactionID string `json:"transactionId"`
	Results       []struct {
		ID        string `json:"id"`
		Operation string `json:"operation"`
	} `json:"results"`
}

// Mutate applies mutations in one transaction against the live API.
func (c *Client) Mutate(ctx context.Context, mutations ...Mutation) (*MutateResult, error) {
	if c.cfg.Token == "" {
		return nil, ErrNoToken
	}

	payload, err := json.Marshal(struct {
		Mutations []Mutation `json:"mutations"`
	}{mutations})
	if err != nil {
		return nil, fmt.Errorf("failed to encode mutations: %w", err)
	}

	endpoint := c.endpoint("mutate", false) + "?returnIds=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var result MutateResult
	if err := c.do(req, "mutate", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(req *http.Request, op string, out any) (err error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		c.metrics.ObserveCMS(op, err, elapsed)
		c.logger.Debug("content api request",
			zap.String("op", op),
			zap.String("url", req.URL.Redacted()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	}()

	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sanity %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

func newAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Message string `json:"message"`
		Error   struct {
			Description string `json:"description"`
		} `json:"error"`
	}
	desc := http.StatusText(resp.StatusCode)
	if json.Unmarshal(body, &payload) == nil {
		switch {
		case payload.Error.Description != "":
			desc = payload.Error.Description
		case payload.Message != "":
			desc = payload.Message
		}
	}
	return &APIError{StatusCode: resp.StatusCode, Description: desc}
}
