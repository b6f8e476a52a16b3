// Package cache stores rendered pages and regenerates them in the background
// once they age past the revalidation window.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

var ErrMiss = errors.New("cache miss")

// Page is a fully rendered HTTP response body.
type Page struct {
	Status      int       `json:"status"`
	ContentType string    `json:"contentType"`
	Body        []byte    `json:"body"`
	ETag        string    `json:"etag"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// NewPage stamps body with a content hash ETag. GeneratedAt is set when the
// page is stored.
func NewPage(status int, contentType string, body []byte) *Page {
	sum := blake2b.Sum256(body)
	return &Page{
		Status:      status,
		ContentType: contentType,
		Body:        body,
		ETag:        `"` + hex.EncodeToString(sum[:16]) + `"`,
	}
}

// Cacheable reports whether the page may be kept for later requests.
// Not-found and error pages are always regenerated.
func (p *Page) Cacheable() bool {
	return p.Status >= 200 && p.Status < 300
}

// Age is how long ago the page was generated.
func (p *Page) Age(now time.Time) time.Duration {
	return now.Sub(p.GeneratedAt)
}

// Store persists pages by key. Get returns ErrMiss for absent keys.
type Store interface {
	Get(ctx context.Context, key string) (*Page, error)
	Put(ctx context.Context, key string, page *Page) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

func encodePage(page *Page) ([]byte, error) {
	data, err := json.Marshal(page)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal page: %w", err)
	}
	return data, nil
}

func decodePage(data []byte) (*Page, error) {
	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to unmarshal page: %w", err)
	}
	return &page, nil
}
