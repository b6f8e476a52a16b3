package render

import (
	"fmt"
	"net/url"
	"strings"

	"mediumplus/app/models"
)

// ImageURLBuilder resolves asset references to CDN URLs.
type ImageURLBuilder struct {
	ProjectID string
	Dataset   string
	BaseURL   string
}

const defaultImageCDN = "https://cdn.sanity.io/images"

// URL returns the asset's URL, deriving it from the reference
// "image-<id>-<w>x<h>-<ext>" when the query did not dereference it. Width
// bounds the rendered size when positive.
func (b ImageURLBuilder) URL(asset models.Asset, width int) string {
	src := asset.URL
	if src == "" {
		src = b.fromRef(asset.Ref)
		if src == "" {
			src = b.fromRef(asset.ID)
		}
	}
	if src == "" || width <= 0 {
		return src
	}

	u, err := url.Parse(src)
	if err != nil {
		return src
	}
	q := u.Query()
	q.Set("w", fmt.Sprint(width))
	q.Set("auto", "format")
	u.RawQuery = q.Encode()
	return u.String()
}

func (b ImageURLBuilder) fromRef(ref string) string {
	if b.ProjectID == "" || !strings.HasPrefix(ref, "image-") {
		return ""
	}
	parts := strings.Split(strings.TrimPrefix(ref, "image-"), "-")
	if len(parts) < 3 {
		return ""
	}
	ext := parts[len(parts)-1]
	dims := parts[len(parts)-2]
	id := strings.Join(parts[:len(parts)-2], "-")

	base := b.BaseURL
	if base == "" {
		base = defaultImageCDN
	}
	dataset := b.Dataset
	if dataset == "" {
		dataset = "production"
	}
	return fmt.Sprintf("%s/%s/%s/%s-%s.%s", strings.TrimRight(base, "/"), b.ProjectID, dataset, id, dims, ext)
}
