// Package controllers turns HTTP requests into page and API responses.
package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mediumplus/app/cache"
	"mediumplus/app/middleware"
	"mediumplus/app/pages"

	"go.uber.org/zap"
)

const noStore = "no-store"

// sharedCacheControl lets shared caches keep a page for window and serve it
// stale while they refetch.
func sharedCacheControl(window time.Duration) string {
	return "s-maxage=" + strconv.Itoa(int(window.Seconds())) + ", stale-while-revalidate"
}

// sendPage writes a rendered page. An empty cacheControl, or a page that is
// not cacheable, is sent with no-store and without validators; otherwise
// conditional requests are answered with 304.
func sendPage(w http.ResponseWriter, r *http.Request, page *cache.Page, cacheControl string) {
	h := w.Header()
	h.Set("Content-Type", page.ContentType)
	if cacheControl == "" || !page.Cacheable() {
		h.Set("Cache-Control", noStore)
	} else {
		h.Set("Cache-Control", cacheControl)
		if page.ETag != "" {
			h.Set("ETag", page.ETag)
			if etagMatches(r.Header.Get("If-None-Match"), page.ETag) {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}
	h.Set("Content-Length", strconv.Itoa(len(page.Body)))
	w.WriteHeader(page.Status)
	if r.Method != http.MethodHead {
		w.Write(page.Body)
	}
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

// sendErrorPage logs err and writes the generic error page.
func sendErrorPage(w http.ResponseWriter, r *http.Request, builder *pages.Builder, logger *zap.Logger, err error) {
	requestID := middleware.GetRequestID(r.Context())
	logger.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", requestID),
		zap.Error(err))
	sendPage(w, r, builder.Error(requestID), "")
}

func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, message string, status int) {
	sendJSON(w, status, map[string]string{"error": message})
}
