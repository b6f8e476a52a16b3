package controllers

import (
	"net/http"

	"mediumplus/app/cache"
	"mediumplus/app/pages"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// PostController serves the listing and detail pages.
type PostController struct {
	pages  *pages.Builder
	regen  *cache.Regenerator
	logger *zap.Logger
}

func NewPostController(builder *pages.Builder, regen *cache.Regenerator, logger *zap.Logger) *PostController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostController{
		pages:  builder,
		regen:  regen,
		logger: logger.Named("posts"),
	}
}

// Index renders every post on each request.
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) {
	page, err := pc.pages.Listing(r.Context())
	if err != nil {
		sendErrorPage(w, r, pc.pages, pc.logger, err)
		return
	}
	sendPage(w, r, page, "")
}

// Show serves a post from the page store, building it on first request.
func (pc *PostController) Show(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	page, state, err := pc.regen.Serve(r.Context(), pages.CacheKey(slug), pc.pages.Detail(slug))
	if err != nil {
		sendErrorPage(w, r, pc.pages, pc.logger, err)
		return
	}
	w.Header().Set("X-Cache", string(state))
	sendPage(w, r, page, sharedCacheControl(pc.regen.Window()))
}

// NotFound renders the not-found page for unmatched routes.
func (pc *PostController) NotFound(w http.ResponseWriter, r *http.Request) {
	page, err := pc.pages.NotFound()
	if err != nil {
		sendErrorPage(w, r, pc.pages, pc.logger, err)
		return
	}
	sendPage(w, r, page, "")
}
