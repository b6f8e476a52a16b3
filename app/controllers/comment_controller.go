package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"mediumplus/app/models"
	"mediumplus/app/pages"
	"mediumplus/app/services"
	"mediumplus/app/views"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxCommentBody = 64 << 10

// CommentController accepts comment submissions from the post page form and
// from the JSON API.
type CommentController struct {
	comments *services.CommentService
	pages    *pages.Builder
	logger   *zap.Logger
}

func NewCommentController(comments *services.CommentService, builder *pages.Builder, logger *zap.Logger) *CommentController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentController{
		comments: comments,
		pages:    builder,
		logger:   logger.Named("comments"),
	}
}

// Create handles the form on a post page and re-renders that page with the
// outcome.
func (cc *CommentController) Create(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	r.Body = http.MaxBytesReader(w, r.Body, maxCommentBody)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	sub := &models.CommentSubmission{
		PostID:  r.PostFormValue("_id"),
		Name:    r.PostFormValue("name"),
		Email:   r.PostFormValue("email"),
		Comment: r.PostFormValue("comment"),
	}

	form := views.FormState{Submitted: true}
	status := http.StatusOK

	_, err := cc.comments.Submit(r.Context(), sub)
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		form = views.FormState{Values: *sub, Errors: verr.Fields}
		status = http.StatusUnprocessableEntity
	case err != nil:
		form = views.FormState{Values: *sub, Failed: true}
		status = http.StatusInternalServerError
	}

	page, err := cc.pages.DetailWithForm(r.Context(), slug, form, status)
	if err != nil {
		sendErrorPage(w, r, cc.pages, cc.logger, err)
		return
	}
	sendPage(w, r, page, "")
}

// CreateAPI handles POST /api/createComment.
func (cc *CommentController) CreateAPI(w http.ResponseWriter, r *http.Request) {
	var sub models.CommentSubmission
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommentBody))
	if err := dec.Decode(&sub); err != nil {
		sendError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	_, err := cc.comments.Submit(r.Context(), &sub)
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		sendJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  verr.Error(),
			"fields": verr.Fields,
		})
	case err != nil:
		sendError(w, "Couldn't submit comment", http.StatusInternalServerError)
	default:
		sendJSON(w, http.StatusOK, map[string]string{"message": "Comment submitted"})
	}
}

// MethodNotAllowed answers API requests with the wrong verb.
func (cc *CommentController) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
}
