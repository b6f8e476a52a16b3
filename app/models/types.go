package models

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports field errors under their JSON names so they line up
// with the comment form and API payload.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Post is a blog article as stored in the CMS.
type Post struct {
	ID          string    `json:"_id"`
	CreatedAt   time.Time `json:"_createdAt"`
	Title       string    `json:"title"`
	Author      Author    `json:"author"`
	Description string    `json:"description"`
	MainImage   Image     `json:"mainImage"`
	Slug        Slug      `json:"slug"`
	Body        Body      `json:"body,omitempty"`
	Comments    []Comment `json:"comments,omitempty"`
}

// Author is referenced by a Post and owned by the CMS.
type Author struct {
	Name  string `json:"name"`
	Image Image  `json:"image"`
}

// Image points at an asset in the CMS asset pipeline. URL is only populated
// when the query dereferences the asset.
type Image struct {
	Asset Asset  `json:"asset"`
	Alt   string `json:"alt,omitempty"`
}

type Asset struct {
	ID  string `json:"_id,omitempty"`
	Ref string `json:"_ref,omitempty"`
	URL string `json:"url,omitempty"`
}

// Slug is the URL-safe unique key of a post.
type Slug struct {
	Current string `json:"current"`
}

// Reference links one CMS document to another.
type Reference struct {
	Ref  string `json:"_ref"`
	Type string `json:"_type"`
}

// Comment is a reader comment on a post. Only approved comments are shown.
type Comment struct {
	ID        string    `json:"_id,omitempty"`
	CreatedAt time.Time `json:"_createdAt"`
	UpdatedAt time.Time `json:"_updatedAt"`
	Rev       string    `json:"_rev,omitempty"`
	Type      string    `json:"_type,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Comment   string    `json:"comment"`
	Post      Reference `json:"post"`
	Approved  bool      `json:"approved"`
}

// CommentSubmission is the payload a reader sends from the comment form.
type CommentSubmission struct {
	PostID  string `json:"_id" validate:"required"`
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Comment string `json:"comment" validate:"required,max=5000"`
}
