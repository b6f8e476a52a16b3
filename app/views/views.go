// Package views holds the embedded HTML templates and static assets.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"time"

	"mediumplus/app/models"
	"mediumplus/app/render"
)

//go:embed templates static
var files embed.FS

// Template names accepted by Render.
const (
	Index    = "index"
	Show     = "show"
	NotFound = "not_found"
	Error    = "error"
)

var pages = map[string]string{
	Index:    "templates/posts/index.html",
	Show:     "templates/posts/show.html",
	NotFound: "templates/errors/not_found.html",
	Error:    "templates/errors/error.html",
}

// IndexData feeds the listing page.
type IndexData struct {
	Title string
	Posts []*models.Post
}

// FormState is the comment form as last submitted.
type FormState struct {
	Values    models.CommentSubmission
	Errors    map[string]string
	Submitted bool
	Failed    bool
}

// ShowData feeds the post page.
type ShowData struct {
	Title    string
	Post     *models.Post
	Comments []models.Comment
	Form     FormState
}

type ErrorData struct {
	Title     string
	RequestID string
}

type Views struct {
	templates map[string]*template.Template
}

// New parses every page template against the shared layout.
func New(renderer *render.Renderer) (*Views, error) {
	funcs := template.FuncMap{
		"richText": renderer.Render,
		"imageURL": renderer.Images().URL,
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("Jan 2, 2006")
		},
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, page := range pages {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(files,
			"templates/layout.html",
			"templates/header.html",
			page,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		templates[name] = tmpl
	}
	return &Views{templates: templates}, nil
}

// Render executes the named page inside the layout.
func (v *Views) Render(w io.Writer, name string, data any) error {
	tmpl, ok := v.templates[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

// Static serves the embedded stylesheet and other assets.
func Static() http.Handler {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
