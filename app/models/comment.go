package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// fieldLabels maps JSON field names to the labels shown next to form inputs.
var fieldLabels = map[string]string{
	"_id":     "Post",
	"name":    "Name",
	"email":   "Email",
	"comment": "Comment",
}

// ValidationError carries one message per rejected field, keyed by the
// field's JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, e.Fields[name])
	}
	return "invalid comment: " + strings.Join(msgs, "; ")
}

// Normalize trims surrounding whitespace so blank input counts as missing.
func (s *CommentSubmission) Normalize() {
	s.PostID = strings.TrimSpace(s.PostID)
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.Comment = strings.TrimSpace(s.Comment)
}

// Validate checks the submission and returns a *ValidationError listing every
// rejected field.
func (s *CommentSubmission) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s Field is required", label)
	case "email":
		return fmt.Sprintf("The %s Field must be a valid email address", label)
	case "max":
		return fmt.Sprintf("The %s Field must be at most %s characters", label, fe.Param())
	default:
		return fmt.Sprintf("The %s Field is invalid", label)
	}
}

// ToComment builds the record written to the CMS. New comments always start
// unapproved.
func (s *CommentSubmission) ToComment() *Comment {
	return &Comment{
		Type:     "comment",
		Name:     s.Name,
		Email:    s.Email,
		Comment:  s.Comment,
		Post:     Reference{Ref: s.PostID, Type: "reference"},
		Approved: false,
	}
}
