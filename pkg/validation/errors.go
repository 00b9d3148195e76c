package validation

import (
	"sort"
	"strings"

	"github.com/goliatone/go-checkout/pkg/model"
)

// Issue is one field failure in display order.
type Issue struct {
	Field   model.FieldName `json:"field"`
	Message string          `json:"message"`
}

// Errors maps each failing field to its message. Validate returns every
// failure it finds, never just the first.
type Errors struct {
	Fields map[model.FieldName]string
}

func (e *Errors) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation: no errors"
	}
	issues := e.Issues()
	parts := make([]string, 0, len(issues))
	for _, issue := range issues {
		parts = append(parts, string(issue.Field)+": "+issue.Message)
	}
	return "validation: " + strings.Join(parts, "; ")
}

// Issues lists the failures ordered by form position.
func (e *Errors) Issues() []Issue {
	if e == nil {
		return nil
	}
	out := make([]Issue, 0, len(e.Fields))
	for field, msg := range e.Fields {
		out = append(out, Issue{Field: field, Message: msg})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Field.Index() < out[j].Field.Index()
	})
	return out
}

// Has reports whether field failed.
func (e *Errors) Has(field model.FieldName) bool {
	if e == nil {
		return false
	}
	_, ok := e.Fields[field]
	return ok
}

func (e *Errors) add(field model.FieldName, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[model.FieldName]string)
	}
	if _, exists := e.Fields[field]; exists {
		return
	}
	e.Fields[field] = msg
}
