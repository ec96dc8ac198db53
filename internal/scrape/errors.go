package scrape

import (
	"fmt"
	"strings"

	"github.com/jonathan/content-curator/internal/schemas"
)

// SourceError is a failed scrape of one source URL.
type SourceError struct {
	URL     string
	Message string
	Cause   error
}

func (e *SourceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("scrape %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("scrape %s: %s", e.URL, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Cause
}

// SchemaError is a scrape that returned data not matching the requested schema.
type SchemaError struct {
	URL    string
	Schema string
	Fields []schemas.FieldError
	Cause  error
}

func (e *SchemaError) Error() string {
	var parts []string
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	msg := strings.Join(parts, "; ")
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	return fmt.Sprintf("scrape %s: record does not match %s schema: %s", e.URL, e.Schema, msg)
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}
