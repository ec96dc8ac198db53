package imagegen

import "fmt"

// RenderError is a failed image render.
type RenderError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *RenderError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("status %d: %s", e.StatusCode, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("image render failed: %s: %v", msg, e.Cause)
	}
	return "image render failed: " + msg
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}
