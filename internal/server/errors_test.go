package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
		want    int
	}{
		{"validation", &ErrValidation{Field: "sources", Message: "too many"}, "validation error: sources - too many", http.StatusBadRequest},
		{"not found", &ErrNotFound{Resource: "run", ID: "abc"}, "run not found: abc", http.StatusNotFound},
		{"unavailable", &ErrUnavailable{Feature: "run history"}, "run history is not configured", http.StatusServiceUnavailable},
		{"wrapped", fmt.Errorf("lookup: %w", &ErrNotFound{Resource: "run", ID: "x"}), "lookup: run not found: x", http.StatusNotFound},
		{"other", errors.New("boom"), "boom", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
