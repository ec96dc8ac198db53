package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClaims struct{ subject string }

func (c testClaims) GetSubject() (string, error) { return c.subject, nil }

type testValidator map[string]string

func (v testValidator) ValidateToken(token string) (SubjectGetter, error) {
	subject, ok := v[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return testClaims{subject: subject}, nil
}

func TestAuthMiddleware(t *testing.T) {
	validator := testValidator{"good-token": "scheduler"}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantSubj   string
	}{
		{"valid", "Bearer good-token", http.StatusOK, "scheduler"},
		{"lowercase scheme", "bearer good-token", http.StatusOK, "scheduler"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good-token", http.StatusUnauthorized, ""},
		{"no token", "Bearer", http.StatusUnauthorized, ""},
		{"extra parts", "Bearer good-token extra", http.StatusUnauthorized, ""},
		{"unknown token", "Bearer bad-token", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSubj string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				subj, err := Subject(r)
				require.NoError(t, err)
				gotSubj = subj
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/runs", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			AuthMiddleware(validator)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantSubj, gotSubj)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestSubject_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := Subject(req)
	assert.Error(t, err)
}
