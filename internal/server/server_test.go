package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/content-curator/internal/config"
	"github.com/jonathan/content-curator/internal/db"
	"github.com/jonathan/content-curator/internal/ledger"
	"github.com/jonathan/content-curator/internal/logging"
	"github.com/jonathan/content-curator/internal/metrics"
	"github.com/jonathan/content-curator/internal/pipeline"
	"github.com/jonathan/content-curator/internal/types"
)

type fakeRunner struct {
	mu   sync.Mutex
	opts []pipeline.RunOptions
}

func (f *fakeRunner) Run(_ context.Context, opts pipeline.RunOptions) *types.RunResult {
	f.mu.Lock()
	f.opts = append(f.opts, opts)
	f.mu.Unlock()

	for _, state := range []types.RunState{types.StateScraping, types.StateDeduplicating} {
		ev := pipeline.ProgressEvent{RunID: "run-1", State: state}
		if opts.OnProgress != nil {
			opts.OnProgress(ev)
		}
		if opts.Events != nil {
			opts.Events <- ev
		}
	}
	return &types.RunResult{
		RunID:        "run-1",
		Status:       types.RunStatusSuccess,
		State:        types.StateNoNewArticles,
		ScrapedCount: 2,
	}
}

func (f *fakeRunner) last() pipeline.RunOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opts[len(f.opts)-1]
}

type fakeHistory struct {
	runs map[uuid.UUID]db.Run
	err  error
}

func (h *fakeHistory) GetRun(_ context.Context, id uuid.UUID) (*db.Run, error) {
	if h.err != nil {
		return nil, h.err
	}
	run, ok := h.runs[id]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

func (h *fakeHistory) ListRuns(_ context.Context, f db.RunFilters) ([]db.Run, error) {
	if h.err != nil {
		return nil, h.err
	}
	var out []db.Run
	for _, run := range h.runs {
		if f.Status == "" || run.Status == f.Status {
			out = append(out, run)
		}
	}
	return out, nil
}

type testServer struct {
	*Server
	runner  *fakeRunner
	ledger  ledger.Ledger
	handler http.Handler
}

func newTestServer(t *testing.T, cfg Config, history RunHistory) *testServer {
	t.Helper()
	l, err := ledger.OpenFile(filepath.Join(t.TempDir(), "ledger.txt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	runner := &fakeRunner{}
	s, err := New(cfg, Deps{
		Runner:  runner,
		History: history,
		Ledger:  l,
		Metrics: metrics.New(),
		Logger:  logging.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(s.rateLimiter.Stop)
	return &testServer{Server: s, runner: runner, ledger: l, handler: s.Handler()}
}

func (ts *testServer) do(method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestNew_RequiresRunnerAndLedger(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)
	require.NoError(t, ts.ledger.Append(context.Background(), "https://a.example/x"))

	rec := ts.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, float64(1), resp["ledger_entries"])
}

func TestRunEndpoint(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)

	rec := ts.do(http.MethodPost, "/runs", `{"criterion":" robotics ","sources":["https://a.example"]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res types.RunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, types.StateNoNewArticles, res.State)
	assert.Equal(t, 2, res.ScrapedCount)

	opts := ts.runner.last()
	assert.Equal(t, "robotics", opts.Criterion)
	assert.Equal(t, []string{"https://a.example"}, opts.Sources)
}

func TestRunEndpoint_EmptyBodyUsesDefaults(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)

	rec := ts.do(http.MethodPost, "/runs", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, ts.runner.last().Sources)
}

func TestRunEndpoint_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"unknown field", `{"job_url":"x"}`},
		{"bad source", `{"sources":["not a url"]}`},
		{"long criterion", `{"criterion":"` + strings.Repeat("x", 201) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, Config{}, nil)
			rec := ts.do(http.MethodPost, "/runs", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, ts.runner.opts)
		})
	}
}

func TestRunEndpoint_RequiresTokenWhenConfigured(t *testing.T) {
	jwtCfg := &config.JWTConfig{Secret: testSecret, ExpirationHours: 1}
	ts := newTestServer(t, Config{JWT: jwtCfg}, nil)

	rec := ts.do(http.MethodPost, "/runs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := NewTokenService(jwtCfg).GenerateToken("scheduler")
	require.NoError(t, err)
	rec = ts.do(http.MethodPost, "/runs", "", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, rec.Code)

	// reads stay open
	rec = ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRunStreamEndpoint(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)

	rec := ts.do(http.MethodPost, "/runs/stream", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Equal(t, 2, strings.Count(body, "event: progress"))
	assert.Contains(t, body, `"state":"scraping"`)
	require.Contains(t, body, "event: complete")
	assert.Greater(t, strings.Index(body, "event: complete"), strings.LastIndex(body, "event: progress"))
}

func TestLedgerLookup(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)
	require.NoError(t, ts.ledger.Append(context.Background(), "https://a.example/post"))

	tests := []struct {
		name       string
		id         string
		wantStatus int
		processed  bool
	}{
		{"exact", "https://a.example/post", http.StatusOK, true},
		{"unnormalized", "HTTPS://A.example/post/#top", http.StatusOK, true},
		{"unknown", "https://a.example/other", http.StatusOK, false},
		{"missing", "", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodGet, "/ledger?id="+url.QueryEscape(tt.id), "", nil)
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp LedgerResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.processed, resp.Processed)
			assert.Equal(t, tt.id, resp.Identity)
		})
	}
}

func TestRunHistoryEndpoints(t *testing.T) {
	id := uuid.New()
	done := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	history := &fakeHistory{runs: map[uuid.UUID]db.Run{
		id: {ID: id, Status: "success", State: "done", SelectedTitle: "A", StartedAt: done.Add(-time.Minute), CompletedAt: &done},
	}}
	ts := newTestServer(t, Config{}, history)

	rec := ts.do(http.MethodGet, "/runs?status=success&limit=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Runs  []RunSummary `json:"runs"`
		Count int          `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, id.String(), list.Runs[0].RunID)
	require.NotNil(t, list.Runs[0].CompletedAt)

	rec = ts.do(http.MethodGet, "/runs/"+id.String(), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/runs/"+uuid.New().String(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/runs/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/runs?limit=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	history.err = errors.New("connection refused")
	rec = ts.do(http.MethodGet, "/runs", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRunHistory_Unconfigured(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)
	rec := ts.do(http.MethodGet, "/runs", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)
	ts.do(http.MethodGet, "/health", "", nil)

	rec := ts.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "curator_http_requests_total")
}

func TestCORSMiddleware(t *testing.T) {
	ts := newTestServer(t, Config{}, nil)

	rec := ts.do(http.MethodOptions, "/runs", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Empty(t, ts.runner.opts)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, Config{RateLimit: 1}, nil)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, ts.do(http.MethodPost, "/runs", "", nil).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	rec := ts.do(http.MethodPost, "/runs", "", nil)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestSSEWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := NewSSEWriter(rec)
	require.NoError(t, err)

	require.NoError(t, sse.WriteEvent("progress", map[string]string{"state": "scraping"}))
	require.NoError(t, sse.WriteError("boom"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: progress\ndata: {\"state\":\"scraping\"}\n\n")
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte("event: error")))
}
