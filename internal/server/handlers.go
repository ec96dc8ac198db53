package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/content-curator/internal/db"
	"github.com/jonathan/content-curator/internal/pipeline"
	"github.com/jonathan/content-curator/internal/types"
)

const maxRequestBody = 64 << 10

// RunRequest is the optional body of POST /runs. Empty fields fall back
// to the configured sources and criterion.
type RunRequest struct {
	Sources   []string `json:"sources,omitempty" validate:"omitempty,max=50,dive,required,url"`
	Criterion string   `json:"criterion,omitempty" validate:"omitempty,max=200"`
}

// LedgerResponse answers GET /ledger.
type LedgerResponse struct {
	Identity  string `json:"identity"`
	Processed bool   `json:"processed"`
}

// RunSummary is one entry of GET /runs.
type RunSummary struct {
	RunID         string  `json:"run_id"`
	Status        string  `json:"status"`
	State         string  `json:"state"`
	Criterion     string  `json:"criterion"`
	ScrapedCount  int     `json:"scraped_articles"`
	NewCount      int     `json:"new_articles"`
	SelectedTitle string  `json:"selected_title,omitempty"`
	SelectedLink  string  `json:"selected_link,omitempty"`
	OutputPath    string  `json:"output_path,omitempty"`
	Message       string  `json:"message,omitempty"`
	StartedAt     string  `json:"started_at"`
	CompletedAt   *string `json:"completed_at,omitempty"`
}

func summarize(run db.Run) RunSummary {
	sum := RunSummary{
		RunID:         run.ID.String(),
		Status:        run.Status,
		State:         run.State,
		Criterion:     run.Criterion,
		ScrapedCount:  run.ScrapedCount,
		NewCount:      run.NewCount,
		SelectedTitle: run.SelectedTitle,
		SelectedLink:  run.SelectedLink,
		OutputPath:    run.OutputPath,
		Message:       run.Message,
		StartedAt:     run.StartedAt.Format(timeLayout),
	}
	if run.CompletedAt != nil {
		done := run.CompletedAt.Format(timeLayout)
		sum.CompletedAt = &done
	}
	return sum
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

// decodeRunRequest reads an optional JSON body.
func (s *Server) decodeRunRequest(r *http.Request) (RunRequest, error) {
	var req RunRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, &ErrValidation{Field: "body", Message: err.Error()}
	}
	req.Criterion = strings.TrimSpace(req.Criterion)

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return req, &ErrValidation{Field: strings.ToLower(fe.Field()), Message: "failed " + fe.Tag() + " check"}
		}
		return req, &ErrValidation{Field: "body", Message: err.Error()}
	}
	return req, nil
}

// runContext detaches the run from the request: a client that hangs up
// drops the result but the run still finishes and records itself.
func runContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeRunRequest(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	res := s.deps.Runner.Run(runContext(r), pipeline.RunOptions{
		Sources:   req.Sources,
		Criterion: req.Criterion,
	})
	s.jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeRunRequest(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	events := make(chan pipeline.ProgressEvent, 32)
	done := make(chan *types.RunResult, 1)
	go func() {
		done <- s.deps.Runner.Run(runContext(r), pipeline.RunOptions{
			Sources:   req.Sources,
			Criterion: req.Criterion,
			Events:    events,
		})
	}()

	clientGone := r.Context().Done()
	for {
		select {
		case ev := <-events:
			if err := sse.WriteEvent("progress", ev); err != nil {
				clientGone = nil
			}
		case res := <-done:
		drain:
			for {
				select {
				case ev := <-events:
					_ = sse.WriteEvent("progress", ev)
				default:
					break drain
				}
			}
			_ = sse.WriteEvent("complete", res)
			return
		case <-clientGone:
			s.logger.Info("Stream client disconnected; run continues")
			return
		}
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.errorResponse(w, &ErrUnavailable{Feature: "run history"})
		return
	}

	filters := db.RunFilters{
		Status: r.URL.Query().Get("status"),
		State:  r.URL.Query().Get("state"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > 500 {
			s.errorResponse(w, &ErrValidation{Field: "limit", Message: "must be between 1 and 500"})
			return
		}
		filters.Limit = limit
	}

	runs, err := s.deps.History.ListRuns(r.Context(), filters)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	out := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		out = append(out, summarize(run))
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": out, "count": len(out)})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.errorResponse(w, &ErrUnavailable{Feature: "run history"})
		return
	}
	id := r.PathValue("id")
	runID, err := uuid.Parse(id)
	if err != nil {
		s.errorResponse(w, &ErrValidation{Field: "id", Message: "invalid run ID format"})
		return
	}
	run, err := s.deps.History.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if run == nil {
		s.errorResponse(w, &ErrNotFound{Resource: "run", ID: id})
		return
	}
	s.jsonResponse(w, http.StatusOK, summarize(*run))
}

// handleLedgerLookup answers GET /ledger?id=<identity>. Identities are
// usually URLs, so they travel in the query string rather than the path.
func (s *Server) handleLedgerLookup(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		s.errorResponse(w, &ErrValidation{Field: "id", Message: "identity is required"})
		return
	}
	processed, err := s.deps.Ledger.Contains(r.Context(), id)
	if err == nil && !processed {
		// callers often paste the raw link rather than its normalized form
		if norm := types.NormalizeLink(id); norm != id && !strings.Contains(id, "|") {
			processed, err = s.deps.Ledger.Contains(r.Context(), norm)
		}
	}
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, LedgerResponse{Identity: id, Processed: processed})
}
