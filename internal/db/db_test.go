package db

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/content-curator/internal/types"
)

func TestListRunsQuery(t *testing.T) {
	tests := []struct {
		name      string
		filters   RunFilters
		wantWhere string
		wantArgs  []any
		wantLimit string
	}{
		{
			name:      "no filters uses default limit",
			filters:   RunFilters{},
			wantLimit: "LIMIT 50",
		},
		{
			name:      "status filter",
			filters:   RunFilters{Status: "error", Limit: 5},
			wantWhere: "WHERE status = $1",
			wantArgs:  []any{"error"},
			wantLimit: "LIMIT 5",
		},
		{
			name:      "status and state",
			filters:   RunFilters{Status: "success", State: "no_new_articles", Limit: 10},
			wantWhere: "WHERE status = $1 AND state = $2",
			wantArgs:  []any{"success", "no_new_articles"},
			wantLimit: "LIMIT 10",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := listRunsQuery(tt.filters)
			require.NoError(t, err)
			assert.Contains(t, query, "FROM runs")
			assert.Contains(t, query, "ORDER BY started_at DESC")
			assert.Contains(t, query, tt.wantLimit)
			if tt.wantWhere == "" {
				assert.NotContains(t, query, "WHERE")
				assert.Empty(t, args)
			} else {
				assert.Contains(t, query, tt.wantWhere)
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestRunFromResult(t *testing.T) {
	id := uuid.New()
	started := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	done := started.Add(time.Minute)
	res := &types.RunResult{
		RunID:            id.String(),
		Status:           types.RunStatusSuccess,
		State:            types.StateDone,
		ScrapedCount:     3,
		NewCount:         2,
		SelectedTitle:    "Agents",
		Selected:         &types.SelectedArticle{Title: "Agents", Link: "https://a/agents"},
		ArtifactLocation: "outputs/2026-10-17/social_posts_x.json",
		StartedAt:        started,
	}

	run, err := RunFromResult(res, "AI", done)
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
	assert.Equal(t, "success", run.Status)
	assert.Equal(t, "done", run.State)
	assert.Equal(t, "https://a/agents", run.SelectedLink)
	require.NotNil(t, run.CompletedAt)
	assert.Equal(t, done, *run.CompletedAt)

	_, err = RunFromResult(&types.RunResult{RunID: "not-a-uuid"}, "", done)
	assert.Error(t, err)
}
