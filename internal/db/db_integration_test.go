package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuns_Integration(t *testing.T) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := Connect(ctx, databaseURL)
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, database.Migrate(ctx))

	id := uuid.New()
	started := time.Now().UTC().Truncate(time.Millisecond)
	run := Run{ID: id, Status: "success", State: "scraping", Criterion: "AI", StartedAt: started}
	require.NoError(t, database.SaveRun(ctx, run))

	done := started.Add(time.Second)
	run.State = "done"
	run.NewCount = 1
	run.CompletedAt = &done
	require.NoError(t, database.SaveRun(ctx, run))

	got, err := database.GetRun(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "done", got.State)
	assert.Equal(t, 1, got.NewCount)

	runs, err := database.ListRuns(ctx, RunFilters{Status: "success", Limit: 100})
	require.NoError(t, err)
	found := false
	for _, r := range runs {
		if r.ID == id {
			found = true
		}
	}
	assert.True(t, found)

	missing, err := database.GetRun(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
