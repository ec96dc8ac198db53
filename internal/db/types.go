package db

import (
	"time"

	"github.com/google/uuid"
)

// Run is one row of the run history.
type Run struct {
	ID            uuid.UUID  `json:"id"`
	Status        string     `json:"status"`
	State         string     `json:"state"`
	Criterion     string     `json:"criterion"`
	ScrapedCount  int        `json:"scraped_articles"`
	NewCount      int        `json:"new_articles"`
	SelectedTitle string     `json:"selected_title,omitempty"`
	SelectedLink  string     `json:"selected_link,omitempty"`
	OutputPath    string     `json:"output_path,omitempty"`
	Message       string     `json:"message,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// RunFilters holds optional filters for listing runs.
type RunFilters struct {
	Status string
	State  string
	Limit  int
}

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 50
