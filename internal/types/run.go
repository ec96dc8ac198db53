package types

import "time"

// RunStatus is the caller-facing status of a run.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusError   RunStatus = "error"
)

// RunState is the orchestrator state a run is in or finished in.
type RunState string

const (
	StatePending       RunState = "pending"
	StateScraping      RunState = "scraping"
	StateDeduplicating RunState = "deduplicating"
	StateSelecting     RunState = "selecting"
	StateEnriching     RunState = "enriching"
	StateGenerating    RunState = "generating"
	StateIllustrating  RunState = "illustrating"
	StatePersisting    RunState = "persisting"
	StateDone          RunState = "done"
	StateNoArticles    RunState = "no_articles"
	StateNoNewArticles RunState = "no_new_articles"
	StateFailed        RunState = "failed"
)

// Terminal reports whether no further transitions follow s.
func (s RunState) Terminal() bool {
	switch s {
	case StateDone, StateNoArticles, StateNoNewArticles, StateFailed:
		return true
	}
	return false
}

// SelectedArticle is the summary of the chosen candidate reported in a RunResult.
type SelectedArticle struct {
	Title  string `json:"title"`
	Link   string `json:"link"`
	Author string `json:"author,omitempty"`
	Date   string `json:"date,omitempty"`
}

// RunResult is the structured summary every run returns, whatever happened.
type RunResult struct {
	RunID            string           `json:"run_id"`
	Status           RunStatus        `json:"status"`
	State            RunState         `json:"state"`
	Message          string           `json:"message,omitempty"`
	ScrapedCount     int              `json:"scraped_articles"`
	NewCount         int              `json:"new_articles"`
	SelectedTitle    string           `json:"selected_title,omitempty"`
	Selected         *SelectedArticle `json:"selected_article,omitempty"`
	SocialPosts      *SocialPosts     `json:"social_posts,omitempty"`
	ImagePath        string           `json:"image_path,omitempty"`
	ArtifactLocation string           `json:"output_path,omitempty"`
	ExecutionTime    float64          `json:"execution_time"`
	StartedAt        time.Time        `json:"started_at"`
	Usage            any              `json:"usage,omitempty"`
}

// WorkflowRun is the in-memory aggregate owned by one run for its duration.
type WorkflowRun struct {
	ID         string
	Criterion  string
	Scraped    []Candidate
	Fresh      []Candidate
	Selected   *Candidate
	Posts      *SocialPosts
	ImagePath  string
	Status     string
	State      RunState
	StartedAt  time.Time
	FinishedAt time.Time
}

// Workflow status values.
const (
	WorkflowPending   = "pending"
	WorkflowCompleted = "completed"
	WorkflowFailed    = "failed"
)
