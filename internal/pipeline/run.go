// Package pipeline runs one curation workflow end to end: scrape the sources,
// drop already-processed articles, pick one, write about it and record it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/content-curator/internal/artifacts"
	"github.com/jonathan/content-curator/internal/collector"
	"github.com/jonathan/content-curator/internal/config"
	"github.com/jonathan/content-curator/internal/db"
	"github.com/jonathan/content-curator/internal/enrich"
	"github.com/jonathan/content-curator/internal/imagegen"
	"github.com/jonathan/content-curator/internal/ledger"
	"github.com/jonathan/content-curator/internal/llm"
	"github.com/jonathan/content-curator/internal/metrics"
	"github.com/jonathan/content-curator/internal/pipeline/steps"
	"github.com/jonathan/content-curator/internal/publish"
	"github.com/jonathan/content-curator/internal/scrape"
	"github.com/jonathan/content-curator/internal/selection"
	"github.com/jonathan/content-curator/internal/social"
	"github.com/jonathan/content-curator/internal/types"
	"github.com/jonathan/content-curator/internal/usage"
)

// ProgressEvent represents a progress update during a run.
type ProgressEvent struct {
	RunID    string         `json:"run_id"`
	State    types.RunState `json:"state"`
	Fraction float64        `json:"progress"`
	Message  string         `json:"message"`
	Step     int            `json:"step,omitempty"`
	Total    int            `json:"total,omitempty"`
}

// ProgressCallback is called when a run enters a new state.
type ProgressCallback func(event ProgressEvent)

// RunOptions holds per-run overrides and hooks.
type RunOptions struct {
	// Sources and Criterion replace the configured values when set.
	Sources   []string
	Criterion string

	OnProgress ProgressCallback
	// Events receives the same updates as OnProgress. Sends never block;
	// a full channel drops the update.
	Events chan<- ProgressEvent
}

// RunStore records finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, run db.Run) error
}

// Deps are the long-lived collaborators an Orchestrator drives. Scraper,
// LLM and Ledger are required; everything else is optional.
type Deps struct {
	Scraper   scrape.Scraper
	LLM       llm.Client
	Ledger    ledger.Ledger
	Renderer  imagegen.Renderer // nil disables the image stage
	Mirror    artifacts.Mirror
	History   RunStore
	Publisher publish.Publisher
	Metrics   *metrics.Metrics
	Logger    *logrus.Logger
	// Out receives the human-readable "Step N/M" lines.
	Out io.Writer
	// BillableScrapes marks scrape calls as paid in the usage summary.
	BillableScrapes bool
	Now             func() time.Time
}

// Orchestrator sequences the stages of a run. It is safe to call Run from
// several goroutines; each run owns its own WorkflowRun.
type Orchestrator struct {
	cfg  config.Config
	deps Deps

	collector   *collector.Collector
	selector    *selection.Selector
	enricher    *enrich.Enricher
	generator   *social.Generator
	prompter    *imagegen.Prompter
	illustrator *imagegen.Illustrator
	persister   *artifacts.Persister
}

// New wires the stage components from cfg and deps.
func New(cfg config.Config, deps Deps) *Orchestrator {
	if deps.Out == nil {
		deps.Out = io.Discard
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
		deps.Logger.SetOutput(io.Discard)
	}
	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = artifacts.DefaultRoot
	}

	return &Orchestrator{
		cfg:  cfg,
		deps: deps,
		collector: collector.New(deps.Scraper, collector.Options{
			MaxRetries:  cfg.Collector.MaxRetries,
			Concurrency: cfg.Collector.Concurrency,
			Hint:        cfg.Criterion,
			Identity:    cfg.IdentityStrategy(),
		}, deps.Logger, deps.Metrics),
		selector:    selection.New(deps.LLM, deps.Logger),
		enricher:    enrich.New(deps.Scraper, deps.Logger),
		generator:   social.New(deps.LLM, deps.Logger),
		prompter:    imagegen.NewPrompter(deps.LLM, deps.Logger),
		illustrator: imagegen.NewIllustrator(deps.Renderer, deps.Logger),
		persister:   artifacts.NewPersister(outputDir, deps.Mirror, deps.Logger),
	}
}

// runner holds the state of one in-flight run.
type runner struct {
	o       *Orchestrator
	opts    RunOptions
	wf      *types.WorkflowRun
	res     *types.RunResult
	tracker *usage.Tracker
	log     *logrus.Entry

	sources   []string
	criterion string
}

// Run executes one workflow. It never returns nil and never panics; every
// failure is reported through the result's Status, State and Message.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (res *types.RunResult) {
	started := o.deps.Now()
	runID := uuid.New().String()
	sources, criterion := o.cfg.Sources, o.cfg.Criterion
	if len(opts.Sources) > 0 {
		sources = opts.Sources
	}
	if opts.Criterion != "" {
		criterion = opts.Criterion
	}
	r := &runner{
		o:         o,
		opts:      opts,
		sources:   sources,
		criterion: criterion,
		wf: &types.WorkflowRun{
			ID:        runID,
			Criterion: criterion,
			Status:    types.WorkflowPending,
			State:     types.StatePending,
			StartedAt: started,
		},
		res: &types.RunResult{
			RunID:     runID,
			Status:    types.RunStatusError,
			State:     types.StatePending,
			StartedAt: started,
		},
		tracker: usage.NewTracker(o.deps.BillableScrapes),
		log:     o.deps.Logger.WithField("run_id", runID),
	}
	ctx = usage.NewContext(ctx, r.tracker)

	defer func() {
		if p := recover(); p != nil {
			r.fail(fmt.Errorf("panic: %v", p))
		}
		r.finish(ctx)
		res = r.res
	}()

	r.log.WithFields(logrus.Fields{"sources": len(sources), "criterion": criterion}).
		Info("Starting content curation workflow")
	r.execute(ctx)
	return r.res
}

func (r *runner) execute(ctx context.Context) {
	o := r.o

	r.enter(types.StateScraping, "")
	r.wf.Scraped = o.collector.Collect(ctx, r.sources)
	r.res.ScrapedCount = len(r.wf.Scraped)
	if len(r.wf.Scraped) == 0 {
		r.stage("scrape", types.OutcomeFatal)
		r.end(types.StateNoArticles, types.RunStatusError, "No articles found during scraping")
		return
	}
	r.stage("scrape", types.OutcomeOk)

	r.enter(types.StateDeduplicating, fmt.Sprintf("Found %d articles", len(r.wf.Scraped)))
	fresh, err := r.filterFresh(ctx, r.wf.Scraped)
	if err != nil {
		r.stage("dedup", types.OutcomeFatal)
		r.fail(fmt.Errorf("ledger lookup failed: %w", err))
		return
	}
	r.wf.Fresh = fresh
	r.res.NewCount = len(fresh)
	r.stage("dedup", types.OutcomeOk)
	if len(fresh) == 0 {
		r.end(types.StateNoNewArticles, types.RunStatusSuccess, "No new articles found. All articles have been processed already.")
		return
	}

	r.enter(types.StateSelecting, fmt.Sprintf("%d new articles", len(fresh)))
	sel := o.selector.Select(ctx, fresh, r.criterion)
	r.stage("select", sel.Kind)
	if sel.IsFatal() {
		r.fail(sel.Err)
		return
	}
	chosen := sel.Value
	r.wf.Selected = &chosen
	r.res.SelectedTitle = chosen.Title
	r.res.Selected = &types.SelectedArticle{
		Title:  chosen.Title,
		Link:   chosen.Link,
		Author: chosen.Author,
		Date:   chosen.PublishedAt,
	}

	r.enter(types.StateEnriching, chosen.Title)
	enriched := o.enricher.Enrich(ctx, chosen)
	r.stage("enrich", enriched.Kind)
	chosen = enriched.Value
	r.wf.Selected = &chosen

	r.enter(types.StateGenerating, "")
	gen := o.generator.Generate(ctx, chosen, r.criterion)
	r.stage("generate", gen.Kind)
	posts := gen.Value

	r.enter(types.StateIllustrating, "")
	prompt := o.prompter.PromptFor(ctx, posts.LinkedIn, o.cfg.ImageStyle, r.criterion)
	r.stage("image_prompt", prompt.Kind)
	posts.ImagePrompt = prompt.Value
	r.wf.Posts = &posts
	r.res.SocialPosts = &posts

	if o.illustrator.Enabled() {
		img := o.illustrator.Illustrate(ctx, posts.ImagePrompt, o.persister.DayDir(r.wf.StartedAt))
		r.stage("image", img.Kind)
		r.wf.ImagePath = img.Value
		r.res.ImagePath = img.Value
	} else {
		r.log.Debug("Image rendering disabled")
	}

	r.enter(types.StatePersisting, "")
	loc, err := o.persister.Persist(ctx, r.wf.StartedAt, chosen, posts, r.wf.ImagePath, artifacts.Meta{
		RunID:     r.wf.ID,
		Criterion: r.criterion,
	})
	if err != nil {
		r.stage("persist", types.OutcomeFatal)
		r.fail(fmt.Errorf("failed to save outputs: %w", err))
		return
	}
	r.res.ArtifactLocation = loc.Snapshot
	r.stage("persist", types.OutcomeOk)

	err = o.deps.Ledger.Append(ctx, string(chosen.Identity))
	o.deps.Metrics.LedgerAppend(err)
	if err != nil {
		// outputs exist on disk; the article may be picked again next run
		r.fail(fmt.Errorf("failed to record article in ledger: %w", err))
		return
	}

	r.end(types.StateDone, types.RunStatusSuccess, "Workflow completed successfully")
}

// filterFresh keeps candidates whose identity the ledger has not seen,
// preserving order.
func (r *runner) filterFresh(ctx context.Context, cands []types.Candidate) ([]types.Candidate, error) {
	fresh := make([]types.Candidate, 0, len(cands))
	for _, c := range cands {
		seen, err := r.o.deps.Ledger.Contains(ctx, string(c.Identity))
		if err != nil {
			return nil, err
		}
		if seen {
			r.log.WithField("identity", c.Identity).Debug("Skipping processed article")
			continue
		}
		fresh = append(fresh, c)
	}
	return fresh, nil
}

func (r *runner) enter(state types.RunState, detail string) {
	if err := steps.ValidateTransition(r.wf.State, state); err != nil {
		r.log.WithError(err).Warn("Unexpected state transition")
	}
	r.wf.State = state
	r.res.State = state

	def, _ := steps.Lookup(state)
	msg := def.Label
	if detail != "" {
		msg = def.Label + ": " + detail
	}
	if def.Number > 0 {
		_, _ = fmt.Fprintf(r.o.deps.Out, "Step %d/%d: %s...\n", def.Number, steps.Total, msg)
	}
	r.log.WithField("state", state).Info(msg)
	r.emit(ProgressEvent{
		RunID:    r.wf.ID,
		State:    state,
		Fraction: def.Fraction,
		Message:  msg,
		Step:     def.Number,
		Total:    steps.Total,
	})
}

func (r *runner) emit(ev ProgressEvent) {
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(ev)
	}
	if r.opts.Events != nil {
		select {
		case r.opts.Events <- ev:
		default:
		}
	}
}

func (r *runner) stage(name string, kind types.OutcomeKind) {
	r.o.deps.Metrics.StageOutcome(name, kind.String())
}

// end moves the run into a terminal state.
func (r *runner) end(state types.RunState, status types.RunStatus, message string) {
	r.wf.State = state
	r.res.State = state
	r.res.Status = status
	r.res.Message = message
	if status == types.RunStatusSuccess {
		r.wf.Status = types.WorkflowCompleted
	} else {
		r.wf.Status = types.WorkflowFailed
	}

	def, _ := steps.Lookup(state)
	r.emit(ProgressEvent{RunID: r.wf.ID, State: state, Fraction: def.Fraction, Message: message})
}

func (r *runner) fail(err error) {
	if r.res.State.Terminal() {
		return
	}
	r.log.WithError(err).WithField("state", r.wf.State).Error("Workflow failed")
	r.end(types.StateFailed, types.RunStatusError, err.Error())
}

// finish stamps timing and usage and hands the result to the optional
// history store and event publisher. Neither can change the outcome.
func (r *runner) finish(ctx context.Context) {
	o := r.o
	if !r.res.State.Terminal() {
		r.fail(errors.New("workflow stopped before completion"))
	}

	r.wf.FinishedAt = o.deps.Now()
	took := r.wf.FinishedAt.Sub(r.wf.StartedAt)
	r.res.ExecutionTime = took.Seconds()
	r.tracker.Finish()
	r.res.Usage = r.tracker.Summary()
	o.deps.Metrics.RunFinished(string(r.res.State), took)

	// a cancelled run is still worth recording
	ctx = context.WithoutCancel(ctx)

	if o.deps.History != nil {
		run, err := db.RunFromResult(r.res, r.criterion, r.wf.FinishedAt)
		if err == nil {
			err = o.deps.History.SaveRun(ctx, run)
		}
		if err != nil {
			r.log.WithError(err).Warn("Failed to save run history")
		}
	}
	if o.deps.Publisher != nil {
		if err := o.deps.Publisher.PublishRun(ctx, publish.NewRunEvent(r.res, r.wf.FinishedAt)); err != nil {
			r.log.WithError(err).Warn("Failed to publish run event")
		}
	}

	r.log.WithFields(logrus.Fields{
		"state":    r.res.State,
		"status":   r.res.Status,
		"scraped":  r.res.ScrapedCount,
		"new":      r.res.NewCount,
		"duration": took.Round(time.Millisecond),
	}).Info("Workflow finished")
}
