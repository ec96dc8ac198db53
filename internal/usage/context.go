package usage

import "context"

type trackerKey struct{}

// NewContext returns ctx carrying t. Recorder routes usage reported under
// ctx to t.
func NewContext(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// FromContext returns the tracker carried by ctx, or nil.
func FromContext(ctx context.Context) *Tracker {
	t, _ := ctx.Value(trackerKey{}).(*Tracker)
	return t
}

// TokenSink receives token counts alongside the run tracker.
type TokenSink interface {
	RecordTokens(ctx context.Context, model string, input, output int)
}

// Recorder is a process-wide usage recorder handed to long-lived clients.
// It forwards to the run tracker found in the call's context and to an
// optional sink such as the metrics registry.
type Recorder struct {
	Sink TokenSink
}

// RecordTokens implements llm.UsageRecorder.
func (r *Recorder) RecordTokens(ctx context.Context, model string, input, output int) {
	if t := FromContext(ctx); t != nil {
		t.RecordTokens(ctx, model, input, output)
	}
	if r != nil && r.Sink != nil {
		r.Sink.RecordTokens(ctx, model, input, output)
	}
}

// RecordScrape implements scrape.CallRecorder.
func (r *Recorder) RecordScrape(ctx context.Context, kind string, urls int) {
	if t := FromContext(ctx); t != nil {
		t.RecordScrape(ctx, kind, urls)
	}
}

// RecordImage implements imagegen.RenderRecorder.
func (r *Recorder) RecordImage(ctx context.Context) {
	if t := FromContext(ctx); t != nil {
		t.RecordImage(ctx)
	}
}
