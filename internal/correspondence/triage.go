package correspondence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/content-curator/internal/llm"
	"github.com/jonathan/content-curator/internal/metrics"
)

// ReplyDraft is one produced draft together with what it answers.
type ReplyDraft struct {
	Contact  Contact `json:"-"`
	Email    string  `json:"email"`
	Subject  string  `json:"subject"`
	ThreadID string  `json:"thread_id"`
	Draft    Draft   `json:"draft"`
	Polished bool    `json:"polished"`
}

// Report summarizes one triage pass.
type Report struct {
	Checked    time.Time    `json:"checked_at"`
	Messages   int          `json:"messages"`
	Classified int          `json:"classified"`
	Drafts     []ReplyDraft `json:"drafts"`
	Failures   []string     `json:"failures,omitempty"`
}

// Options configures a Triager.
type Options struct {
	MetadataPath  string
	SpreadsheetID string
	Logger        *logrus.Logger
	Metrics       *metrics.Metrics
	Now           func() time.Time
}

// Triager reads new mail, keeps the CRM current and drafts replies.
type Triager struct {
	mail       MailSource
	crm        CRM
	contexts   *ContextStore
	classifier *Classifier
	drafter    *Drafter
	enhancer   *Enhancer
	opts       Options
	logger     *logrus.Logger
}

// NewTriager wires a Triager around one LLM client.
func NewTriager(mailbox MailSource, crm CRM, contexts *ContextStore, client llm.Client, opts Options) *Triager {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Triager{
		mail:       mailbox,
		crm:        crm,
		contexts:   contexts,
		classifier: NewClassifier(client, opts.Logger),
		drafter:    NewDrafter(client, opts.Logger),
		enhancer:   NewEnhancer(client, opts.Logger),
		opts:       opts,
		logger:     opts.Logger,
	}
}

// Run performs one pass. Per-message failures are recorded in the report
// and do not stop the pass; mail, CRM listing and metadata errors do.
func (t *Triager) Run(ctx context.Context) (*Report, error) {
	now := t.opts.Now().UTC()
	meta, err := LoadMetadata(t.opts.MetadataPath, t.opts.SpreadsheetID, now)
	if err != nil {
		return nil, err
	}
	report := &Report{Checked: now}

	if err := t.classifyPending(ctx, report); err != nil {
		return nil, err
	}

	since := meta.LastCheck()
	msgs, err := t.mail.Since(ctx, since)
	if err != nil {
		return nil, err
	}
	report.Messages = len(msgs)
	t.logger.WithFields(logrus.Fields{"since": since.Format(time.DateTime), "messages": len(msgs)}).Info("Checking inbox")

	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rd, err := t.process(ctx, msg, report)
		if err != nil {
			t.logger.WithError(err).WithField("message_id", msg.ID).Warn("Message skipped")
			report.Failures = append(report.Failures, fmt.Sprintf("%s: %v", msg.ID, err))
			t.opts.Metrics.StageOutcome("triage", "failed")
			continue
		}
		if rd != nil {
			report.Drafts = append(report.Drafts, *rd)
			t.opts.Metrics.StageOutcome("triage", "drafted")
		}
	}

	meta.LastEmailCheck = now.Format(metadataTimeLayout)
	meta.TotalEmailsProcessed += len(msgs)
	meta.TotalDraftsCreated += len(report.Drafts)
	if err := SaveMetadata(t.opts.MetadataPath, meta); err != nil {
		return report, err
	}
	return report, nil
}

// classifyPending types CRM rows added without a type.
func (t *Triager) classifyPending(ctx context.Context, report *Report) error {
	pending, err := t.crm.Pending(ctx)
	if err != nil {
		return err
	}
	for _, c := range pending {
		msg := Message{From: c.Email}
		if history, err := t.mail.Thread(ctx, c.ThreadID); err == nil && len(history) > 0 {
			msg = history[len(history)-1]
		}
		c.Type = t.classifier.Classify(ctx, msg).Value
		c.Status = c.Type.InitialStatus()
		c.LastUpdated = t.opts.Now().UTC()
		if err := t.crm.Update(ctx, c); err != nil {
			report.Failures = append(report.Failures, fmt.Sprintf("%s: %v", c.Email, err))
			continue
		}
		report.Classified++
	}
	return nil
}

func (t *Triager) process(ctx context.Context, msg Message, report *Report) (*ReplyDraft, error) {
	if msg.From == "" {
		return nil, fmt.Errorf("message has no sender")
	}

	contact, err := t.crm.Lookup(ctx, msg.From)
	if err != nil {
		return nil, err
	}
	if contact == nil || contact.Type == "" {
		outcome := t.classifier.Classify(ctx, msg)
		t.opts.Metrics.StageOutcome("classify", outcome.Kind.String())
		c := Contact{Email: msg.From, ThreadID: msg.ThreadID, Type: outcome.Value, Status: outcome.Value.InitialStatus(),
			LastUpdated: t.opts.Now().UTC()}
		if contact == nil {
			if c, err = t.crm.Create(ctx, c); err != nil {
				return nil, err
			}
		} else {
			c.Row, c.Notes = contact.Row, contact.Notes
		}
		contact = &c
		report.Classified++
	}
	if contact.Type == TypeOther {
		// automated and unclassifiable mail gets no reply
		contact.ThreadID = orDefault(msg.ThreadID, contact.ThreadID)
		contact.LastUpdated = t.opts.Now().UTC()
		return nil, t.crm.Update(ctx, *contact)
	}

	history, err := t.mail.Thread(ctx, msg.ThreadID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		history = []Message{msg}
	}

	guidance, err := t.contexts.Assemble(contact.Type, contact.Status)
	if err != nil {
		return nil, err
	}
	draft, err := t.drafter.Draft(ctx, *contact, history, guidance)
	if err != nil {
		return nil, err
	}
	polished := t.enhancer.Enhance(ctx, contact.Type, guidance, draft.Text)
	draft.Text = polished.Value

	updated := *contact
	updated.Status = draft.SuggestedStatus
	updated.ThreadID = orDefault(msg.ThreadID, contact.ThreadID)
	updated.FollowUpDate = draft.FollowUpDate
	updated.LastUpdated = t.opts.Now().UTC()
	updated.Notes = appendNote(contact.Notes, activityNote(updated.LastUpdated, msg.Subject, contact.Status, draft))
	if err := t.crm.Update(ctx, updated); err != nil {
		return nil, err
	}

	return &ReplyDraft{
		Contact:  updated,
		Email:    msg.From,
		Subject:  replySubject(msg.Subject),
		ThreadID: updated.ThreadID,
		Draft:    draft,
		Polished: polished.IsOk(),
	}, nil
}

func activityNote(at time.Time, subject string, from Status, d Draft) string {
	parts := []string{fmt.Sprintf("%s: Draft created for %q", at.Format(time.DateOnly), subject)}
	if d.SuggestedStatus != from {
		parts = append(parts, fmt.Sprintf("status changed from %s to %s", from, d.SuggestedStatus))
	}
	if d.FollowUpDate != "" {
		parts = append(parts, "follow-up scheduled for "+d.FollowUpDate)
	}
	return strings.Join(parts, "; ")
}

func appendNote(notes, line string) string {
	if strings.TrimSpace(notes) == "" {
		return line
	}
	return notes + "\n" + line
}

func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
