package correspondence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/content-curator/internal/llm"
	"github.com/jonathan/content-curator/internal/prompts"
	"github.com/jonathan/content-curator/internal/types"
)

const historyBodyRunes = 1500

// Drafter writes a reply for a contact from its history and guidance.
type Drafter struct {
	client llm.Client
	logger *logrus.Logger
}

func NewDrafter(client llm.Client, logger *logrus.Logger) *Drafter {
	return &Drafter{client: client, logger: logger}
}

// Draft asks the model for a reply. The suggested status is checked
// against the transition table and reset to the current status when the
// move is not allowed.
func (d *Drafter) Draft(ctx context.Context, c Contact, history []Message, g Guidance) (Draft, error) {
	allowed := NextStatuses(c.Type, c.Status)
	allowedText := "none"
	if len(allowed) > 0 {
		names := make([]string, len(allowed))
		for i, s := range allowed {
			names[i] = string(s)
		}
		allowedText = strings.Join(names, ", ")
	}

	prompt, err := prompts.Render(prompts.CorrespondenceFile, "draft-reply", map[string]string{
		"ContactType":     string(c.Type),
		"Status":          string(c.Status),
		"StatusContext":   orNone(g.Status),
		"TypeInfo":        orNone(g.TypeInfo),
		"GeneralContext":  orNone(g.General),
		"Notes":           orNone(c.Notes),
		"History":         FormatHistory(history),
		"AllowedStatuses": allowedText,
	})
	if err != nil {
		return Draft{}, fmt.Errorf("failed to build draft prompt: %w", err)
	}

	raw, err := d.client.GenerateJSON(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		return Draft{}, fmt.Errorf("draft generation failed: %w", err)
	}

	var draft Draft
	if err := llm.ExtractInto(raw, &draft, "draft_text"); err != nil {
		return Draft{}, err
	}
	draft.Text = strings.TrimSpace(draft.Text)
	if draft.Text == "" {
		return Draft{}, &llm.ParseError{Message: "draft_text is empty"}
	}

	return d.normalize(c, draft), nil
}

func (d *Drafter) normalize(c Contact, draft Draft) Draft {
	draft.SuggestedStatus = Status(strings.ToLower(strings.TrimSpace(string(draft.SuggestedStatus))))
	if draft.SuggestedStatus == "" {
		draft.SuggestedStatus = c.Status
	}
	if !CanTransition(c.Type, c.Status, draft.SuggestedStatus) {
		d.logger.WithError(&TransitionError{Type: c.Type, From: c.Status, To: draft.SuggestedStatus}).
			WithField("email", c.Email).Warn("Ignoring suggested status")
		draft.SuggestedStatus = c.Status
	}

	switch p := Priority(strings.ToLower(strings.TrimSpace(string(draft.Priority)))); p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		draft.Priority = p
	default:
		draft.Priority = PriorityMedium
	}

	draft.FollowUpDate = strings.TrimSpace(draft.FollowUpDate)
	if _, err := time.Parse(time.DateOnly, draft.FollowUpDate); err != nil {
		draft.FollowUpDate = ""
	}
	return draft
}

// FormatHistory renders messages oldest first for a prompt.
func FormatHistory(history []Message) string {
	if len(history) == 0 {
		return "(no previous messages)"
	}
	var b strings.Builder
	for i, m := range history {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "From: %s\nDate: %s\nSubject: %s\n\n%s", m.From, m.Received.Format(time.DateTime), m.Subject,
			truncateRunes(strings.TrimSpace(m.Body), historyBodyRunes))
	}
	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

// Enhancer polishes a draft against the brand guidance.
type Enhancer struct {
	client llm.Client
	logger *logrus.Logger
}

func NewEnhancer(client llm.Client, logger *logrus.Logger) *Enhancer {
	return &Enhancer{client: client, logger: logger}
}

// Enhance returns the polished text, or the original text as a Fallback
// when the model fails or answers with nothing.
func (e *Enhancer) Enhance(ctx context.Context, t ContactType, g Guidance, text string) types.Outcome[string] {
	prompt, err := prompts.Render(prompts.CorrespondenceFile, "enhance-draft", map[string]string{
		"ContactType":     string(t),
		"EnhancerContext": orNone(g.Enhancer),
		"Draft":           text,
	})
	if err == nil {
		var out string
		out, err = e.client.GenerateContent(ctx, prompt, llm.TierStandard)
		if out = strings.TrimSpace(out); err == nil && out != "" {
			return types.Ok(out)
		}
		if err == nil {
			err = &llm.ParseError{Message: "empty enhanced draft"}
		}
	}
	e.logger.WithError(err).Warn("Keeping unpolished draft")
	return types.Fallback(text, err)
}
