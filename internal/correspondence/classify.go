package correspondence

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/content-curator/internal/llm"
	"github.com/jonathan/content-curator/internal/prompts"
	"github.com/jonathan/content-curator/internal/types"
)

const classifyBodyRunes = 2000

var personalDomains = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
	"yahoo.com":      true,
	"hotmail.com":    true,
	"outlook.com":    true,
	"live.com":       true,
	"icloud.com":     true,
	"me.com":         true,
	"aol.com":        true,
	"proton.me":      true,
	"protonmail.com": true,
}

var automatedLocalParts = []string{"noreply", "no-reply", "donotreply", "newsletter", "notifications", "mailer-daemon", "bounce"}

var keywords = map[ContactType][]string{
	TypeSchool:   {"course", "program", "student", "university", "degree", "curriculum", "faculty", "semester", "enroll"},
	TypeCompany:  {"partnership", "services", "proposal", "meeting", "sales", "invoice", "contract", "pricing", "demo"},
	TypePersonal: {"thanks", "thank you", "catch up", "family", "weekend", "birthday"},
	TypeOther:    {"unsubscribe", "newsletter", "do not reply", "automated message", "view in browser"},
}

// ClassificationError reports that the model's classification could not be used.
type ClassificationError struct {
	Message string
	Cause   error
}

func (e *ClassificationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("classification failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("classification failed: %s", e.Message)
}

func (e *ClassificationError) Unwrap() error {
	return e.Cause
}

// DomainGuess classifies an address by its domain alone.
func DomainGuess(address string) ContactType {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return TypeOther
	}
	local := strings.ToLower(address[:at])
	domain := strings.ToLower(strings.TrimSpace(address[at+1:]))

	for _, p := range automatedLocalParts {
		if strings.Contains(local, p) {
			return TypeOther
		}
	}
	switch {
	case domain == "":
		return TypeOther
	case strings.HasSuffix(domain, ".edu") || strings.Contains(domain, ".edu.") || strings.Contains(domain, ".ac."):
		return TypeSchool
	case personalDomains[domain]:
		return TypePersonal
	default:
		return TypeCompany
	}
}

// KeywordGuess classifies text by keyword hits. It reports false unless one
// type strictly leads every other.
func KeywordGuess(text string) (ContactType, bool) {
	lower := strings.ToLower(text)
	best, bestHits, tied := ContactType(""), 0, false
	for _, t := range []ContactType{TypeSchool, TypeCompany, TypePersonal, TypeOther} {
		hits := 0
		for _, kw := range keywords[t] {
			hits += strings.Count(lower, kw)
		}
		switch {
		case hits > bestHits:
			best, bestHits, tied = t, hits, false
		case hits == bestHits && hits > 0:
			tied = true
		}
	}
	if bestHits == 0 || tied {
		return "", false
	}
	return best, true
}

// Heuristic is the deterministic classification: clear content wins,
// otherwise the domain decides.
func Heuristic(msg Message) ContactType {
	if t, ok := KeywordGuess(msg.Subject + "\n" + msg.Body); ok {
		return t
	}
	return DomainGuess(msg.From)
}

// Classifier asks the model to classify a sender and falls back to the
// heuristic when the answer is unusable.
type Classifier struct {
	client llm.Client
	logger *logrus.Logger
}

// NewClassifier returns a Classifier. A nil client classifies heuristically.
func NewClassifier(client llm.Client, logger *logrus.Logger) *Classifier {
	return &Classifier{client: client, logger: logger}
}

// Classify never fails: a model error yields a Fallback carrying a
// *ClassificationError.
func (c *Classifier) Classify(ctx context.Context, msg Message) types.Outcome[ContactType] {
	guess := Heuristic(msg)
	if c.client == nil {
		return types.Ok(guess)
	}

	fallback := func(err error) types.Outcome[ContactType] {
		c.logger.WithError(err).WithField("from", msg.From).Warn("Using heuristic contact type")
		return types.Fallback(guess, err)
	}

	prompt, err := prompts.Render(prompts.CorrespondenceFile, "classify-contact", map[string]string{
		"DomainGuess": string(DomainGuess(msg.From)),
		"From":        msg.From,
		"Subject":     msg.Subject,
		"Body":        truncateRunes(msg.Body, classifyBodyRunes),
	})
	if err != nil {
		return fallback(&ClassificationError{Message: "failed to build prompt", Cause: err})
	}

	raw, err := c.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return fallback(&ClassificationError{Message: "model call failed", Cause: err})
	}

	var answer struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	if err := llm.ExtractInto(raw, &answer, "type"); err != nil {
		return fallback(&ClassificationError{Message: "unparseable answer", Cause: err})
	}
	t, ok := ParseContactType(answer.Type)
	if !ok {
		return fallback(&ClassificationError{Message: fmt.Sprintf("unknown contact type %q", answer.Type)})
	}

	c.logger.WithFields(logrus.Fields{"from": msg.From, "type": t, "reason": answer.Reason}).Debug("Contact classified")
	return types.Ok(t)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
