// Package steps defines the stages of a curation run: their order, progress
// fractions and the labels printed as each one starts.
package steps

import (
	"fmt"

	"github.com/jonathan/content-curator/internal/types"
)

// StepDefinition describes one orchestrator state.
type StepDefinition struct {
	State    types.RunState
	Number   int // 1-based position in the run; 0 for terminal states
	Fraction float64
	Label    string
	// Dependencies are the states that must have completed first.
	Dependencies []types.RunState
}

// Total is the number of numbered steps in a full run.
const Total = 7

// StepRegistry holds every state the orchestrator can enter.
var StepRegistry = map[types.RunState]StepDefinition{
	types.StateScraping: {
		State: types.StateScraping, Number: 1, Fraction: 0.1,
		Label: "Scraping sources",
	},
	types.StateDeduplicating: {
		State: types.StateDeduplicating, Number: 2, Fraction: 0.3,
		Label:        "Filtering already-processed articles",
		Dependencies: []types.RunState{types.StateScraping},
	},
	types.StateSelecting: {
		State: types.StateSelecting, Number: 3, Fraction: 0.35,
		Label:        "Selecting the best article",
		Dependencies: []types.RunState{types.StateDeduplicating},
	},
	types.StateEnriching: {
		State: types.StateEnriching, Number: 4, Fraction: 0.45,
		Label:        "Fetching full article content",
		Dependencies: []types.RunState{types.StateSelecting},
	},
	types.StateGenerating: {
		State: types.StateGenerating, Number: 5, Fraction: 0.55,
		Label:        "Generating social media posts",
		Dependencies: []types.RunState{types.StateEnriching},
	},
	types.StateIllustrating: {
		State: types.StateIllustrating, Number: 6, Fraction: 0.6,
		Label:        "Generating image",
		Dependencies: []types.RunState{types.StateGenerating},
	},
	types.StatePersisting: {
		State: types.StatePersisting, Number: 7, Fraction: 0.9,
		Label:        "Saving outputs and updating ledger",
		Dependencies: []types.RunState{types.StateIllustrating},
	},
	types.StateDone:          {State: types.StateDone, Fraction: 1.0, Label: "Workflow completed"},
	types.StateNoArticles:    {State: types.StateNoArticles, Fraction: 1.0, Label: "No articles found"},
	types.StateNoNewArticles: {State: types.StateNoNewArticles, Fraction: 1.0, Label: "No new articles"},
	types.StateFailed:        {State: types.StateFailed, Fraction: 1.0, Label: "Workflow failed"},
}

// TransitionError reports a state entered before its dependencies.
type TransitionError struct {
	From, To types.RunState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// Lookup returns the definition of state.
func Lookup(state types.RunState) (StepDefinition, error) {
	def, ok := StepRegistry[state]
	if !ok {
		return StepDefinition{}, fmt.Errorf("unknown step: %s", state)
	}
	return def, nil
}

// ValidateTransition checks that to may follow from. Terminal states may be
// entered from any non-terminal state; numbered steps only from their
// dependency.
func ValidateTransition(from, to types.RunState) error {
	def, err := Lookup(to)
	if err != nil {
		return err
	}
	if from.Terminal() {
		return &TransitionError{From: from, To: to}
	}
	if to.Terminal() {
		if to == types.StateDone && from != types.StatePersisting {
			return &TransitionError{From: from, To: to}
		}
		return nil
	}
	if len(def.Dependencies) == 0 {
		if from != types.StatePending {
			return &TransitionError{From: from, To: to}
		}
		return nil
	}
	for _, dep := range def.Dependencies {
		if dep == from {
			return nil
		}
	}
	return &TransitionError{From: from, To: to}
}
