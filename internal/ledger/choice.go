package ledger

import (
	"fmt"
	"strings"

	"github.com/lcvote/voteledger/internal/domainerr"
)

// Choice is one label of the fixed ballot enumeration.
type Choice string

const (
	ChoiceA    Choice = "A"
	ChoiceB    Choice = "B"
	ChoiceC    Choice = "C"
	ChoiceD    Choice = "D"
	ChoiceE    Choice = "E"
	ChoiceF    Choice = "F"
	ChoiceG    Choice = "G"
	ChoiceNone Choice = "NONE"
)

// Choices lists the enumeration in display order.
var Choices = []Choice{ChoiceA, ChoiceB, ChoiceC, ChoiceD, ChoiceE, ChoiceF, ChoiceG, ChoiceNone}

func (c Choice) Valid() bool {
	for _, known := range Choices {
		if c == known {
			return true
		}
	}
	return false
}

// ParseChoices validates a submitted ballot. Labels are trimmed and
// deduplicated in submission order; the result is non-empty, drawn from the
// enumeration, and NONE never appears alongside another label.
func ParseChoices(raw []string) ([]Choice, error) {
	if len(raw) > len(Choices) {
		return nil, domainerr.New(domainerr.InvalidPayload, fmt.Sprintf("at most %d choices may be selected", len(Choices)))
	}

	seen := make(map[Choice]struct{}, len(raw))
	choices := make([]Choice, 0, len(raw))
	for _, label := range raw {
		c := Choice(strings.TrimSpace(label))
		if !c.Valid() {
			return nil, domainerr.New(domainerr.InvalidPayload, fmt.Sprintf("unknown choice %q", label))
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		choices = append(choices, c)
	}

	if len(choices) == 0 {
		return nil, domainerr.New(domainerr.InvalidPayload, "select at least one option")
	}
	if _, hasNone := seen[ChoiceNone]; hasNone && len(choices) > 1 {
		return nil, domainerr.New(domainerr.InvalidPayload, "NONE cannot be combined with other selections")
	}
	return choices, nil
}

// ChoiceStrings converts choices back to their labels.
func ChoiceStrings(choices []Choice) []string {
	out := make([]string, len(choices))
	for i, c := range choices {
		out[i] = string(c)
	}
	return out
}
