package ledger

import (
	"reflect"
	"testing"

	"github.com/lcvote/voteledger/internal/domainerr"
)

func TestParseChoices(t *testing.T) {
	tests := []struct {
		name    string
		raw     []string
		want    []Choice
		wantErr bool
	}{
		{name: "single", raw: []string{"A"}, want: []Choice{ChoiceA}},
		{name: "several", raw: []string{"A", "B", "G"}, want: []Choice{ChoiceA, ChoiceB, ChoiceG}},
		{name: "none alone", raw: []string{"NONE"}, want: []Choice{ChoiceNone}},
		{name: "duplicates collapse", raw: []string{"B", " B", "A"}, want: []Choice{ChoiceB, ChoiceA}},
		{name: "empty", raw: nil, wantErr: true},
		{name: "unknown label", raw: []string{"H"}, wantErr: true},
		{name: "lowercase is unknown", raw: []string{"a"}, wantErr: true},
		{name: "none with others", raw: []string{"NONE", "A"}, wantErr: true},
		{name: "others with none", raw: []string{"C", "NONE"}, wantErr: true},
		{name: "too many", raw: []string{"A", "B", "C", "D", "E", "F", "G", "A", "B"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChoices(tt.raw)
			if tt.wantErr {
				if !domainerr.Is(err, domainerr.InvalidPayload) {
					t.Fatalf("expected InvalidPayload, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
