package llm

import (
	"context"
	"errors"
)

// ErrSuggestionUnavailable covers every way a suggestion call can fail:
// transport, provider error, or a malformed response.
var ErrSuggestionUnavailable = errors.New("suggestion unavailable")

// Suggester proposes field values for a template.
type Suggester interface {
	Suggest(ctx context.Context, input SuggestInput) (SuggestionResult, error)
}

// SuggestInput is what the caller knows about the document being filled.
type SuggestInput struct {
	Fields   []string
	Context  string
	UserData map[string]string
}

// Position is a best-effort layout hint for a field.
type Position struct {
	Page int     `json:"page"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Font is the detected default text style.
type Font struct {
	Family string  `json:"family"`
	SizePt float64 `json:"sizePt"`
}

// DefaultFont applies when the engine does not report one.
var DefaultFont = Font{Family: "Times New Roman", SizePt: 11}

// SuggestionResult holds suggested values keyed by requested field only.
type SuggestionResult struct {
	ValuesByField    map[string]string   `json:"valuesByField"`
	PositionsByField map[string]Position `json:"positionsByField"`
	Font             Font                `json:"font"`
}

// Unconfigured is the Suggester used when no provider credentials are set.
type Unconfigured struct{}

// Suggest always fails with ErrSuggestionUnavailable.
func (Unconfigured) Suggest(context.Context, SuggestInput) (SuggestionResult, error) {
	return SuggestionResult{}, errors.Join(ErrSuggestionUnavailable, errors.New("no LLM API key configured"))
}
