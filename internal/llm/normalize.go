package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawResponse is the model's reply as documented in the prompt.
type RawResponse struct {
	AutoFilledData       map[string]any             `json:"auto_filled_data"`
	PlaceholderPositions map[string]json.RawMessage `json:"placeholder_positions"`
	FontDetection        *struct {
		FontName *string  `json:"font_name"`
		FontSize *float64 `json:"font_size"`
	} `json:"font_detection"`
}

// ParseResponse validates and decodes model output into a SuggestionResult
// restricted to the requested fields. UserData entries naming a requested
// field take precedence over generated values.
func ParseResponse(content []byte, input SuggestInput) (SuggestionResult, error) {
	if err := ValidateResponse(content); err != nil {
		return SuggestionResult{}, err
	}
	var raw RawResponse
	if err := json.Unmarshal(content, &raw); err != nil {
		return SuggestionResult{}, fmt.Errorf("decode response: %w", err)
	}
	return Normalize(raw, input), nil
}

// Normalize applies the result invariants to a decoded response.
func Normalize(raw RawResponse, input SuggestInput) SuggestionResult {
	requested := make(map[string]struct{}, len(input.Fields))
	for _, f := range input.Fields {
		requested[f] = struct{}{}
	}

	out := SuggestionResult{
		ValuesByField:    make(map[string]string),
		PositionsByField: make(map[string]Position),
		Font:             DefaultFont,
	}

	for key, v := range raw.AutoFilledData {
		if _, ok := requested[key]; !ok {
			continue
		}
		if s := stringify(v); s != "" {
			out.ValuesByField[key] = s
		}
	}
	for key, v := range input.UserData {
		if _, ok := requested[key]; !ok {
			continue
		}
		if s := strings.TrimSpace(v); s != "" {
			out.ValuesByField[key] = s
		}
	}

	for key, rawPos := range raw.PlaceholderPositions {
		if _, ok := requested[key]; !ok {
			continue
		}
		if pos, ok := decodePosition(rawPos); ok {
			out.PositionsByField[key] = pos
		}
	}

	if fd := raw.FontDetection; fd != nil {
		if fd.FontName != nil && strings.TrimSpace(*fd.FontName) != "" {
			out.Font.Family = strings.TrimSpace(*fd.FontName)
		}
		if fd.FontSize != nil && *fd.FontSize > 0 && *fd.FontSize < 200 {
			out.Font.SizePt = *fd.FontSize
		}
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func decodePosition(raw json.RawMessage) (Position, bool) {
	var p struct {
		Page *float64 `json:"page"`
		X    *float64 `json:"x"`
		Y    *float64 `json:"y"`
	}
	if err := json.Unmarshal(raw, &p); err != nil || p.Page == nil || p.X == nil || p.Y == nil {
		return Position{}, false
	}
	if *p.Page < 0 || *p.Page != math.Trunc(*p.Page) {
		return Position{}, false
	}
	return Position{Page: int(*p.Page), X: *p.X, Y: *p.Y}, true
}
