package render

import (
	"strings"

	"templatefill-backend/internal/llm"
)

const (
	minFontSize = 6
	maxFontSize = 36
)

// style is a core PDF font and body size.
type style struct {
	Family string
	Size   float64
}

// styleFor maps a detected font onto the core PDF fonts. Sans is checked
// before serif because "sans-serif" contains "serif".
func styleFor(s *llm.SuggestionResult) style {
	font := llm.DefaultFont
	if s != nil && (strings.TrimSpace(s.Font.Family) != "" || s.Font.SizePt > 0) {
		font = s.Font
	}

	size := font.SizePt
	switch {
	case size <= 0:
		size = llm.DefaultFont.SizePt
	case size < minFontSize:
		size = minFontSize
	case size > maxFontSize:
		size = maxFontSize
	}
	return style{Family: coreFamily(font.Family), Size: size}
}

func coreFamily(family string) string {
	f := strings.ToLower(family)
	switch {
	case strings.Contains(f, "courier"), strings.Contains(f, "mono"):
		return "Courier"
	case strings.Contains(f, "arial"), strings.Contains(f, "helvetica"), strings.Contains(f, "sans"), strings.Contains(f, "calibri"), strings.Contains(f, "verdana"):
		return "Helvetica"
	default:
		return "Times"
	}
}
