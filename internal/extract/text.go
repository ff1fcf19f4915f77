package extract

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// textLines returns page text as rows, top to bottom, page by page.
func textLines(data []byte) (lines []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			lines = nil
			err = fmt.Errorf("%w: text layer: %v", ErrUnreadableDocument, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		lines = append(lines, pageRows(page.Content().Text)...)
	}
	if len(lines) > 0 {
		return lines, nil
	}

	// Some producers lay text out without row positions; fall back to the plain stream.
	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	for _, line := range strings.Split(string(raw), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// rowTolerance is how far, in points, glyph baselines may drift and still share a row.
const rowTolerance = 2.0

// pageRows groups positioned glyphs into rows, top to bottom and left to right.
func pageRows(glyphs []pdf.Text) []string {
	if len(glyphs) == 0 {
		return nil
	}
	sorted := make([]pdf.Text, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var rows []string
	flush := func(row []pdf.Text) {
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
		var b strings.Builder
		for _, g := range row {
			b.WriteString(g.S)
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			rows = append(rows, line)
		}
	}

	start := 0
	for i := 1; i < len(sorted); i++ {
		if math.Abs(sorted[i].Y-sorted[start].Y) > rowTolerance {
			flush(sorted[start:i])
			start = i
		}
	}
	flush(sorted[start:])
	return rows
}

// tokenPattern matches, in order of precedence: {{ name }}, [[name]], {name}, and blanks of 3+ underscores.
var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_ .\-]+?)\s*\}\}|\[\[\s*([A-Za-z0-9_ .\-]+?)\s*\]\]|\{\s*([A-Za-z][A-Za-z0-9_]*)\s*\}|_{3,}`)

type candidate struct {
	label string
	blank bool
}

// scanLine returns placeholder candidates in the order they appear on the line.
// A blank takes its label from the text between it and the previous match.
func scanLine(line string) []candidate {
	var out []candidate
	prev := 0
	for _, m := range tokenPattern.FindAllStringSubmatchIndex(line, -1) {
		start, end := m[0], m[1]
		switch {
		case m[2] >= 0:
			out = append(out, candidate{label: line[m[2]:m[3]]})
		case m[4] >= 0:
			out = append(out, candidate{label: line[m[4]:m[5]]})
		case m[6] >= 0:
			out = append(out, candidate{label: line[m[6]:m[7]]})
		default:
			out = append(out, candidate{label: blankLabel(line[prev:start]), blank: true})
		}
		prev = end
	}
	return out
}

// maxLabelWords keeps labels taken from running prose short.
const maxLabelWords = 4

func blankLabel(before string) string {
	before = strings.TrimRight(before, " \t:.-#(")
	if i := strings.LastIndexAny(before, ".;|)"); i >= 0 {
		before = before[i+1:]
	}
	words := strings.Fields(before)
	if len(words) > maxLabelWords {
		words = words[len(words)-maxLabelWords:]
	}
	return strings.Join(words, " ")
}
