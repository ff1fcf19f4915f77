package render

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"templatefill-backend/internal/extract"
	"templatefill-backend/internal/llm"
	"templatefill-backend/internal/shared/metrics"
	"templatefill-backend/internal/shared/telemetry"
	"templatefill-backend/internal/templates"
)

const (
	ContentTypePDF = "application/pdf"

	pageMargin  = 20.0 // mm
	titleSize   = 18.0
	footerSize  = 9.0
	emptyMarker = "____________"
	ptToMM      = 0.3528
)

// Artifact is a rendered document ready for delivery.
type Artifact struct {
	Bytes       []byte
	Locator     string
	FileName    string
	ContentType string
	Fallback    bool
	CreatedAt   time.Time
}

// Renderer lays out field values as a text document. It never fails: any
// error in the primary path yields a fallback document instead.
type Renderer struct {
	now     func() time.Time
	primary func(tpl templates.Template, values map[string]string, st style, now time.Time) ([]byte, error)
}

// New returns a Renderer using go-pdf/fpdf for the primary path.
func New() *Renderer {
	return &Renderer{now: time.Now, primary: layoutPDF}
}

// Render produces the artifact for a template and its values. Placeholders
// without a value are drawn as a visible blank line. The suggestion font, when
// present, sets the body style.
func (r *Renderer) Render(ctx context.Context, tpl templates.Template, values map[string]string, suggestion *llm.SuggestionResult) Artifact {
	now := r.now().UTC()
	st := styleFor(suggestion)

	data, err := r.runPrimary(ctx, tpl, values, st, now)
	if err != nil {
		metrics.Renders.WithLabelValues("fallback").Inc()
		metrics.RenderFallbacks.Inc()
		telemetry.Error("render.fallback", map[string]any{
			"template_id": tpl.ID,
			"error":       err.Error(),
		})
		return Artifact{
			Bytes:       fallbackPDF(now),
			FileName:    fallbackFileName(now),
			ContentType: ContentTypePDF,
			Fallback:    true,
			CreatedAt:   now,
		}
	}

	metrics.Renders.WithLabelValues("primary").Inc()
	return Artifact{
		Bytes:       data,
		FileName:    FileName(tpl.Name, now),
		ContentType: ContentTypePDF,
		CreatedAt:   now,
	}
}

func (r *Renderer) runPrimary(ctx context.Context, tpl templates.Template, values map[string]string, st style, now time.Time) (data []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			data = nil
			err = fmt.Errorf("render panic: %v", rec)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err = r.primary(tpl, values, st, now)
	if err == nil && len(data) == 0 {
		err = fmt.Errorf("render produced no bytes")
	}
	return data, err
}

// Lines returns the "<Label>: <value>" body lines in output order:
// placeholders first, then extra values sorted by name.
func Lines(tpl templates.Template, values map[string]string) []string {
	seen := make(map[string]struct{}, len(tpl.Placeholders))
	lines := make([]string, 0, len(tpl.Placeholders)+len(values))
	for _, name := range tpl.Placeholders {
		seen[name] = struct{}{}
		lines = append(lines, line(name, values[name]))
	}

	var extras []string
	for name := range values {
		if _, ok := seen[name]; !ok {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		lines = append(lines, line(name, values[name]))
	}
	return lines
}

func line(name, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		value = emptyMarker
	}
	return extract.Label(name) + ": " + value
}

func layoutPDF(tpl templates.Template, values map[string]string, st style, now time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetCreator("templatefill", true)
	pdf.SetTitle(tpl.Name, true)
	pdf.SetCreationDate(now)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	title := strings.TrimSpace(tpl.Name)
	if title == "" {
		title = "Document"
	}
	pdf.SetFont(st.Family, "B", titleSize)
	pdf.MultiCell(0, titleSize*ptToMM*1.4, tr(title), "", "L", false)
	pdf.Ln(4)

	lineHeight := st.Size * ptToMM * 1.5
	pdf.SetFont(st.Family, "", st.Size)
	for _, l := range Lines(tpl, values) {
		pdf.MultiCell(0, lineHeight, tr(l), "", "L", false)
		pdf.Ln(1)
	}

	pdf.Ln(6)
	pdf.SetFont(st.Family, "I", footerSize)
	pdf.MultiCell(0, footerSize*ptToMM*1.5, "Generated on: "+now.Format(footerLayout), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
