package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrUnreadableDocument is returned when the bytes are not a well-formed PDF.
var ErrUnreadableDocument = errors.New("unreadable document")

// Extractor turns document bytes into an ordered set of unique field names.
type Extractor interface {
	Extract(ctx context.Context, data []byte) ([]string, error)
}

// PDFExtractor finds placeholders in PDF documents. Field names come from
// AcroForm fields first, then from page text in reading order.
type PDFExtractor struct{}

var disableConfigDir sync.Once

// New returns a PDF placeholder extractor.
func New() *PDFExtractor {
	disableConfigDir.Do(api.DisableConfigDir)
	return &PDFExtractor{}
}

// Extract implements Extractor. It never returns a partial list: any parse
// failure yields ErrUnreadableDocument.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pdfCtx, err := readContext(data)
	if err != nil {
		return nil, err
	}

	fields, err := acroFormNames(pdfCtx)
	if err != nil {
		return nil, err
	}
	set := newNameSet()
	for _, name := range fields {
		set.add(name)
	}

	lines, err := textLines(data)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blanks := 0
	for _, line := range lines {
		for _, c := range scanLine(line) {
			if c.blank {
				blanks++
				if NormalizeName(c.label) == "" {
					c.label = fmt.Sprintf("placeholder_%d", blanks)
				}
			}
			set.add(c.label)
		}
	}
	return set.list(), nil
}

// ExtractText returns the document's visible text, one line per text row.
func ExtractText(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := readContext(data); err != nil {
		return "", err
	}
	lines, err := textLines(data)
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

// Validate reports whether data parses as a PDF with a readable text layer,
// without looking for placeholders.
func Validate(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := readContext(data); err != nil {
		return err
	}
	_, err := textLines(data)
	return err
}

func readContext(data []byte) (*model.Context, error) {
	if !hasPDFHeader(data) {
		return nil, fmt.Errorf("%w: missing %%PDF header", ErrUnreadableDocument)
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pdfCtx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	if err := pdfCtx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("%w: page count: %v", ErrUnreadableDocument, err)
	}
	return pdfCtx, nil
}

func hasPDFHeader(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(head, []byte("%PDF-"))
}
