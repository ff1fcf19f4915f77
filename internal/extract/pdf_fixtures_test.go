package extract_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
)

// textPDF lays out one line of text per entry on a single A4 page.
func textPDF(t *testing.T, lines ...string) []byte {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)
	for i, line := range lines {
		doc.Text(20, float64(30+i*12), line)
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	return buf.Bytes()
}

// rawPDF assembles numbered objects (1-based) into a PDF with a correct xref table.
func rawPDF(objects ...string) []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return []byte(b.String())
}

func stream(content string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content)
}

// acroFormPDF has flat, hierarchical and widget-only-kid form fields plus one text token.
func acroFormPDF() []byte {
	return rawPDF(
		"<< /Type /Catalog /Pages 2 0 R /AcroForm << /Fields [4 0 R 5 0 R 8 0 R] >> >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 10 0 R >> >> /Contents 11 0 R /Annots [4 0 R 6 0 R 7 0 R 9 0 R] >>",
		"<< /FT /Tx /T (Full Name) /Subtype /Widget /Rect [72 600 300 620] /P 3 0 R >>",
		"<< /T (party) /Kids [6 0 R 7 0 R] >>",
		"<< /FT /Tx /T (company) /Parent 5 0 R /Subtype /Widget /Rect [72 560 300 580] /P 3 0 R >>",
		"<< /FT /Tx /T (signature) /Parent 5 0 R /Subtype /Widget /Rect [72 520 300 540] /P 3 0 R >>",
		"<< /FT /Tx /T (amount) /Kids [9 0 R] >>",
		"<< /Subtype /Widget /Parent 8 0 R /Rect [72 480 300 500] /P 3 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		stream("BT /F1 12 Tf 72 700 Td (Date: {{ date_of_contract }}) Tj ET"),
	)
}

// brokenFieldPDF is a one-page form whose only field is the given object.
func brokenFieldPDF(field string) []byte {
	return rawPDF(
		"<< /Type /Catalog /Pages 2 0 R /AcroForm << /Fields [4 0 R] >> >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 6 0 R >>",
		field,
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		stream("BT /F1 12 Tf 72 700 Td (Party agreement) Tj ET"),
	)
}
