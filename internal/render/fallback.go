package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

const footerLayout = "2006-01-02 15:04:05 MST"

// fallbackPDF assembles a one-page Helvetica document by hand so it cannot
// fail for the reasons the primary path did.
func fallbackPDF(now time.Time) []byte {
	var content bytes.Buffer
	content.WriteString("BT\n/F1 18 Tf\n72 770 Td\n")
	fmt.Fprintf(&content, "(%s) Tj\n", pdfString("Generated Document"))
	content.WriteString("/F1 12 Tf\n0 -30 Td\n")
	fmt.Fprintf(&content, "(%s) Tj\n", pdfString("This is a basic document generated as a fallback."))
	content.WriteString("0 -18 Td\n")
	fmt.Fprintf(&content, "(%s) Tj\n", pdfString("The requested document could not be rendered."))
	content.WriteString("0 -18 Td\n")
	fmt.Fprintf(&content, "(%s) Tj\n", pdfString("Generated on: "+now.UTC().Format(footerLayout)))
	content.WriteString("ET\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n", len(objects)+1)
	out.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return out.Bytes()
}

// pdfString escapes a literal string operand; non-ASCII becomes '?'.
func pdfString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '(' || r == ')' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20 || r > 0x7e:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
