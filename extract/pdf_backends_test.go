package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"social_media_analyzer/failure"
)

// buildPDF writes a minimal uncompressed PDF with one line of Helvetica
// text per page. catalog overrides the catalog object body when non-empty.
func buildPDF(pages []string, catalog string) []byte {
	n := len(pages)
	fontID := 3 + 2*n
	if catalog == "" {
		catalog = "<< /Type /Catalog /Pages 2 0 R >>"
	}

	var kids []string
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", 3+2*i))
	}
	objs := []string{
		catalog,
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n),
	}
	for i, text := range pages {
		stream := fmt.Sprintf("BT\n/F1 12 Tf\n72 720 Td\n(%s) Tj\nET\n", text)
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", fontID, 4+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(stream), stream),
		)
	}
	objs = append(objs, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func realExtractor(t *testing.T, name string) *PDFExtractor {
	t.Helper()
	b, err := NewBackend(name)
	if err != nil {
		t.Fatal(err)
	}
	capab := NewCapability(b)
	if err := capab.Init(context.Background()); err != nil {
		t.Fatalf("init %s: %v", name, err)
	}
	return NewPDFExtractor(capab)
}

func TestBackends_ThreePageDocument(t *testing.T) {
	content := buildPDF([]string{"Intro.", "Middle.", "Conclusion."}, "")
	for _, name := range []string{"ledongthuc", "pdfcpu"} {
		t.Run(name, func(t *testing.T) {
			text, err := realExtractor(t, name).Extract(context.Background(), content)
			if err != nil {
				t.Fatal(err)
			}
			if text != "Intro.\n\nMiddle.\n\nConclusion." {
				t.Errorf("got %q", text)
			}
		})
	}
}

func TestBackends_MalformedDocument(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{"unterminated catalog", buildPDF([]string{"Intro."}, "<< /Type /Catalog /Pages 2 0 R")},
		{"not a pdf", []byte("this is not a pdf at all")},
	}
	for _, backend := range []string{"ledongthuc", "pdfcpu"} {
		for _, tt := range tests {
			t.Run(backend+"/"+tt.name, func(t *testing.T) {
				text, err := realExtractor(t, backend).Extract(context.Background(), tt.content)
				if !failure.IsKind(err, failure.ExtractionFailed) {
					t.Fatalf("expected ExtractionFailed, got %v", err)
				}
				if text != "" {
					t.Errorf("unexpected text %q", text)
				}
			})
		}
	}
}
