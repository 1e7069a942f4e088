package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
)

// buildPDF renders one page per entry in pages using a standard core font so
// the extractor can read the text back without embedded font tables.
func buildPDF(t *testing.T, pages []string) []byte {
	t.Helper()
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for _, content := range pages {
		doc.AddPage()
		doc.MultiCell(0, 6, content, "", "L", false)
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	return buf.Bytes()
}

func TestExtract_ReadsPageText(t *testing.T) {
	data := buildPDF(t, []string{
		"The city council approved the new transit budget on Thursday evening.",
		"Officials said construction would begin early next year.",
	})
	doc, err := Extract(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(doc.Text, "transit budget") {
		t.Fatalf("missing first page text: %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "construction would begin") {
		t.Fatalf("missing second page text: %q", doc.Text)
	}
	if doc.Pages != 2 || doc.Truncated {
		t.Fatalf("unexpected provenance: pages=%d truncated=%v", doc.Pages, doc.Truncated)
	}
}

func TestExtract_CapsPageCount(t *testing.T) {
	pages := make([]string, MaxPages+5)
	for i := range pages {
		pages[i] = fmt.Sprintf("Page %d body text describing events in considerable detail.", i+1)
	}
	data := buildPDF(t, pages)
	doc, err := Extract(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !doc.Truncated {
		t.Fatalf("expected truncation flag for %d pages", len(pages))
	}
	if doc.Pages != MaxPages+5 {
		t.Fatalf("expected total page count preserved, got %d", doc.Pages)
	}
	if strings.Contains(doc.Text, fmt.Sprintf("Page %d", MaxPages+1)) {
		t.Fatalf("text beyond page cap leaked into output")
	}
}

func TestExtract_EmptyDocumentFails(t *testing.T) {
	// Pages exist but carry no text, like a scanned document.
	data := buildPDF(t, []string{"", ""})
	_, err := Extract(data)
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestExtract_MalformedBytesFail(t *testing.T) {
	_, err := Extract([]byte("not a pdf at all"))
	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
}
