// Package pdftext extracts plain text from PDF byte streams for
// classification. Extraction is page-oriented and capped so a thousand-page
// upload cannot stall a request.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/verinews/verinews/internal/normalize"
)

var (
	// ErrUnreadable indicates a malformed or encrypted byte stream.
	ErrUnreadable = errors.New("pdf is unreadable")
	// ErrEmpty indicates the document yielded no usable text, typically a
	// scanned or image-only PDF.
	ErrEmpty = errors.New("pdf contains no extractable text")
)

const (
	// MaxPages bounds per-request latency and classifier payload size. The
	// opening pages carry the prose that matters for a verdict.
	MaxPages = 10
	// Fragments shorter than this are page numbers or running headers.
	minFragmentChars = 3
	// Below this the document is treated as image-only.
	minTextChars = 10
)

// Document is the extracted text plus provenance about the source.
type Document struct {
	Text      string
	Pages     int
	Truncated bool
}

// Extract parses a PDF byte stream page by page, concatenating per-page text
// runs and filtering ultra-short fragments.
func Extract(data []byte) (Document, error) {
	reader, err := open(data)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	total := reader.NumPage()
	pages := total
	doc := Document{Pages: total}
	if pages > MaxPages {
		pages = MaxPages
		doc.Truncated = true
	}

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := pageText(page)
		if err != nil {
			// A single bad page does not doom the document.
			continue
		}
		text = strings.TrimSpace(text)
		if len(text) < minFragmentChars {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
	}

	doc.Text = normalize.CollapseWhitespace(b.String())
	if len(strings.TrimSpace(doc.Text)) < minTextChars {
		return Document{}, ErrEmpty
	}
	return doc, nil
}

// open isolates the library call so its panics on hostile input surface as
// ErrUnreadable instead of taking down the request.
func open(data []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

func pageText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf page panic: %v", r)
		}
	}()
	rows, err := page.GetTextByRow()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, row := range rows {
		var line strings.Builder
		for _, word := range row.Content {
			if line.Len() > 0 {
				line.WriteString(" ")
			}
			line.WriteString(word.S)
		}
		frag := strings.TrimSpace(line.String())
		if len(frag) < minFragmentChars {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(frag)
	}
	return b.String(), nil
}
