// Package document extracts plain text from uploaded PDF files.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MaxSize is the largest document accepted for extraction.
const MaxSize = 25 << 20

var (
	ErrNotPDF   = errors.New("document is not a PDF")
	ErrTooLarge = fmt.Errorf("document exceeds %d bytes", MaxSize)
	ErrNoText   = errors.New("document contains no extractable text")
)

// Text is the extracted content of a document.
type Text struct {
	Content string
	Pages   int
}

// Extract returns the text of every page joined by blank lines. Pages that
// fail to decode are skipped.
func Extract(data []byte) (Text, error) {
	if len(data) > MaxSize {
		return Text{}, ErrTooLarge
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return Text{}, ErrNotPDF
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Text{}, fmt.Errorf("opening pdf: %w", err)
	}

	total := r.NumPage()
	parts := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range p.Fonts() {
			f := p.Font(name)
			fonts[name] = &f
		}
		text, err := p.GetPlainText(fonts)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}

	content := strings.Join(parts, "\n\n")
	if content == "" {
		return Text{Pages: total}, ErrNoText
	}
	return Text{Content: content, Pages: total}, nil
}
