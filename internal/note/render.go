package note

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
)

// Markdown renders the note as a markdown document.
func (n Note) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", n.Title)
	if n.SourceURL != "" {
		fmt.Fprintf(&b, "<%s>\n\n", n.SourceURL)
	}
	if n.AISummary != "" {
		fmt.Fprintf(&b, "## Summary\n\n%s\n\n", strings.TrimSpace(n.AISummary))
	}
	if len(n.Insights) > 0 {
		b.WriteString("## Insights\n\n")
		for _, in := range n.Insights {
			fmt.Fprintf(&b, "- %s\n", in)
		}
		b.WriteString("\n")
	}
	if n.MyNotes != "" {
		fmt.Fprintf(&b, "## My notes\n\n%s\n\n", strings.TrimSpace(n.MyNotes))
	}
	if n.Transcript != "" {
		fmt.Fprintf(&b, "## Transcript\n\n%s\n", strings.TrimSpace(n.Transcript))
	}
	return b.String()
}

// RenderHTML converts the note's markdown form to HTML.
func (n Note) RenderHTML() (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(n.Markdown()), &buf); err != nil {
		return "", fmt.Errorf("rendering note %s: %w", n.ID, err)
	}
	return buf.String(), nil
}
