package locale

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

//go:embed locales/*.json
var localesFS embed.FS

// Key is a dot-separated path into a locale's template table.
type Key string

const (
	PromptSummary    Key = "prompts.summary"
	PromptInsights   Key = "prompts.insights"
	PromptOCR        Key = "prompts.ocr"
	PromptChat       Key = "prompts.chat"
	FallbackResponse Key = "fallback.response"

	TitleUntitled Key = "notes.untitled"
	TitleScanned  Key = "notes.scanned"
	TitleYouTube  Key = "notes.youtube"
	TitleDocument Key = "notes.document"

	ErrNoteIDRequired      Key = "errors.note_id_required"
	ErrNoteNotFound        Key = "errors.note_not_found"
	ErrNoAudio             Key = "errors.no_audio"
	ErrNoTranscript        Key = "errors.no_transcript"
	ErrImageRequired       Key = "errors.image_required"
	ErrURLRequired         Key = "errors.url_required"
	ErrDocumentRequired    Key = "errors.document_required"
	ErrMessageRequired     Key = "errors.message_required"
	ErrInvalidSourceType   Key = "errors.invalid_source_type"
	ErrTranscriptionFailed Key = "errors.transcription_failed"
	ErrSummaryFailed       Key = "errors.summary_failed"
	ErrInsightsFailed      Key = "errors.insights_failed"
	ErrOCRFailed           Key = "errors.ocr_failed"
	ErrYouTubeFailed       Key = "errors.youtube_failed"
	ErrDocumentFailed      Key = "errors.document_failed"
	ErrNoTextExtracted     Key = "errors.no_text_extracted"
	ErrNoVideoTranscript   Key = "errors.no_video_transcript"
	ErrChatFailed          Key = "errors.chat_failed"
	ErrToolFailed          Key = "errors.tool_failed"
)

var placeholderRE = regexp.MustCompile(`\{(\w+)\}`)

// Catalog holds flattened templates per locale.
type Catalog struct {
	entries map[Locale]map[Key]string
}

// NewCatalog builds a catalog from nested JSON documents keyed by locale.
// Leaves that are not strings are ignored so lookups fall through to the
// baseline locale.
func NewCatalog(docs map[Locale][]byte) (*Catalog, error) {
	c := &Catalog{entries: make(map[Locale]map[Key]string, len(docs))}
	for loc, data := range docs {
		var tree map[string]any
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parsing %s catalog: %w", loc, err)
		}
		flat := make(map[Key]string)
		flatten("", tree, flat)
		c.entries[loc] = flat
	}
	return c, nil
}

func flatten(prefix string, node map[string]any, out map[Key]string) {
	for k, v := range node {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		switch val := v.(type) {
		case string:
			out[Key(path)] = val
		case map[string]any:
			flatten(path, val, out)
		}
	}
}

// T resolves key for loc, falling back to the baseline locale and then to the
// key itself. Params replace {name} placeholders; unknown placeholders are
// left as-is.
func (c *Catalog) T(loc Locale, key Key, params map[string]any) string {
	tmpl, ok := c.entries[Normalize(string(loc))][key]
	if !ok || tmpl == "" {
		tmpl, ok = c.entries[Baseline][key]
	}
	if !ok {
		return string(key)
	}
	return interpolate(tmpl, params)
}

// Has reports whether loc defines key without falling back.
func (c *Catalog) Has(loc Locale, key Key) bool {
	_, ok := c.entries[loc][key]
	return ok
}

func interpolate(tmpl string, params map[string]any) string {
	if !strings.Contains(tmpl, "{") {
		return tmpl
	}
	return placeholderRE.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := m[1 : len(m)-1]
		if v, ok := params[name]; ok {
			return fmt.Sprint(v)
		}
		return m
	})
}

var defaultCatalog = mustLoadEmbedded()

func mustLoadEmbedded() *Catalog {
	docs := make(map[Locale][]byte, len(Supported))
	for _, l := range Supported {
		data, err := localesFS.ReadFile("locales/" + string(l) + ".json")
		if err != nil {
			panic(fmt.Sprintf("locale: missing embedded catalog %s: %v", l, err))
		}
		docs[l] = data
	}
	c, err := NewCatalog(docs)
	if err != nil {
		panic("locale: " + err.Error())
	}
	return c
}

// T resolves key against the embedded catalogs.
func T(loc Locale, key Key, params map[string]any) string {
	return defaultCatalog.T(loc, key, params)
}

// Default returns the embedded catalog.
func Default() *Catalog { return defaultCatalog }
