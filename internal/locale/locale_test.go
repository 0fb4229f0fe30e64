package locale

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want Locale
	}{
		{"", English},
		{"   ", English},
		{"en", English},
		{"RU", Russian},
		{" uk ", Ukrainian},
		{"es", Spanish},
		{"pt", Portuguese},
		{"ua", Ukrainian},
		{"ukr", Ukrainian},
		{"eng", English},
		{"rus", Russian},
		{"spa", Spanish},
		{"por", Portuguese},
		{"pt-BR", Portuguese},
		{"es-MX", Spanish},
		{"en-GB", English},
		{"ru_RU", Russian},
		{"uk-UA", Ukrainian},
		{"es-AR", Spanish},
		{"pt_AO", Portuguese},
		{"ukr-latn", Ukrainian},
		{"de", English},
		{"fr-FR", English},
		{"zz_top", English},
		{"-ru", English},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeAlwaysSupported(t *testing.T) {
	inputs := []string{"", "x", "en", "ja-JP", "pt-br", "ua", "___", "ZH_hant_TW"}
	for k := range aliases {
		inputs = append(inputs, k, strings.ToUpper(k))
	}
	for _, in := range inputs {
		got := Normalize(in)
		if !IsSupported(string(got)) {
			t.Errorf("Normalize(%q) = %q, not a supported locale", in, got)
		}
	}
}

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(map[Locale][]byte{
		English: []byte(`{
			"greeting": {"hello": "Hello, {name}!", "plain": "Hi"},
			"only": {"english": "English only"},
			"nested": {"object": {"deep": "deep value"}},
			"count": "You have {count} items and {unknown}"
		}`),
		Russian: []byte(`{
			"greeting": {"hello": "Привет, {name}!", "plain": 42},
			"only": {"english": ""}
		}`),
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return c
}

func TestCatalogResolvesLocale(t *testing.T) {
	c := newTestCatalog(t)
	got := c.T(Russian, "greeting.hello", map[string]any{"name": "Аня"})
	if got != "Привет, Аня!" {
		t.Errorf("T = %q, want %q", got, "Привет, Аня!")
	}
}

func TestCatalogFallsBackToBaseline(t *testing.T) {
	c := newTestCatalog(t)

	// Non-string leaf in ru.
	if got := c.T(Russian, "greeting.plain", nil); got != "Hi" {
		t.Errorf("non-string leaf: T = %q, want %q", got, "Hi")
	}
	// Empty string in ru.
	if got := c.T(Russian, "only.english", nil); got != "English only" {
		t.Errorf("empty leaf: T = %q, want %q", got, "English only")
	}
	// Locale with no catalog at all.
	if got := c.T(Spanish, "nested.object.deep", nil); got != "deep value" {
		t.Errorf("missing locale: T = %q, want %q", got, "deep value")
	}
}

func TestCatalogReturnsKeyWhenMissing(t *testing.T) {
	c := newTestCatalog(t)
	if got := c.T(Russian, "does.not.exist", nil); got != "does.not.exist" {
		t.Errorf("T = %q, want key verbatim", got)
	}
	// A path that resolves to an object is not a template.
	if got := c.T(English, "nested.object", nil); got != "nested.object" {
		t.Errorf("T = %q, want key verbatim", got)
	}
}

func TestCatalogLeavesUnknownPlaceholders(t *testing.T) {
	c := newTestCatalog(t)
	got := c.T(English, "count", map[string]any{"count": 5})
	want := "You have 5 items and {unknown}"
	if got != want {
		t.Errorf("T = %q, want %q", got, want)
	}
}

func TestCatalogNormalizesLocaleArgument(t *testing.T) {
	c := newTestCatalog(t)
	got := c.T(Locale("ru-RU"), "greeting.hello", map[string]any{"name": "Ivan"})
	if got != "Привет, Ivan!" {
		t.Errorf("T = %q, want %q", got, "Привет, Ivan!")
	}
}

func TestNewCatalogRejectsInvalidJSON(t *testing.T) {
	_, err := NewCatalog(map[Locale][]byte{English: []byte(`{not json`)})
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestEmbeddedCatalogsComplete(t *testing.T) {
	keys := []Key{
		PromptSummary, PromptInsights, PromptOCR, PromptChat, FallbackResponse,
		TitleUntitled, TitleScanned, TitleYouTube, TitleDocument,
		ErrNoteIDRequired, ErrNoteNotFound, ErrNoAudio, ErrNoTranscript,
		ErrImageRequired, ErrURLRequired, ErrDocumentRequired, ErrMessageRequired,
		ErrInvalidSourceType, ErrTranscriptionFailed, ErrSummaryFailed,
		ErrInsightsFailed, ErrOCRFailed, ErrYouTubeFailed, ErrDocumentFailed,
		ErrNoTextExtracted, ErrNoVideoTranscript, ErrChatFailed, ErrToolFailed,
	}
	c := Default()
	for _, l := range Supported {
		for _, k := range keys {
			if !c.Has(l, k) {
				t.Errorf("catalog %s missing %s", l, k)
			}
		}
	}
}

func TestEmbeddedInsightsPromptEmbedsCount(t *testing.T) {
	for _, l := range Supported {
		got := T(l, PromptInsights, map[string]any{"count": 7})
		if !strings.Contains(got, "7") || strings.Contains(got, "{count}") {
			t.Errorf("%s insights prompt did not substitute count: %q", l, got)
		}
	}
}

func TestEmbeddedFallbackResponse(t *testing.T) {
	if got := T(Russian, FallbackResponse, nil); got != "Извините, не удалось сгенерировать ответ." {
		t.Errorf("ru fallback = %q", got)
	}
	if got := T(Locale("de"), FallbackResponse, nil); got != T(English, FallbackResponse, nil) {
		t.Errorf("unsupported locale fallback = %q, want English", got)
	}
}
