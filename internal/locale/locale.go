// Package locale normalizes free-form language tags into the supported set
// and resolves localized prompt and message templates.
package locale

import "strings"

// Locale is one of the supported language tags.
type Locale string

const (
	English    Locale = "en"
	Russian    Locale = "ru"
	Ukrainian  Locale = "uk"
	Spanish    Locale = "es"
	Portuguese Locale = "pt"
)

// Baseline is the universal fallback locale.
const Baseline = English

// Supported lists every locale in catalog order.
var Supported = []Locale{English, Russian, Ukrainian, Spanish, Portuguese}

var aliases = map[string]Locale{
	"ua":    Ukrainian,
	"ukr":   Ukrainian,
	"eng":   English,
	"rus":   Russian,
	"spa":   Spanish,
	"por":   Portuguese,
	"pt-br": Portuguese,
	"pt-pt": Portuguese,
	"es-es": Spanish,
	"es-mx": Spanish,
	"ru-ru": Russian,
	"uk-ua": Ukrainian,
	"en-us": English,
	"en-gb": English,
}

// IsSupported reports whether tag is exactly one of the supported locales.
func IsSupported(tag string) bool {
	for _, l := range Supported {
		if string(l) == tag {
			return true
		}
	}
	return false
}

// Normalize maps a language hint to a supported locale. It never fails:
// unknown or empty input yields Baseline.
func Normalize(tag string) Locale {
	t := strings.ToLower(strings.TrimSpace(tag))
	if t == "" {
		return Baseline
	}
	if l, ok := lookup(t); ok {
		return l
	}

	if i := strings.IndexAny(t, "-_"); i >= 0 {
		if l, ok := lookup(t[:i]); ok {
			return l
		}
	}
	return Baseline
}

func lookup(t string) (Locale, bool) {
	if IsSupported(t) {
		return Locale(t), true
	}
	if l, ok := aliases[t]; ok {
		return l, true
	}
	return "", false
}

func (l Locale) String() string { return string(l) }
