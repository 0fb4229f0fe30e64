// Package insights turns free-form model output into a bounded list of
// short insight strings.
package insights

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultCount is the number of insights requested when the caller does not
// specify one.
const DefaultCount = 5

// minLineLength is the shortest line the line heuristic keeps, exclusive.
const minLineLength = 10

var (
	arrayRE      = regexp.MustCompile(`\[[\s\S]*\]`)
	enumeratorRE = regexp.MustCompile(`^[\d.\-*•]+\s*`)
)

// Extract returns at most n insights from output. It first looks for a JSON
// array of strings and falls back to treating each sufficiently long line as
// an insight. It never fails; an empty result means no insights were found.
func Extract(output string, n int) []string {
	if n <= 0 {
		return []string{}
	}
	if items, ok := fromJSON(output, n); ok {
		return items
	}
	return fromLines(output, n)
}

func fromJSON(output string, n int) ([]string, bool) {
	m := arrayRE.FindString(output)
	if m == "" {
		return nil, false
	}
	var arr []any
	if err := json.Unmarshal([]byte(m), &arr); err != nil {
		return nil, false
	}
	if len(arr) > n {
		arr = arr[:n]
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		out = append(out, strings.TrimSpace(stringify(v)))
	}
	return out, true
}

func fromLines(output string, n int) []string {
	out := []string{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(enumeratorRE.ReplaceAllString(line, ""))
		if utf8.RuneCountInString(line) <= minLineLength {
			continue
		}
		out = append(out, line)
		if len(out) == n {
			break
		}
	}
	return out
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
