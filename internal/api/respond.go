package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/noteflow/noteflow/internal/apperr"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB
	// Base64 media bodies: a 25MB PDF grows to about 34MB once encoded.
	maxMediaBodySize = 36 << 20
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}

// writeError reports a pipeline failure. Typed failures carry their own
// status and localized message; anything else is an internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *apperr.Error
	if errors.As(err, &e) {
		httpError(w, e.Kind.Status(), string(e.Kind), "%s", e.Message)
		return
	}
	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	httpError(w, http.StatusInternalServerError, "api_error", "internal error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

// language picks the request's language hint: the first non-empty body
// value, then the language or lang query parameter, then the first
// Accept-Language tag. It is not normalized so an empty hint still means
// auto-detect for transcription.
func language(r *http.Request, body ...string) string {
	if v := firstNonEmpty(body...); v != "" {
		return v
	}
	q := r.URL.Query()
	if v := firstNonEmpty(q.Get("language"), q.Get("lang")); v != "" {
		return v
	}
	tag, _, _ := strings.Cut(r.Header.Get("Accept-Language"), ",")
	tag, _, _ = strings.Cut(tag, ";")
	return strings.TrimSpace(tag)
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
