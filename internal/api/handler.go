// Package api serves the note pipeline over HTTP and MCP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noteflow/noteflow/internal/pipeline"
)

type AppDeps struct {
	Pipeline *pipeline.Orchestrator
	Token    string
	Version  string
}

// NewAppHandler builds the HTTP API. Everything except /health requires the
// bearer token (when configured) and a caller identity.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", handleHealth(deps.Version))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Use(RequireUser)

		r.Route("/notes", func(r chi.Router) {
			r.Post("/", handleCreateNote(deps))
			r.Get("/", handleListNotes(deps))
			r.Post("/scan", handleScanNote(deps))
			r.Post("/youtube", handleYouTubeNote(deps))
			r.Post("/upload", handleUploadNote(deps))

			r.Get("/{id}", handleGetNote(deps))
			r.Delete("/{id}", handleDeleteNote(deps))
			r.Get("/{id}/export", handleExportNote(deps))
			r.Post("/{id}/process", handleProcessNote(deps))
			r.Post("/{id}/transcribe", handleTranscribe(deps))
			r.Post("/{id}/summary", handleSummarize(deps))
			r.Post("/{id}/insights", handleInsights(deps))
		})

		r.Post("/ocr", handleOCR(deps))
		r.Post("/youtube/parse", handleParseYouTube(deps))
		r.Post("/chat", handleChat(deps))
	})

	return r
}

func handleHealth(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version})
	}
}
