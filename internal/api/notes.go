package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noteflow/noteflow/internal/note"
	"github.com/noteflow/noteflow/internal/pipeline"
)

type createNoteRequest struct {
	Title        string `json:"title"`
	FolderID     string `json:"folderId"`
	SourceType   string `json:"sourceType"`
	SourceURL    string `json:"sourceUrl"`
	AudioFileURL string `json:"audioFileUrl"`
	Transcript   string `json:"transcript"`
	Language     string `json:"language"`
	Lang         string `json:"lang"`
}

func handleCreateNote(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createNoteRequest
		if !decodeJSON(w, r, maxRequestBodySize, &req) {
			return
		}
		n, err := deps.Pipeline.CreateNote(r.Context(), userFrom(r.Context()), pipeline.NewNote{
			Title:        req.Title,
			FolderID:     req.FolderID,
			SourceType:   note.SourceType(req.SourceType),
			SourceURL:    req.SourceURL,
			AudioFileURL: req.AudioFileURL,
			Transcript:   req.Transcript,
			Language:     language(r, req.Language, req.Lang),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, n)
	}
}

func handleListNotes(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		notes, err := deps.Pipeline.ListNotes(r.Context(), userFrom(r.Context()), limit, offset)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if notes == nil {
			notes = []note.Note{}
		}
		writeJSON(w, http.StatusOK, notes)
	}
}

func handleGetNote(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := deps.Pipeline.GetNote(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context()), language(r, ""))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, n)
	}
}

func handleDeleteNote(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Pipeline.DeleteNote(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context()), language(r, "")); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// handleExportNote renders a note as HTML, or as Markdown with
// ?format=markdown.
func handleExportNote(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := deps.Pipeline.GetNote(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context()), language(r, ""))
		if err != nil {
			writeError(w, r, err)
			return
		}

		if r.URL.Query().Get("format") == "markdown" {
			w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
			w.Write([]byte(n.Markdown()))
			return
		}
		html, err := n.RenderHTML()
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(html))
	}
}

type stageRequest struct {
	Language string `json:"language"`
	Lang     string `json:"lang"`
	Count    int    `json:"count"`
}

// decodeStage reads the optional body of a stage request.
func decodeStage(w http.ResponseWriter, r *http.Request) (stageRequest, bool) {
	var req stageRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return req, false
	}
	return req, true
}

func handleProcessNote(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeStage(w, r)
		if !ok {
			return
		}
		res, err := deps.Pipeline.ProcessNote(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context()), language(r, req.Language, req.Lang))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if res.Insights == nil {
			res.Insights = []string{}
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleTranscribe(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeStage(w, r)
		if !ok {
			return
		}
		transcript, err := deps.Pipeline.Transcribe(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context()), language(r, req.Language, req.Lang))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"transcript": transcript})
	}
}

func handleSummarize(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeStage(w, r)
		if !ok {
			return
		}
		summary, err := deps.Pipeline.Summarize(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context()), language(r, req.Language, req.Lang))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
	}
}

func handleInsights(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeStage(w, r)
		if !ok {
			return
		}
		items, err := deps.Pipeline.ExtractInsights(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context()), req.Count, language(r, req.Language, req.Lang))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if items == nil {
			items = []string{}
		}
		writeJSON(w, http.StatusOK, map[string][]string{"insights": items})
	}
}
