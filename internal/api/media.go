package api

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/noteflow/noteflow/internal/assistant"
	"github.com/noteflow/noteflow/internal/pipeline"
)

// decodeBase64 accepts plain base64 or a data URL. A data URL's media type
// is returned alongside the bytes.
func decodeBase64(s string) ([]byte, string, error) {
	var mimeType string
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if found {
			mimeType, _, _ = strings.Cut(meta, ";")
			s = payload
		}
	}
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	return b, mimeType, err
}

type scanRequest struct {
	Image    string `json:"image"`
	MIMEType string `json:"mimeType"`
	Language string `json:"language"`
	Lang     string `json:"lang"`
	Title    string `json:"title"`
	FolderID string `json:"folderId"`
}

func handleScanNote(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scanRequest
		if !decodeJSON(w, r, maxMediaBodySize, &req) {
			return
		}
		image, dataType, err := decodeBase64(req.Image)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid base64 image")
			return
		}
		n, err := deps.Pipeline.CreateNoteFromScan(r.Context(), userFrom(r.Context()), pipeline.ScanInput{
			Image:    image,
			MIMEType: firstNonEmpty(req.MIMEType, dataType),
			Language: language(r, req.Language, req.Lang),
			Title:    req.Title,
			FolderID: req.FolderID,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, n)
	}
}

type youtubeRequest struct {
	URL      string `json:"url"`
	Language string `json:"language"`
	Lang     string `json:"lang"`
	Title    string `json:"title"`
	FolderID string `json:"folderId"`
}

func handleYouTubeNote(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req youtubeRequest
		if !decodeJSON(w, r, maxRequestBodySize, &req) {
			return
		}
		n, v, err := deps.Pipeline.CreateNoteFromYouTube(r.Context(), userFrom(r.Context()), pipeline.YouTubeInput{
			URL:      req.URL,
			Language: language(r, req.Language, req.Lang),
			Title:    req.Title,
			FolderID: req.FolderID,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"note": n, "video": v})
	}
}

func handleParseYouTube(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req youtubeRequest
		if !decodeJSON(w, r, maxRequestBodySize, &req) {
			return
		}
		v, err := deps.Pipeline.ParseYouTube(r.Context(), req.URL, language(r, req.Language, req.Lang))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

type uploadRequest struct {
	Document string `json:"document"`
	FileName string `json:"fileName"`
	Language string `json:"language"`
	Lang     string `json:"lang"`
	Title    string `json:"title"`
	FolderID string `json:"folderId"`
}

func handleUploadNote(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req uploadRequest
		if !decodeJSON(w, r, maxMediaBodySize, &req) {
			return
		}
		doc, _, err := decodeBase64(req.Document)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid base64 document")
			return
		}
		n, err := deps.Pipeline.CreateNoteFromUpload(r.Context(), userFrom(r.Context()), pipeline.UploadInput{
			Document: doc,
			FileName: req.FileName,
			Language: language(r, req.Language, req.Lang),
			Title:    req.Title,
			FolderID: req.FolderID,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, n)
	}
}

type ocrRequest struct {
	Image    string `json:"image"`
	ImageURL string `json:"imageUrl"`
	MIMEType string `json:"mimeType"`
	Language string `json:"language"`
	Lang     string `json:"lang"`
}

// handleOCR reads text from an inline image, or from imageUrl when no image
// is sent.
func handleOCR(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ocrRequest
		if !decodeJSON(w, r, maxMediaBodySize, &req) {
			return
		}
		lang := language(r, req.Language, req.Lang)

		var (
			res pipeline.OCRResult
			err error
		)
		if req.Image == "" && req.ImageURL != "" {
			res, err = deps.Pipeline.OCRFromURL(r.Context(), req.ImageURL, lang)
		} else {
			image, dataType, decErr := decodeBase64(req.Image)
			if decErr != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid base64 image")
				return
			}
			res, err = deps.Pipeline.OCR(r.Context(), image, firstNonEmpty(req.MIMEType, dataType), lang)
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type chatRequest struct {
	Message  string           `json:"message"`
	History  []assistant.Turn `json:"history"`
	Language string           `json:"language"`
	Lang     string           `json:"lang"`
}

func handleChat(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if !decodeJSON(w, r, maxRequestBodySize, &req) {
			return
		}
		reply, err := deps.Pipeline.Chat(r.Context(), userFrom(r.Context()), req.Message, req.History, language(r, req.Language, req.Lang))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"response": reply})
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
