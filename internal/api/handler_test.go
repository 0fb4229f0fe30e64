package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/noteflow/noteflow/internal/llm"
	"github.com/noteflow/noteflow/internal/locale"
	"github.com/noteflow/noteflow/internal/note"
	"github.com/noteflow/noteflow/internal/pipeline"
	"github.com/noteflow/noteflow/internal/storage"
	"github.com/noteflow/noteflow/internal/stt"
	"github.com/noteflow/noteflow/internal/youtube"
)

const (
	testToken = "test-token-12345"
	testUser  = "user-1"
)

// --- mocks ---

func isSummaryPrompt(instructions string) bool {
	for _, loc := range locale.Supported {
		if instructions == locale.T(loc, locale.PromptSummary, nil) {
			return true
		}
	}
	return false
}

type stubModel struct {
	mu    sync.Mutex
	calls int
	reply string
}

func (m *stubModel) Respond(_ context.Context, req llm.Request) (llm.Response, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	out := m.reply
	switch {
	case len(req.Tools) > 0:
		// chat
	case isSummaryPrompt(req.Instructions):
		out = "Summary of the note."
	default:
		out = `["Ship the beta in May", "Hire a second designer"]`
	}
	return llm.Response{Output: []llm.Item{{Type: llm.TypeMessage, Role: llm.RoleAssistant, Text: out}}}, nil
}

type stubSTT struct {
	text string
	err  error
}

func (s *stubSTT) Transcribe(_ context.Context, _, _ string) (stt.Result, error) {
	return stt.Result{Text: s.text, LanguageCode: "en"}, s.err
}

type stubVision struct {
	text string
}

func (s *stubVision) ExtractText(_ context.Context, _ []byte, _, _ string) (string, error) {
	return s.text, nil
}

func (s *stubVision) Download(_ context.Context, _ string) ([]byte, string, error) {
	return []byte("img"), "image/png", nil
}

type stubVideos struct {
	lang string
}

func (s *stubVideos) Parse(_ context.Context, rawURL, lang string) (youtube.Video, error) {
	s.lang = lang
	id := youtube.ExtractVideoID(rawURL)
	if id == "" {
		return youtube.Video{}, youtube.ErrInvalidURL
	}
	return youtube.Video{ID: id, Transcript: "Video words.", Title: "A talk", SourceURL: youtube.WatchURL(id)}, nil
}

// --- helpers ---

type testEnv struct {
	handler http.Handler
	orch    *pipeline.Orchestrator
	store   *storage.Store
	stt     *stubSTT
	videos  *stubVideos
}

func setupAppHandler(t *testing.T, token string) *testEnv {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	transcriber := &stubSTT{text: "Hello from the recording."}
	videos := &stubVideos{}
	orch := pipeline.New(pipeline.Deps{
		Store:  store,
		Model:  &stubModel{reply: "You have one note."},
		STT:    transcriber,
		Vision: &stubVision{text: "Milk, eggs, bread"},
		Videos: videos,
	}, pipeline.Options{})
	t.Cleanup(orch.Wait)

	return &testEnv{
		handler: NewAppHandler(AppDeps{Pipeline: orch, Token: token, Version: "test"}),
		orch:    orch,
		store:   store,
		stt:     transcriber,
		videos:  videos,
	}
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set(UserHeader, testUser)
	return req
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) (msg, typ string) {
	t.Helper()
	var body struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding error body %q: %v", rr.Body.String(), err)
	}
	return body.Error.Message, body.Error.Type
}

func decodeNote(t *testing.T, rr *httptest.ResponseRecorder) note.Note {
	t.Helper()
	var n note.Note
	if err := json.Unmarshal(rr.Body.Bytes(), &n); err != nil {
		t.Fatalf("decoding note %q: %v", rr.Body.String(), err)
	}
	return n
}

// --- tests ---

func TestHealthNeedsNoAuth(t *testing.T) {
	env := setupAppHandler(t, testToken)
	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestBearerAuthRequired(t *testing.T) {
	env := setupAppHandler(t, testToken)

	rr := env.do(t, authReq(http.MethodGet, "/notes", "", ""))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	rr = env.do(t, authReq(http.MethodGet, "/notes", "", "wrong"))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	if _, typ := decodeError(t, rr); typ != "authentication_error" {
		t.Errorf("type = %q, want authentication_error", typ)
	}
}

func TestBearerAuthDisabledWithoutToken(t *testing.T) {
	env := setupAppHandler(t, "")
	rr := env.do(t, authReq(http.MethodGet, "/notes", "", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestUserHeaderRequired(t *testing.T) {
	env := setupAppHandler(t, testToken)
	req := authReq(http.MethodGet, "/notes", "", testToken)
	req.Header.Del(UserHeader)

	rr := env.do(t, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestCreateNoteWithTranscriptIsEnhanced(t *testing.T) {
	env := setupAppHandler(t, testToken)

	rr := env.do(t, authReq(http.MethodPost, "/notes", `{"title":"Standup","sourceType":"recording","transcript":"We agreed to ship the beta."}`, testToken))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	created := decodeNote(t, rr)
	if created.Status != note.StatusReady {
		t.Errorf("Status = %q, want %q", created.Status, note.StatusReady)
	}

	env.orch.Wait()

	rr = env.do(t, authReq(http.MethodGet, "/notes/"+created.ID, "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rr.Code)
	}
	got := decodeNote(t, rr)
	if got.AISummary != "Summary of the note." {
		t.Errorf("AISummary = %q", got.AISummary)
	}
	if len(got.Insights) != 2 {
		t.Errorf("Insights = %v, want 2 items", got.Insights)
	}
}

func TestCreateNoteInvalidSourceType(t *testing.T) {
	env := setupAppHandler(t, testToken)

	rr := env.do(t, authReq(http.MethodPost, "/notes", `{"sourceType":"fax"}`, testToken))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	msg, typ := decodeError(t, rr)
	if typ != "INPUT_INVALID" {
		t.Errorf("type = %q, want INPUT_INVALID", typ)
	}
	if msg != "Unsupported source type: fax" {
		t.Errorf("message = %q", msg)
	}
}

func TestCreateNoteInvalidJSON(t *testing.T) {
	env := setupAppHandler(t, testToken)
	rr := env.do(t, authReq(http.MethodPost, "/notes", `{not json`, testToken))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestNotesAreScopedToCaller(t *testing.T) {
	env := setupAppHandler(t, testToken)

	rr := env.do(t, authReq(http.MethodPost, "/notes", `{"title":"Mine","audioFileUrl":"https://cdn.example.com/a.m4a"}`, testToken))
	created := decodeNote(t, rr)

	other := authReq(http.MethodGet, "/notes/"+created.ID, "", testToken)
	other.Header.Set(UserHeader, "user-2")
	rr = env.do(t, other)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	if _, typ := decodeError(t, rr); typ != "NOT_FOUND" {
		t.Errorf("type = %q, want NOT_FOUND", typ)
	}

	list := authReq(http.MethodGet, "/notes", "", testToken)
	list.Header.Set(UserHeader, "user-2")
	rr = env.do(t, list)
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("other user's list = %s, want []", rr.Body.String())
	}

	rr = env.do(t, authReq(http.MethodGet, "/notes", "", testToken))
	var notes []note.Note
	if err := json.Unmarshal(rr.Body.Bytes(), &notes); err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || notes[0].ID != created.ID {
		t.Errorf("list = %+v", notes)
	}
}

func TestNotFoundIsLocalized(t *testing.T) {
	env := setupAppHandler(t, testToken)

	req := authReq(http.MethodGet, "/notes/missing", "", testToken)
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en;q=0.8")
	rr := env.do(t, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	if msg, _ := decodeError(t, rr); msg != "Заметка не найдена" {
		t.Errorf("message = %q", msg)
	}
}

func TestProcessRecording(t *testing.T) {
	env := setupAppHandler(t, testToken)

	rr := env.do(t, authReq(http.MethodPost, "/notes", `{"title":"Call","audioFileUrl":"https://cdn.example.com/call.m4a"}`, testToken))
	created := decodeNote(t, rr)
	if created.Status != note.StatusProcessing {
		t.Fatalf("Status = %q, want %q", created.Status, note.StatusProcessing)
	}

	rr = env.do(t, authReq(http.MethodPost, "/notes/"+created.ID+"/process", "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var res pipeline.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Transcript != "Hello from the recording." {
		t.Errorf("Transcript = %q", res.Transcript)
	}
	if res.Summary != "Summary of the note." {
		t.Errorf("Summary = %q", res.Summary)
	}
	if len(res.Insights) != 2 {
		t.Errorf("Insights = %v", res.Insights)
	}

	n, err := env.store.GetNote(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n.Status != note.StatusReady {
		t.Errorf("stored Status = %q, want %q", n.Status, note.StatusReady)
	}
}

func TestTranscribeFailureMarksNote(t *testing.T) {
	env := setupAppHandler(t, testToken)
	env.stt.err = errors.New("provider unavailable")

	rr := env.do(t, authReq(http.MethodPost, "/notes", `{"audioFileUrl":"https://cdn.example.com/x.m4a"}`, testToken))
	created := decodeNote(t, rr)

	rr = env.do(t, authReq(http.MethodPost, "/notes/"+created.ID+"/transcribe", `{"language":"en"}`, testToken))
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadGateway)
	}
	msg, typ := decodeError(t, rr)
	if typ != "CONTENT_ACQUISITION_FAILED" {
		t.Errorf("type = %q", typ)
	}
	if !strings.HasPrefix(msg, "Transcription failed:") {
		t.Errorf("message = %q", msg)
	}

	n, err := env.store.GetNote(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n.Status != note.StatusError {
		t.Errorf("Status = %q, want %q", n.Status, note.StatusError)
	}
}

func TestSummaryWithoutTranscript(t *testing.T) {
	env := setupAppHandler(t, testToken)
	rr := env.do(t, authReq(http.MethodPost, "/notes", `{"sourceType":"upload","title":"Empty"}`, testToken))
	created := decodeNote(t, rr)

	rr = env.do(t, authReq(http.MethodPost, "/notes/"+created.ID+"/summary", "", testToken))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestInsightsEndpoint(t *testing.T) {
	env := setupAppHandler(t, testToken)
	rr := env.do(t, authReq(http.MethodPost, "/notes", `{"transcript":"Text."}`, testToken))
	created := decodeNote(t, rr)
	env.orch.Wait()

	rr = env.do(t, authReq(http.MethodPost, "/notes/"+created.ID+"/insights", `{"count":5}`, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var body map[string][]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body["insights"]) != 2 {
		t.Errorf("insights = %v", body["insights"])
	}
}

func TestExportNote(t *testing.T) {
	env := setupAppHandler(t, testToken)
	rr := env.do(t, authReq(http.MethodPost, "/notes", `{"title":"Roadmap","transcript":"Plan the launch."}`, testToken))
	created := decodeNote(t, rr)
	env.orch.Wait()

	rr = env.do(t, authReq(http.MethodGet, "/notes/"+created.ID+"/export", "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "<h1>Roadmap</h1>") {
		t.Errorf("html missing title: %s", body)
	}
	if !strings.Contains(body, "Summary of the note.") {
		t.Errorf("html missing summary: %s", body)
	}

	rr = env.do(t, authReq(http.MethodGet, "/notes/"+created.ID+"/export?format=markdown", "", testToken))
	if !strings.HasPrefix(rr.Body.String(), "# Roadmap") {
		t.Errorf("markdown = %q", rr.Body.String())
	}
}

func TestDeleteNote(t *testing.T) {
	env := setupAppHandler(t, testToken)
	rr := env.do(t, authReq(http.MethodPost, "/notes", `{"audioFileUrl":"https://cdn.example.com/x.m4a"}`, testToken))
	created := decodeNote(t, rr)

	rr = env.do(t, authReq(http.MethodDelete, "/notes/"+created.ID, "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", rr.Code)
	}
	rr = env.do(t, authReq(http.MethodGet, "/notes/"+created.ID, "", testToken))
	if rr.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestScanNote(t *testing.T) {
	env := setupAppHandler(t, testToken)
	image := base64.StdEncoding.EncodeToString([]byte("fake image bytes"))

	rr := env.do(t, authReq(http.MethodPost, "/notes/scan", `{"image":"data:image/png;base64,`+image+`"}`, testToken))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	n := decodeNote(t, rr)
	if n.Transcript != "Milk, eggs, bread" {
		t.Errorf("Transcript = %q", n.Transcript)
	}
	if n.Title != "Scanned Note" {
		t.Errorf("Title = %q", n.Title)
	}
	if n.SourceType != note.SourceScan {
		t.Errorf("SourceType = %q", n.SourceType)
	}
}

func TestScanNoteBadBase64(t *testing.T) {
	env := setupAppHandler(t, testToken)
	rr := env.do(t, authReq(http.MethodPost, "/notes/scan", `{"image":"%%%"}`, testToken))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestOCR(t *testing.T) {
	env := setupAppHandler(t, testToken)
	image := base64.StdEncoding.EncodeToString([]byte("img"))

	rr := env.do(t, authReq(http.MethodPost, "/ocr", `{"image":"`+image+`","language":"es"}`, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var res pipeline.OCRResult
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Text != "Milk, eggs, bread" || res.Language != locale.Spanish {
		t.Errorf("result = %+v", res)
	}

	rr = env.do(t, authReq(http.MethodPost, "/ocr", `{"imageUrl":"https://cdn.example.com/a.png"}`, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("url: status = %d; body = %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, authReq(http.MethodPost, "/ocr", `{}`, testToken))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("empty: status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestYouTubeNote(t *testing.T) {
	env := setupAppHandler(t, testToken)

	rr := env.do(t, authReq(http.MethodPost, "/notes/youtube", `{"url":"https://youtu.be/dQw4w9WgXcQ"}`, testToken))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Note  note.Note     `json:"note"`
		Video youtube.Video `json:"video"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Note.Title != "A talk" || body.Video.ID != "dQw4w9WgXcQ" {
		t.Errorf("body = %+v", body)
	}
}

func TestYouTubeAcceptsLangParameter(t *testing.T) {
	env := setupAppHandler(t, testToken)

	rr := env.do(t, authReq(http.MethodPost, "/youtube/parse", `{"url":"https://youtu.be/dQw4w9WgXcQ","lang":"ru"}`, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	if env.videos.lang != "ru" {
		t.Errorf("parse hint = %q, want ru", env.videos.lang)
	}

	rr = env.do(t, authReq(http.MethodPost, "/notes/youtube?lang=uk-UA", `{"url":"https://youtu.be/dQw4w9WgXcQ"}`, testToken))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	if env.videos.lang != "uk" {
		t.Errorf("note hint = %q, want uk", env.videos.lang)
	}
}

func TestParseYouTubeInvalidURL(t *testing.T) {
	env := setupAppHandler(t, testToken)
	rr := env.do(t, authReq(http.MethodPost, "/youtube/parse", `{"url":"https://example.com/nothing"}`, testToken))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	env := setupAppHandler(t, testToken)
	doc := base64.StdEncoding.EncodeToString([]byte("plain text, not a pdf"))
	rr := env.do(t, authReq(http.MethodPost, "/notes/upload", `{"document":"`+doc+`","fileName":"notes.txt"}`, testToken))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestChat(t *testing.T) {
	env := setupAppHandler(t, testToken)

	rr := env.do(t, authReq(http.MethodPost, "/chat", `{"message":"How many notes do I have?","history":[{"participant":"user","message":"hi"}]}`, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["response"] != "You have one note." {
		t.Errorf("response = %q", body["response"])
	}
}

func TestChatEmptyMessageLocalized(t *testing.T) {
	env := setupAppHandler(t, testToken)
	rr := env.do(t, authReq(http.MethodPost, "/chat", `{"message":"  ","language":"ru"}`, testToken))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if msg, _ := decodeError(t, rr); msg != "Требуется сообщение" {
		t.Errorf("message = %q", msg)
	}
}

func TestDecodeBase64(t *testing.T) {
	b, mimeType, err := decodeBase64("data:image/webp;base64," + base64.StdEncoding.EncodeToString([]byte("x")))
	if err != nil || string(b) != "x" || mimeType != "image/webp" {
		t.Errorf("data URL = %q, %q, %v", b, mimeType, err)
	}
	b, mimeType, err = decodeBase64(base64.StdEncoding.EncodeToString([]byte("y")))
	if err != nil || string(b) != "y" || mimeType != "" {
		t.Errorf("plain = %q, %q, %v", b, mimeType, err)
	}
}

func TestLanguageFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/notes", nil)
	r.Header.Set("Accept-Language", "fr-FR;q=0.9")
	if got := language(r, ""); got != "fr-FR" {
		t.Errorf("header = %q", got)
	}
	if got := language(r, "es"); got != "es" {
		t.Errorf("explicit = %q", got)
	}
	if got := language(r, "", "pt-BR"); got != "pt-BR" {
		t.Errorf("lang body = %q", got)
	}
	r = httptest.NewRequest(http.MethodGet, "/notes?language=de", nil)
	if got := language(r, ""); got != "de" {
		t.Errorf("query = %q", got)
	}
	r = httptest.NewRequest(http.MethodGet, "/notes?lang=ru", nil)
	if got := language(r, "", ""); got != "ru" {
		t.Errorf("lang query = %q", got)
	}
}
