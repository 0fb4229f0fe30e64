package stt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/noteflow/noteflow/internal/httpretry"
)

func newTestClient(url string) *Client {
	c := NewClient("xi-test", url, "")
	c.retry = httpretry.Policy{MaxRetries: 2, InitialInterval: time.Millisecond, MaxElapsedTime: time.Second}
	return c
}

func TestTranscribe(t *testing.T) {
	var key, model, audio, lang, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("xi-api-key")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		model = r.FormValue("model_id")
		audio = r.FormValue("cloud_storage_url")
		lang = r.FormValue("language_code")
		fmt.Fprint(w, `{"text":"  hello world \n","language_code":"en"}`)
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Transcribe(context.Background(), "https://cdn.example/a.m4a", "en")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "hello world" {
		t.Errorf("Text = %q, want %q", res.Text, "hello world")
	}
	if res.LanguageCode != "en" {
		t.Errorf("LanguageCode = %q", res.LanguageCode)
	}
	if path != "/v1/speech-to-text" {
		t.Errorf("path = %q", path)
	}
	if key != "xi-test" {
		t.Errorf("xi-api-key = %q", key)
	}
	if model != DefaultModel {
		t.Errorf("model_id = %q, want %q", model, DefaultModel)
	}
	if audio != "https://cdn.example/a.m4a" {
		t.Errorf("cloud_storage_url = %q", audio)
	}
	if lang != "en" {
		t.Errorf("language_code = %q", lang)
	}
}

func TestTranscribeOmitsEmptyLanguage(t *testing.T) {
	var present bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		_, present = r.MultipartForm.Value["language_code"]
		fmt.Fprint(w, `{"text":"x"}`)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).Transcribe(context.Background(), "https://a", ""); err != nil {
		t.Fatal(err)
	}
	if present {
		t.Error("language_code sent without a hint")
	}
}

func TestTranscribeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"text":"ok"}`)
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Transcribe(context.Background(), "https://a", "")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "ok" || calls.Load() != 2 {
		t.Errorf("Text = %q after %d calls", res.Text, calls.Load())
	}
}

func TestTranscribeClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"detail":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Transcribe(context.Background(), "https://a", "")
	var se *httpretry.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401 StatusError", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestTranscribeRequiresURL(t *testing.T) {
	if _, err := NewClient("k", "", "").Transcribe(context.Background(), "", "en"); err == nil {
		t.Error("expected error for empty audio url")
	}
}
