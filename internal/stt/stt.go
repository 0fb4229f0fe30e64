// Package stt is a client for the ElevenLabs speech-to-text API.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/noteflow/noteflow/internal/httpretry"
)

const (
	DefaultBaseURL = "https://api.elevenlabs.io"
	DefaultModel   = "scribe_v1"
	defaultTimeout = 10 * time.Minute
)

// Result is a finished transcription.
type Result struct {
	Text         string `json:"text"`
	LanguageCode string `json:"language_code"`
}

// Client transcribes audio that is already reachable by URL.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	retry      httpretry.Policy
}

// NewClient creates a client. Empty baseURL and model use the defaults.
func NewClient(apiKey, baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		retry: httpretry.DefaultPolicy(),
	}
}

// Transcribe converts the audio at audioURL to text. languageCode is a hint
// and may be empty.
func (c *Client) Transcribe(ctx context.Context, audioURL, languageCode string) (Result, error) {
	if audioURL == "" {
		return Result{}, errors.New("audio url is required")
	}
	body, contentType, err := c.form(audioURL, languageCode)
	if err != nil {
		return Result{}, fmt.Errorf("building form: %w", err)
	}

	var out Result
	err = httpretry.Do(ctx, c.retry, func(ctx context.Context) error {
		var err error
		out, err = c.do(ctx, body, contentType)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	out.Text = strings.TrimSpace(out.Text)
	return out, nil
}

func (c *Client) form(audioURL, languageCode string) ([]byte, string, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	fields := [][2]string{
		{"model_id", c.model},
		{"cloud_storage_url", audioURL},
	}
	if languageCode != "" {
		fields = append(fields, [2]string{"language_code", languageCode})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return b.Bytes(), w.FormDataContentType(), nil
}

func (c *Client) do(ctx context.Context, body []byte, contentType string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/speech-to-text", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("executing request: %w", err)
	}
	if err := httpretry.CheckResponse(resp); err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("decoding response: %w", err)
	}
	return out, nil
}
