// Package vision extracts text from images with the Gemini API.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/noteflow/noteflow/internal/httpretry"
)

const (
	DefaultBaseURL  = "https://generativelanguage.googleapis.com"
	DefaultModel    = "gemini-2.0-flash"
	DefaultMIMEType = "image/jpeg"
	defaultTimeout  = 120 * time.Second
	downloadTimeout = 60 * time.Second
	maxImageBytes   = 20 << 20
)

// Client calls generateContent with an inline image.
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

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// ExtractText sends the image with the instruction prompt and returns the
// trimmed text of the first candidate. An empty string means the model found
// no text. An empty mimeType means image/jpeg.
func (c *Client) ExtractText(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	if len(image) == 0 {
		return "", errors.New("image is empty")
	}
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{
			{Text: prompt},
			{InlineData: &inlineData{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
		}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var out generateResponse
	err = httpretry.Do(ctx, c.retry, func(ctx context.Context) error {
		var err error
		out, err = c.generate(ctx, body)
		return err
	})
	if err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text), nil
}

func (c *Client) generate(ctx context.Context, body []byte) (generateResponse, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return generateResponse{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return generateResponse{}, fmt.Errorf("executing request: %w", err)
	}
	if err := httpretry.CheckResponse(resp); err != nil {
		return generateResponse{}, err
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return generateResponse{}, fmt.Errorf("decoding response: %w", err)
	}
	return out, nil
}

// MIMETypeFromURL guesses the image type from the URL, defaulting to JPEG.
func MIMETypeFromURL(imageURL string) string {
	u := strings.ToLower(imageURL)
	switch {
	case strings.Contains(u, ".png"):
		return "image/png"
	case strings.Contains(u, ".gif"):
		return "image/gif"
	case strings.Contains(u, ".webp"):
		return "image/webp"
	default:
		return DefaultMIMEType
	}
}

// Download fetches an image and returns its bytes and a MIME type inferred
// from the URL.
func (c *Client) Download(ctx context.Context, imageURL string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("downloading image: %w", err)
	}
	if err := httpretry.CheckResponse(resp); err != nil {
		return nil, "", fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	return data, MIMETypeFromURL(imageURL), nil
}
