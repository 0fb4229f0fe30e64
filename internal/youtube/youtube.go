// Package youtube fetches video transcripts and metadata.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noteflow/noteflow/internal/httpretry"
)

const (
	TranscriptHost   = "youtube-transcriptor.p.rapidapi.com"
	DefaultOEmbedURL = "https://www.youtube.com/oembed"
	defaultTimeout   = 60 * time.Second
	watchURLPrefix   = "https://www.youtube.com/watch?v="
	metadataTimeout  = 10 * time.Second
)

var (
	// ErrInvalidURL is returned when no video ID can be found in the input.
	ErrInvalidURL = errors.New("invalid YouTube URL or video ID")
	// ErrNoTranscript is returned when the video has no usable transcript.
	ErrNoTranscript = errors.New("no transcript available for this video")
)

var (
	bareID  = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	pathID  = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/v/|youtube\.com/shorts/|youtube\.com/live/)([a-zA-Z0-9_-]{11})`)
	paramID = regexp.MustCompile(`[?&]v=([a-zA-Z0-9_-]{11})`)
)

// ExtractVideoID returns the 11 character video ID from a YouTube URL in any
// of its common forms, or from a bare ID. It returns "" when none is found.
func ExtractVideoID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	if bareID.MatchString(raw) {
		return raw
	}
	for _, re := range []*regexp.Regexp{pathID, paramID} {
		if m := re.FindStringSubmatch(raw); m != nil {
			return m[1]
		}
	}
	return ""
}

// WatchURL is the canonical page URL of a video.
func WatchURL(videoID string) string { return watchURLPrefix + videoID }

// Video is a parsed video. Title is empty when neither the transcript
// service nor oEmbed knows it.
type Video struct {
	ID            string `json:"videoId"`
	Transcript    string `json:"transcript"`
	Title         string `json:"title,omitempty"`
	AuthorName    string `json:"authorName,omitempty"`
	ThumbnailURL  string `json:"thumbnailUrl,omitempty"`
	LengthSeconds int    `json:"lengthInSeconds,omitempty"`
	Language      string `json:"language,omitempty"`
	SourceURL     string `json:"sourceUrl"`
}

// Metadata is what oEmbed reports about a video.
type Metadata struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Client talks to the RapidAPI transcript service and YouTube oEmbed.
type Client struct {
	apiKey        string
	transcriptURL string
	oembedURL     string
	httpClient    *http.Client
	retry         httpretry.Policy
}

// NewClient creates a client for the public endpoints.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:        apiKey,
		transcriptURL: "https://" + TranscriptHost,
		oembedURL:     DefaultOEmbedURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		retry: httpretry.DefaultPolicy(),
	}
}

// NewClientWithBaseURLs points both endpoints elsewhere (tests, proxies).
func NewClientWithBaseURLs(apiKey, transcriptURL, oembedURL string) *Client {
	c := NewClient(apiKey)
	if transcriptURL != "" {
		c.transcriptURL = strings.TrimRight(transcriptURL, "/")
	}
	if oembedURL != "" {
		c.oembedURL = oembedURL
	}
	return c
}

// Parse fetches the transcript and metadata of a video concurrently.
// Metadata is best effort; a transcript failure fails the call.
func (c *Client) Parse(ctx context.Context, rawURL, lang string) (Video, error) {
	id := ExtractVideoID(rawURL)
	if id == "" {
		return Video{}, fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}

	var (
		tr   transcriptResult
		meta *Metadata
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tr, err = c.transcript(gCtx, id, lang)
		return err
	})
	g.Go(func() error {
		m, err := c.Metadata(gCtx, id)
		if err != nil {
			slog.Warn("could not fetch video metadata", "video_id", id, "error", err)
			return nil
		}
		meta = &m
		return nil
	})
	if err := g.Wait(); err != nil {
		return Video{}, err
	}

	v := Video{
		ID:            id,
		Transcript:    tr.Text,
		Title:         tr.Title,
		LengthSeconds: int(tr.LengthSeconds),
		Language:      lang,
		SourceURL:     WatchURL(id),
	}
	if len(tr.Thumbnails) > 0 {
		v.ThumbnailURL = tr.Thumbnails[0].URL
	}
	if meta != nil {
		if v.Title == "" {
			v.Title = meta.Title
		}
		if v.ThumbnailURL == "" {
			v.ThumbnailURL = meta.ThumbnailURL
		}
		v.AuthorName = meta.AuthorName
	}
	return v, nil
}

type thumbnail struct {
	URL string `json:"url"`
}

// flexInt accepts both numbers and numeric strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	*f = flexInt(n)
	return nil
}

type transcriptResult struct {
	Title         string      `json:"title"`
	Text          string      `json:"transcriptionAsText"`
	LengthSeconds flexInt     `json:"lengthInSeconds"`
	Thumbnails    []thumbnail `json:"thumbnails"`
}

func (c *Client) transcript(ctx context.Context, id, lang string) (transcriptResult, error) {
	q := url.Values{"video_id": {id}}
	if lang != "" {
		q.Set("lang", lang)
	}
	endpoint := c.transcriptURL + "/transcript?" + q.Encode()

	var raw json.RawMessage
	err := httpretry.Do(ctx, c.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("x-rapidapi-host", TranscriptHost)
		req.Header.Set("x-rapidapi-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request: %w", err)
		}
		if err := httpretry.CheckResponse(resp); err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	})
	if err != nil {
		return transcriptResult{}, fmt.Errorf("fetching transcript for %s: %w", id, err)
	}

	// The service answers with an object instead of an array when the video
	// has no captions.
	var results []transcriptResult
	if err := json.Unmarshal(raw, &results); err != nil || len(results) == 0 {
		return transcriptResult{}, ErrNoTranscript
	}
	r := results[0]
	r.Text = strings.TrimSpace(r.Text)
	if r.Text == "" {
		return transcriptResult{}, ErrNoTranscript
	}
	return r, nil
}

// Metadata fetches the oEmbed description of a video.
func (c *Client) Metadata(ctx context.Context, videoID string) (Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	q := url.Values{"url": {WatchURL(videoID)}, "format": {"json"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.oembedURL+"?"+q.Encode(), nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Metadata{}, fmt.Errorf("executing request: %w", err)
	}
	if err := httpretry.CheckResponse(resp); err != nil {
		return Metadata{}, err
	}
	defer resp.Body.Close()

	var m Metadata
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return Metadata{}, fmt.Errorf("decoding response: %w", err)
	}
	return m, nil
}
