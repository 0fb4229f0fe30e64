package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/noteflow/noteflow/internal/apperr"
	"github.com/noteflow/noteflow/internal/document"
	"github.com/noteflow/noteflow/internal/locale"
	"github.com/noteflow/noteflow/internal/note"
	"github.com/noteflow/noteflow/internal/youtube"
)

var errNoTextExtracted = errors.New("no text extracted")

// NewNote describes a note whose content is supplied by the client.
type NewNote struct {
	Title        string
	FolderID     string
	SourceType   note.SourceType
	SourceURL    string
	AudioFileURL string
	Transcript   string
	Language     string
}

// CreateNote stores a client-supplied note. A recording without a
// transcript starts in processing and waits for Transcribe. A note that
// arrives with a transcript starts ready and is enhanced in the background.
func (o *Orchestrator) CreateNote(ctx context.Context, userID string, in NewNote) (note.Note, error) {
	loc := locale.Normalize(in.Language)
	if in.SourceType == "" {
		in.SourceType = note.SourceRecording
	}
	if !in.SourceType.Valid() {
		return note.Note{}, apperr.NewInputInvalid(loc, locale.ErrInvalidSourceType, map[string]any{"sourceType": in.SourceType})
	}

	transcript := strings.TrimSpace(in.Transcript)
	status := note.StatusReady
	if transcript == "" && in.SourceType == note.SourceRecording {
		status = note.StatusProcessing
	}

	n := note.New(userID, in.SourceType, status)
	n.Title = firstNonEmpty(in.Title, locale.T(loc, locale.TitleUntitled, nil))
	n.FolderID = in.FolderID
	n.SourceURL = in.SourceURL
	n.AudioFileURL = in.AudioFileURL
	n.Transcript = transcript
	n.Language = languageOf(in.Language, loc)

	saved, err := o.save(n)
	if err != nil {
		return note.Note{}, err
	}
	o.logger.Info("note created", "note_id", saved.ID, "source", saved.SourceType, "status", saved.Status)
	if saved.HasTranscript() {
		o.enhanceInBackground(ctx, saved, loc)
	}
	return saved, nil
}

// ScanInput is an image to turn into a note.
type ScanInput struct {
	Image    []byte
	MIMEType string
	Language string
	Title    string
	FolderID string
}

// CreateNoteFromScan reads the text of an image and stores it as a ready
// note, then enhances it in the background.
func (o *Orchestrator) CreateNoteFromScan(ctx context.Context, userID string, in ScanInput) (note.Note, error) {
	loc := locale.Normalize(in.Language)
	if len(in.Image) == 0 {
		return note.Note{}, apperr.NewInputInvalid(loc, locale.ErrImageRequired, nil)
	}

	ocr, err := o.OCR(ctx, in.Image, in.MIMEType, loc.String())
	if err != nil {
		return note.Note{}, err
	}
	if ocr.Text == "" {
		return note.Note{}, apperr.NewContentAcquisitionFailed(loc, locale.ErrNoTextExtracted, errNoTextExtracted)
	}

	n := note.New(userID, note.SourceScan, note.StatusReady)
	n.Title = firstNonEmpty(in.Title, locale.T(loc, locale.TitleScanned, nil))
	n.FolderID = in.FolderID
	n.Transcript = ocr.Text
	n.Language = loc.String()
	return o.storeAndEnhance(ctx, n, loc)
}

// ParseYouTube fetches a video's transcript and metadata. The title falls
// back to a generic one built from the video ID.
func (o *Orchestrator) ParseYouTube(ctx context.Context, rawURL, lang string) (youtube.Video, error) {
	loc := locale.Normalize(lang)
	if strings.TrimSpace(rawURL) == "" {
		return youtube.Video{}, apperr.NewInputInvalid(loc, locale.ErrURLRequired, nil)
	}
	if o.videos == nil {
		return youtube.Video{}, apperr.NewContentAcquisitionFailed(loc, locale.ErrYouTubeFailed, errNoVideos)
	}

	hint := ""
	if strings.TrimSpace(lang) != "" {
		hint = loc.String()
	}
	v, err := o.videos.Parse(ctx, rawURL, hint)
	switch {
	case errors.Is(err, youtube.ErrInvalidURL):
		return youtube.Video{}, apperr.NewInputInvalid(loc, locale.ErrYouTubeFailed, map[string]any{"message": err.Error()})
	case errors.Is(err, youtube.ErrNoTranscript):
		return youtube.Video{}, apperr.NewContentAcquisitionFailed(loc, locale.ErrNoVideoTranscript, err)
	case err != nil:
		o.logger.Error("youtube parsing failed", "url", rawURL, "error", err)
		return youtube.Video{}, apperr.NewContentAcquisitionFailed(loc, locale.ErrYouTubeFailed, err)
	}
	if strings.TrimSpace(v.Transcript) == "" {
		return youtube.Video{}, apperr.NewContentAcquisitionFailed(loc, locale.ErrNoVideoTranscript, youtube.ErrNoTranscript)
	}
	if v.Title == "" {
		v.Title = locale.T(loc, locale.TitleYouTube, map[string]any{"id": v.ID})
	}
	o.logger.Info("youtube parsed", "video_id", v.ID, "chars", len(v.Transcript))
	return v, nil
}

// YouTubeInput is a video to turn into a note.
type YouTubeInput struct {
	URL      string
	Language string
	Title    string
	FolderID string
}

// CreateNoteFromYouTube stores a video transcript as a ready note, then
// enhances it in the background. The parsed video is returned alongside.
func (o *Orchestrator) CreateNoteFromYouTube(ctx context.Context, userID string, in YouTubeInput) (note.Note, youtube.Video, error) {
	loc := locale.Normalize(in.Language)
	v, err := o.ParseYouTube(ctx, in.URL, in.Language)
	if err != nil {
		return note.Note{}, youtube.Video{}, err
	}

	n := note.New(userID, note.SourceYouTube, note.StatusReady)
	n.Title = firstNonEmpty(in.Title, v.Title)
	n.FolderID = in.FolderID
	n.SourceURL = v.SourceURL
	n.Transcript = v.Transcript
	n.Language = languageOf(in.Language, loc)

	saved, err := o.storeAndEnhance(ctx, n, loc)
	if err != nil {
		return note.Note{}, youtube.Video{}, err
	}
	return saved, v, nil
}

// UploadInput is a PDF document to turn into a note.
type UploadInput struct {
	Document []byte
	FileName string
	Language string
	Title    string
	FolderID string
}

// CreateNoteFromUpload extracts the text of a PDF and stores it as a ready
// note, then enhances it in the background.
func (o *Orchestrator) CreateNoteFromUpload(ctx context.Context, userID string, in UploadInput) (note.Note, error) {
	loc := locale.Normalize(in.Language)
	if len(in.Document) == 0 {
		return note.Note{}, apperr.NewInputInvalid(loc, locale.ErrDocumentRequired, nil)
	}

	doc, err := document.Extract(in.Document)
	switch {
	case errors.Is(err, document.ErrNotPDF), errors.Is(err, document.ErrTooLarge):
		return note.Note{}, apperr.NewInputInvalid(loc, locale.ErrDocumentFailed, map[string]any{"message": err.Error()})
	case err != nil:
		return note.Note{}, apperr.NewContentAcquisitionFailed(loc, locale.ErrDocumentFailed, err)
	}
	o.logger.Info("document extracted", "pages", doc.Pages, "chars", len(doc.Content))

	n := note.New(userID, note.SourceUpload, note.StatusReady)
	n.Title = firstNonEmpty(in.Title, titleFromFileName(in.FileName), locale.T(loc, locale.TitleDocument, nil))
	n.FolderID = in.FolderID
	n.Transcript = doc.Content
	n.Language = languageOf(in.Language, loc)
	return o.storeAndEnhance(ctx, n, loc)
}

func (o *Orchestrator) storeAndEnhance(ctx context.Context, n note.Note, loc locale.Locale) (note.Note, error) {
	saved, err := o.save(n)
	if err != nil {
		return note.Note{}, err
	}
	o.logger.Info("note created", "note_id", saved.ID, "source", saved.SourceType, "status", saved.Status)
	o.enhanceInBackground(ctx, saved, loc)
	return saved, nil
}

// enhanceInBackground summarizes and extracts insights for n on a detached
// goroutine. The caller gets no result and no completion signal; failures
// are only logged and never touch the note's status. Summary and insights
// are attempted independently.
func (o *Orchestrator) enhanceInBackground(ctx context.Context, n note.Note, loc locale.Locale) {
	ctx = context.WithoutCancel(ctx)
	o.background.Add(1)
	go func() {
		defer o.background.Done()
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("background enhancement panicked", "note_id", n.ID, "panic", fmt.Sprint(r))
			}
		}()

		if _, err := o.Summarize(ctx, n.ID, n.UserID, loc.String()); err != nil {
			o.logger.Warn("background summary failed", "note_id", n.ID, "error", err)
		}
		if _, err := o.ExtractInsights(ctx, n.ID, n.UserID, 0, loc.String()); err != nil {
			o.logger.Warn("background insights failed", "note_id", n.ID, "error", err)
		}
	}()
}

// languageOf records the caller's language only when one was given.
func languageOf(raw string, loc locale.Locale) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return loc.String()
}

func titleFromFileName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
