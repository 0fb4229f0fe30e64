package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/noteflow/noteflow/internal/apperr"
	"github.com/noteflow/noteflow/internal/insights"
	"github.com/noteflow/noteflow/internal/locale"
	"github.com/noteflow/noteflow/internal/note"
	"github.com/noteflow/noteflow/internal/stt"
	"github.com/noteflow/noteflow/internal/vision"
)

var (
	errNoTranscriber = errors.New("speech-to-text is not configured")
	errNoVision      = errors.New("vision is not configured")
	errNoVideos      = errors.New("video transcripts are not configured")
)

// Transcribe converts the note's audio to its transcript. The note is moved
// to processing first; on success it becomes ready with the transcript, on
// failure it becomes error and that status is saved before the error is
// returned. An empty language lets the provider detect it.
func (o *Orchestrator) Transcribe(ctx context.Context, noteID, userID, language string) (string, error) {
	loc := locale.Normalize(language)
	n, err := o.load(noteID, userID, loc)
	if err != nil {
		return "", err
	}
	if n.AudioFileURL == "" {
		return "", apperr.NewInputInvalid(loc, locale.ErrNoAudio, nil)
	}

	if err := n.Transition(note.StatusProcessing); err != nil {
		return "", err
	}
	if n, err = o.save(n); err != nil {
		return "", err
	}

	hint := ""
	if strings.TrimSpace(language) != "" {
		hint = loc.String()
	}
	o.logger.Info("transcribing note", "note_id", n.ID, "language", hint)

	var res stt.Result
	if o.stt == nil {
		err = errNoTranscriber
	} else {
		res, err = o.stt.Transcribe(ctx, n.AudioFileURL, hint)
	}
	if err != nil {
		o.logger.Error("transcription failed", "note_id", n.ID, "error", err)
		if fresh, lerr := o.load(noteID, userID, loc); lerr == nil {
			n = fresh
		}
		n.Status = note.StatusError
		if _, serr := o.save(n); serr != nil {
			o.logger.Error("failed to persist error status", "note_id", n.ID, "error", serr)
		}
		return "", apperr.NewContentAcquisitionFailed(loc, locale.ErrTranscriptionFailed, err)
	}

	// Reload so edits made while the provider was working survive.
	if n, err = o.load(noteID, userID, loc); err != nil {
		return "", err
	}
	n.Transcript = res.Text
	if n.Language == "" {
		n.Language = res.LanguageCode
	}
	if err := n.Transition(note.StatusReady); err != nil {
		return "", err
	}
	if _, err := o.save(n); err != nil {
		return "", err
	}
	o.logger.Info("transcription complete", "note_id", n.ID, "chars", len(res.Text))
	return res.Text, nil
}

// Summarize writes a summary of the note's transcript. It never changes
// the note's status.
func (o *Orchestrator) Summarize(ctx context.Context, noteID, userID, language string) (string, error) {
	loc := locale.Normalize(language)
	n, err := o.load(noteID, userID, loc)
	if err != nil {
		return "", err
	}
	if !n.HasTranscript() {
		return "", apperr.NewInputInvalid(loc, locale.ErrNoTranscript, nil)
	}

	prompt := locale.T(loc, locale.PromptSummary, nil)
	summary, err := o.assistant(loc).Converse(ctx, n.Transcript, prompt, nil, false)
	if err != nil {
		return "", apperr.NewEnhancementFailed(loc, locale.ErrSummaryFailed, err)
	}

	// Reload so fields saved by other stages since the first read survive.
	if n, err = o.load(noteID, userID, loc); err != nil {
		return "", err
	}
	n.AISummary = summary
	if _, err := o.save(n); err != nil {
		return "", err
	}
	o.logger.Info("summary generated", "note_id", n.ID)
	return summary, nil
}

// ExtractInsights derives up to count insights from the note's transcript
// and saves them. A count <= 0 uses the configured default. It never changes
// the note's status.
func (o *Orchestrator) ExtractInsights(ctx context.Context, noteID, userID string, count int, language string) ([]string, error) {
	loc := locale.Normalize(language)
	if count <= 0 {
		count = o.insightCount
	}
	n, err := o.load(noteID, userID, loc)
	if err != nil {
		return nil, err
	}
	if !n.HasTranscript() {
		return nil, apperr.NewInputInvalid(loc, locale.ErrNoTranscript, nil)
	}

	prompt := locale.T(loc, locale.PromptInsights, map[string]any{"count": count})
	out, err := o.assistant(loc).Converse(ctx, n.Transcript, prompt, nil, false)
	if err != nil {
		return nil, apperr.NewEnhancementFailed(loc, locale.ErrInsightsFailed, err)
	}
	found := insights.Extract(out, count)

	if n, err = o.load(noteID, userID, loc); err != nil {
		return nil, err
	}
	n.Insights = found
	if _, err := o.save(n); err != nil {
		return nil, err
	}
	o.logger.Info("insights generated", "note_id", n.ID, "count", len(found))
	return found, nil
}

// OCRResult is text read from an image.
type OCRResult struct {
	Text     string        `json:"text"`
	Language locale.Locale `json:"language"`
}

// OCR reads the text in an image. An empty mimeType means image/jpeg. The
// text may be empty when the image holds none.
func (o *Orchestrator) OCR(ctx context.Context, image []byte, mimeType, language string) (OCRResult, error) {
	loc := locale.Normalize(language)
	if len(image) == 0 {
		return OCRResult{}, apperr.NewInputInvalid(loc, locale.ErrImageRequired, nil)
	}
	if mimeType == "" {
		mimeType = vision.DefaultMIMEType
	}
	if o.vision == nil {
		return OCRResult{}, apperr.NewContentAcquisitionFailed(loc, locale.ErrOCRFailed, errNoVision)
	}

	text, err := o.vision.ExtractText(ctx, image, mimeType, locale.T(loc, locale.PromptOCR, nil))
	if err != nil {
		o.logger.Error("ocr failed", "error", err)
		return OCRResult{}, apperr.NewContentAcquisitionFailed(loc, locale.ErrOCRFailed, err)
	}
	o.logger.Info("ocr complete", "chars", len(text), "language", loc)
	return OCRResult{Text: strings.TrimSpace(text), Language: loc}, nil
}

// OCRFromURL downloads an image and reads its text. The MIME type is
// inferred from the URL.
func (o *Orchestrator) OCRFromURL(ctx context.Context, imageURL, language string) (OCRResult, error) {
	loc := locale.Normalize(language)
	if strings.TrimSpace(imageURL) == "" {
		return OCRResult{}, apperr.NewInputInvalid(loc, locale.ErrURLRequired, nil)
	}
	if o.vision == nil {
		return OCRResult{}, apperr.NewContentAcquisitionFailed(loc, locale.ErrOCRFailed, errNoVision)
	}
	image, mimeType, err := o.vision.Download(ctx, imageURL)
	if err != nil {
		return OCRResult{}, apperr.NewContentAcquisitionFailed(loc, locale.ErrOCRFailed, err)
	}
	return o.OCR(ctx, image, mimeType, language)
}
