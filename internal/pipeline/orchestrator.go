// Package pipeline turns raw note sources into transcripts, summaries and
// insights, and owns a note's status transitions while doing so.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/noteflow/noteflow/internal/apperr"
	"github.com/noteflow/noteflow/internal/assistant"
	"github.com/noteflow/noteflow/internal/insights"
	"github.com/noteflow/noteflow/internal/locale"
	"github.com/noteflow/noteflow/internal/note"
	"github.com/noteflow/noteflow/internal/storage"
	"github.com/noteflow/noteflow/internal/stt"
	"github.com/noteflow/noteflow/internal/youtube"
)

// NoteStore persists notes. Saves are atomic per call and last-write-wins.
type NoteStore interface {
	SaveNote(n note.Note) (note.Note, error)
	GetNoteForUser(id, userID string) (note.Note, error)
	ListNotes(userID string, limit, offset int) ([]note.Note, error)
	DeleteNote(id, userID string) error
}

// Transcriber converts reachable audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL, languageCode string) (stt.Result, error)
}

// TextRecognizer reads text from images.
type TextRecognizer interface {
	ExtractText(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
	Download(ctx context.Context, imageURL string) ([]byte, string, error)
}

// VideoFetcher retrieves video transcripts.
type VideoFetcher interface {
	Parse(ctx context.Context, rawURL, lang string) (youtube.Video, error)
}

// Deps are the collaborators of an Orchestrator. Model and Store are
// required; a missing provider fails only the stages that need it.
type Deps struct {
	Store  NoteStore
	Model  assistant.Responder
	STT    Transcriber
	Vision TextRecognizer
	Videos VideoFetcher
}

// Options tune the model stages.
type Options struct {
	// InsightCount is used when a caller asks for zero or fewer insights.
	InsightCount int
	// Reasoning is the reasoning effort requested from the model.
	Reasoning string
}

// Orchestrator sequences the stages for a note. No lock guards a note:
// concurrent runs on the same note interleave and the last save wins.
type Orchestrator struct {
	store  NoteStore
	model  assistant.Responder
	stt    Transcriber
	vision TextRecognizer
	videos VideoFetcher

	insightCount int
	reasoning    string

	background sync.WaitGroup
	logger     *slog.Logger
}

// New creates an Orchestrator. InsightCount defaults to 5 if <= 0.
func New(d Deps, opts Options) *Orchestrator {
	if opts.InsightCount <= 0 {
		opts.InsightCount = insights.DefaultCount
	}
	return &Orchestrator{
		store:        d.Store,
		model:        d.Model,
		stt:          d.STT,
		vision:       d.Vision,
		videos:       d.Videos,
		insightCount: opts.InsightCount,
		reasoning:    opts.Reasoning,
		logger:       slog.Default(),
	}
}

// Wait blocks until every background enhancement started so far has
// finished. Callers of the create operations never observe those runs; Wait
// exists so the process can drain them on shutdown.
func (o *Orchestrator) Wait() {
	o.background.Wait()
}

func (o *Orchestrator) assistant(loc locale.Locale) *assistant.Assistant {
	return assistant.New(o.model).WithLocale(loc).WithReasoning(o.reasoning)
}

// GetNote returns the caller's note.
func (o *Orchestrator) GetNote(ctx context.Context, noteID, userID, language string) (note.Note, error) {
	return o.load(noteID, userID, locale.Normalize(language))
}

// ListNotes returns the caller's notes, newest first.
func (o *Orchestrator) ListNotes(ctx context.Context, userID string, limit, offset int) ([]note.Note, error) {
	notes, err := o.store.ListNotes(userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	return notes, nil
}

// DeleteNote soft-deletes the caller's note.
func (o *Orchestrator) DeleteNote(ctx context.Context, noteID, userID, language string) error {
	loc := locale.Normalize(language)
	if noteID == "" {
		return apperr.NewInputInvalid(loc, locale.ErrNoteIDRequired, nil)
	}
	if err := o.store.DeleteNote(noteID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NewNotFound(loc, err)
		}
		return fmt.Errorf("deleting note %s: %w", noteID, err)
	}
	return nil
}

func (o *Orchestrator) load(noteID, userID string, loc locale.Locale) (note.Note, error) {
	if noteID == "" {
		return note.Note{}, apperr.NewInputInvalid(loc, locale.ErrNoteIDRequired, nil)
	}
	n, err := o.store.GetNoteForUser(noteID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return note.Note{}, apperr.NewNotFound(loc, err)
		}
		return note.Note{}, fmt.Errorf("loading note %s: %w", noteID, err)
	}
	if n.IsDeleted {
		return note.Note{}, apperr.NewNotFound(loc, storage.ErrNotFound)
	}
	return n, nil
}

func (o *Orchestrator) save(n note.Note) (note.Note, error) {
	saved, err := o.store.SaveNote(n)
	if err != nil {
		return note.Note{}, fmt.Errorf("saving note %s: %w", n.ID, err)
	}
	return saved, nil
}
