// Package note defines the note record the pipeline reads and mutates.
package note

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the coarse state of a note's primary content acquisition.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusReady, StatusError:
		return true
	}
	return false
}

// SourceType identifies how a note's primary content was ingested.
type SourceType string

const (
	SourceRecording SourceType = "recording"
	SourceYouTube   SourceType = "youtube"
	SourceUpload    SourceType = "upload"
	SourceScan      SourceType = "scan"
)

func (s SourceType) Valid() bool {
	switch s {
	case SourceRecording, SourceYouTube, SourceUpload, SourceScan:
		return true
	}
	return false
}

// Note is a user's note. Transcript is the primary content; AISummary and
// Insights are best-effort enhancements derived from it.
type Note struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Title        string     `json:"title"`
	FolderID     string     `json:"folderId,omitempty"`
	SourceType   SourceType `json:"sourceType"`
	SourceURL    string     `json:"sourceUrl,omitempty"`
	AudioFileURL string     `json:"audioFileUrl,omitempty"`
	Language     string     `json:"language,omitempty"`
	Transcript   string     `json:"transcript,omitempty"`
	AISummary    string     `json:"aiSummary,omitempty"`
	MyNotes      string     `json:"myNotes,omitempty"`
	Insights     []string   `json:"insights"`
	Status       Status     `json:"status"`
	IsDeleted    bool       `json:"isDeleted"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// New returns a note owned by userID with a fresh ID and empty insights.
func New(userID string, source SourceType, status Status) Note {
	now := time.Now().UTC()
	return Note{
		ID:         uuid.New().String(),
		UserID:     userID,
		SourceType: source,
		Insights:   []string{},
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// CanTransition reports whether a note may move from one status to another.
// Staying in the same status is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return from.Valid()
	}
	switch from {
	case StatusProcessing:
		return to == StatusReady || to == StatusError
	case StatusReady, StatusError:
		return to == StatusProcessing
	}
	return false
}

// Transition moves the note to status to.
func (n *Note) Transition(to Status) error {
	if !CanTransition(n.Status, to) {
		return fmt.Errorf("invalid status transition %s -> %s", n.Status, to)
	}
	n.Status = to
	return nil
}

// HasTranscript reports whether primary content is present.
func (n Note) HasTranscript() bool { return n.Transcript != "" }
