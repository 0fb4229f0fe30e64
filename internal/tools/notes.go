package tools

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/noteflow/noteflow/internal/note"
	"github.com/noteflow/noteflow/internal/storage"
)

const (
	defaultListLimit  = 10
	maxListLimit      = 50
	maxTranscriptChar = 12000
	snippetChars      = 280
)

// NoteReader is the read side of the note store the tools need.
type NoteReader interface {
	GetNoteForUser(id, userID string) (note.Note, error)
	ListNotes(userID string, limit, offset int) ([]note.Note, error)
}

// Scope decides whose notes a tool call may read.
type Scope struct {
	userID string
}

// ForUser scopes every call to a single user, as in a chat session.
func ForUser(userID string) Scope { return Scope{userID: userID} }

// PerCall takes the user from a required user_id argument, as on the MCP server.
func PerCall() Scope { return Scope{} }

func (s Scope) options() []mcp.ToolOption {
	if s.userID != "" {
		return nil
	}
	return []mcp.ToolOption{
		mcp.WithString("user_id", mcp.Required(), mcp.Description("ID of the user whose notes to read")),
	}
}

func (s Scope) resolve(req mcp.CallToolRequest) (string, error) {
	if s.userID != "" {
		return s.userID, nil
	}
	return req.RequireString("user_id")
}

// NoteListing is the compact form of a note returned by list_notes.
type NoteListing struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	SourceType string    `json:"sourceType"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	Summary    string    `json:"summary,omitempty"`
}

// NoteDetail is the full form of a note returned by get_note.
type NoteDetail struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	SourceType string   `json:"sourceType"`
	SourceURL  string   `json:"sourceUrl,omitempty"`
	Status     string   `json:"status"`
	Transcript string   `json:"transcript,omitempty"`
	Truncated  bool     `json:"transcriptTruncated,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Insights   []string `json:"insights"`
	MyNotes    string   `json:"myNotes,omitempty"`
}

// AddNoteTools registers list_notes and get_note on r.
func AddNoteTools(r *Registry, store NoteReader, scope Scope) {
	listOpts := append([]mcp.ToolOption{
		mcp.WithDescription("List the user's most recent notes with their titles and a short summary."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notes to return (default 10, max 50)")),
		mcp.WithNumber("offset", mcp.Description("Number of notes to skip")),
	}, scope.options()...)
	r.Add(mcp.NewTool("list_notes", listOpts...), listNotes(store, scope))

	getOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Get a note's transcript, summary and insights by its ID."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("ID of the note")),
	}, scope.options()...)
	r.Add(mcp.NewTool("get_note", getOpts...), getNote(store, scope))
}

// NewNoteTools returns a registry holding only the note tools.
func NewNoteTools(store NoteReader, scope Scope) *Registry {
	r := NewRegistry()
	AddNoteTools(r, store, scope)
	return r
}

func listNotes(store NoteReader, scope Scope) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := scope.resolve(req)
		if err != nil {
			return ErrorResult("%v", err), nil
		}
		limit := req.GetInt("limit", defaultListLimit)
		if limit <= 0 {
			limit = defaultListLimit
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
		offset := req.GetInt("offset", 0)
		if offset < 0 {
			offset = 0
		}

		notes, err := store.ListNotes(userID, limit, offset)
		if err != nil {
			return ErrorResult("listing notes: %v", err), nil
		}
		out := make([]NoteListing, 0, len(notes))
		for _, n := range notes {
			out = append(out, NoteListing{
				ID:         n.ID,
				Title:      n.Title,
				SourceType: string(n.SourceType),
				Status:     string(n.Status),
				CreatedAt:  n.CreatedAt,
				Summary:    truncateRunes(n.AISummary, snippetChars),
			})
		}
		return JSONResult(out), nil
	}
}

func getNote(store NoteReader, scope Scope) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := scope.resolve(req)
		if err != nil {
			return ErrorResult("%v", err), nil
		}
		id, err := req.RequireString("note_id")
		if err != nil {
			return ErrorResult("%v", err), nil
		}

		n, err := store.GetNoteForUser(id, userID)
		if err == nil && n.IsDeleted {
			err = storage.ErrNotFound
		}
		if errors.Is(err, storage.ErrNotFound) {
			return ErrorResult("note %s not found", id), nil
		}
		if err != nil {
			return ErrorResult("getting note: %v", err), nil
		}

		transcript := truncateRunes(n.Transcript, maxTranscriptChar)
		return JSONResult(NoteDetail{
			ID:         n.ID,
			Title:      n.Title,
			SourceType: string(n.SourceType),
			SourceURL:  n.SourceURL,
			Status:     string(n.Status),
			Transcript: transcript,
			Truncated:  transcript != n.Transcript,
			Summary:    n.AISummary,
			Insights:   n.Insights,
			MyNotes:    n.MyNotes,
		}), nil
	}
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
