package api

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/noteflow/noteflow/internal/pipeline"
	"github.com/noteflow/noteflow/internal/tools"
)

// MCPPipeline is the part of the orchestrator the MCP tools drive.
type MCPPipeline interface {
	ProcessNote(ctx context.Context, noteID, userID, language string) (pipeline.Result, error)
	Summarize(ctx context.Context, noteID, userID, language string) (string, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Notes    tools.NoteReader
	Pipeline MCPPipeline
	Version  string
}

// NewMCPServer creates an MCP server exposing the note tools. MCP clients
// have no session identity, so every tool takes a user_id argument.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"noteflow",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithInstructions("noteflow: read, process and summarize a user's notes."),
		server.WithRecovery(),
	)
	s.AddTools(mcpTools(deps).ServerTools()...)
	return s
}

func mcpTools(deps MCPDeps) *tools.Registry {
	r := tools.NewNoteTools(deps.Notes, tools.PerCall())

	r.Add(
		mcp.NewTool("process_note",
			mcp.WithDescription("Transcribe a note if needed, then summarize it and extract insights. Waits for every stage."),
			mcp.WithString("note_id", mcp.Required(), mcp.Description("ID of the note")),
			mcp.WithString("user_id", mcp.Required(), mcp.Description("ID of the note's owner")),
			mcp.WithString("language", mcp.Description("Language for prompts and messages (default en)")),
		),
		mcpProcessNote(deps),
	)
	r.Add(
		mcp.NewTool("summarize_note",
			mcp.WithDescription("Summarize a note's transcript and store the summary on the note."),
			mcp.WithString("note_id", mcp.Required(), mcp.Description("ID of the note")),
			mcp.WithString("user_id", mcp.Required(), mcp.Description("ID of the note's owner")),
			mcp.WithString("language", mcp.Description("Language for prompts and messages (default en)")),
		),
		mcpSummarizeNote(deps),
	)
	return r
}

func mcpProcessNote(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		noteID, userID, err := noteArgs(req)
		if err != nil {
			return tools.ErrorResult("%v", err), nil
		}
		res, err := deps.Pipeline.ProcessNote(ctx, noteID, userID, req.GetString("language", ""))
		if err != nil {
			return tools.ErrorResult("%v", err), nil
		}
		if res.Insights == nil {
			res.Insights = []string{}
		}
		return tools.JSONResult(res), nil
	}
}

func mcpSummarizeNote(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		noteID, userID, err := noteArgs(req)
		if err != nil {
			return tools.ErrorResult("%v", err), nil
		}
		summary, err := deps.Pipeline.Summarize(ctx, noteID, userID, req.GetString("language", ""))
		if err != nil {
			return tools.ErrorResult("%v", err), nil
		}
		return mcp.NewToolResultText(summary), nil
	}
}

func noteArgs(req mcp.CallToolRequest) (noteID, userID string, err error) {
	if noteID, err = req.RequireString("note_id"); err != nil {
		return "", "", err
	}
	if userID, err = req.RequireString("user_id"); err != nil {
		return "", "", err
	}
	return noteID, userID, nil
}
