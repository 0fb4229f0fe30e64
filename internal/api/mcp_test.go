package api

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/noteflow/noteflow/internal/apperr"
	"github.com/noteflow/noteflow/internal/locale"
	"github.com/noteflow/noteflow/internal/note"
	"github.com/noteflow/noteflow/internal/pipeline"
	"github.com/noteflow/noteflow/internal/storage"
)

// --- mocks ---

type mockMCPPipeline struct {
	result  pipeline.Result
	summary string
	err     error

	gotNote, gotUser, gotLang string
}

func (m *mockMCPPipeline) ProcessNote(_ context.Context, noteID, userID, language string) (pipeline.Result, error) {
	m.gotNote, m.gotUser, m.gotLang = noteID, userID, language
	return m.result, m.err
}

func (m *mockMCPPipeline) Summarize(_ context.Context, noteID, userID, language string) (string, error) {
	m.gotNote, m.gotUser, m.gotLang = noteID, userID, language
	return m.summary, m.err
}

// --- helpers ---

func newTestMCPDeps(t *testing.T) (MCPDeps, *storage.Store, *mockMCPPipeline) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	p := &mockMCPPipeline{summary: "test summary"}
	return MCPDeps{Notes: store, Pipeline: p, Version: "test"}, store, p
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// --- tests ---

func TestMCPToolsRegistered(t *testing.T) {
	deps, _, _ := newTestMCPDeps(t)

	var names []string
	for _, st := range mcpTools(deps).ServerTools() {
		names = append(names, st.Tool.Name)
	}
	want := []string{"list_notes", "get_note", "process_note", "summarize_note"}
	if len(names) != len(want) {
		t.Fatalf("tools = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("tools[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	if NewMCPServer(deps) == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}

func TestMCPTool_ListNotesRequiresUser(t *testing.T) {
	deps, store, _ := newTestMCPDeps(t)
	n := note.New("user-1", note.SourceUpload, note.StatusReady)
	n.Title = "Quarterly plan"
	if _, err := store.SaveNote(n); err != nil {
		t.Fatal(err)
	}

	r := mcpTools(deps)
	if _, err := r.Execute(context.Background(), "list_notes", map[string]any{}); err == nil {
		t.Fatal("expected error without user_id")
	}

	got, err := r.Execute(context.Background(), "list_notes", map[string]any{"user_id": "user-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list, ok := got.([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("list_notes = %#v", got)
	}

	got, err = r.Execute(context.Background(), "list_notes", map[string]any{"user_id": "user-2"})
	if err != nil {
		t.Fatal(err)
	}
	if list, _ := got.([]any); len(list) != 0 {
		t.Errorf("other user sees %d notes", len(list))
	}
}

func TestMCPTool_ProcessNote(t *testing.T) {
	deps, _, p := newTestMCPDeps(t)
	p.result = pipeline.Result{Transcript: "t", Summary: "s"}
	handler := mcpProcessNote(deps)

	result, err := handler(context.Background(), makeCallToolRequest("process_note", map[string]interface{}{
		"note_id":  "n1",
		"user_id":  "u1",
		"language": "ru",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if p.gotNote != "n1" || p.gotUser != "u1" || p.gotLang != "ru" {
		t.Errorf("called with %q %q %q", p.gotNote, p.gotUser, p.gotLang)
	}

	var res pipeline.Result
	if err := json.Unmarshal([]byte(toolText(t, result)), &res); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if res.Summary != "s" || res.Insights == nil {
		t.Errorf("result = %+v", res)
	}
}

func TestMCPTool_ProcessNoteMissingArgs(t *testing.T) {
	deps, _, _ := newTestMCPDeps(t)
	result, err := mcpProcessNote(deps)(context.Background(), makeCallToolRequest("process_note", map[string]interface{}{
		"note_id": "n1",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected tool error without user_id")
	}
}

func TestMCPTool_SummarizeNote(t *testing.T) {
	deps, _, _ := newTestMCPDeps(t)
	result, err := mcpSummarizeNote(deps)(context.Background(), makeCallToolRequest("summarize_note", map[string]interface{}{
		"note_id": "n1",
		"user_id": "u1",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError || toolText(t, result) != "test summary" {
		t.Errorf("result = %+v", result)
	}
}

func TestMCPTool_SummarizeNotePipelineError(t *testing.T) {
	deps, _, p := newTestMCPDeps(t)
	p.err = apperr.NewEnhancementFailed(locale.English, locale.ErrSummaryFailed, errors.New("model down"))

	result, err := mcpSummarizeNote(deps)(context.Background(), makeCallToolRequest("summarize_note", map[string]interface{}{
		"note_id": "n1",
		"user_id": "u1",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	if got := toolText(t, result); got != "Summary generation failed: model down" {
		t.Errorf("text = %q", got)
	}
}
