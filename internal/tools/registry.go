// Package tools holds the functions the language model may call. Tools are
// declared with mcp-go so the same definitions serve the model loop and the
// MCP server.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/noteflow/noteflow/internal/llm"
)

// Registry is an ordered set of tools.
type Registry struct {
	order []string
	tools map[string]server.ServerTool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]server.ServerTool)}
}

// Add registers a tool, replacing any tool with the same name.
func (r *Registry) Add(tool mcp.Tool, handler server.ToolHandlerFunc) {
	if _, ok := r.tools[tool.Name]; !ok {
		r.order = append(r.order, tool.Name)
	}
	r.tools[tool.Name] = server.ServerTool{Tool: tool, Handler: handler}
}

// ServerTools returns the tools in registration order for an MCP server.
func (r *Registry) ServerTools() []server.ServerTool {
	out := make([]server.ServerTool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Definitions converts the tools to Responses API function tools.
func (r *Registry) Definitions() []llm.Tool {
	defs := make([]llm.Tool, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name].Tool
		params := t.RawInputSchema
		if len(params) == 0 {
			b, err := json.Marshal(t.InputSchema)
			if err != nil {
				continue
			}
			params = b
		}
		defs = append(defs, llm.Tool{
			Type:        "function",
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		})
	}
	return defs
}

// Execute runs the named tool. A result flagged as an error is returned as a
// Go error; a JSON text result is decoded, any other text is returned as is.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	st, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	res, err := st.Handler(ctx, req)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}

	text := resultText(res)
	if res.IsError {
		return nil, errors.New(text)
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v, nil
	}
	return text, nil
}

func resultText(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

// JSONResult encodes v as the text content of a tool result.
func JSONResult(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return errorResult(fmt.Sprintf("encoding result: %v", err))
	}
	return textResult(string(b))
}

// ErrorResult builds a tool result flagged as an error.
func ErrorResult(format string, args ...any) *mcp.CallToolResult {
	return errorResult(fmt.Sprintf(format, args...))
}
