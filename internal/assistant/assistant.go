// Package assistant drives a conversation with the language model,
// resolving the tool calls it issues up to a fixed depth.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/noteflow/noteflow/internal/apperr"
	"github.com/noteflow/noteflow/internal/llm"
	"github.com/noteflow/noteflow/internal/locale"
)

// MaxIterations bounds the rounds of tool resolution per conversation turn.
// Calls issued after the last round are dropped.
const MaxIterations = 5

// Responder issues a single request to the language model.
type Responder interface {
	Respond(ctx context.Context, req llm.Request) (llm.Response, error)
}

// ToolProvider exposes callable tools to the model.
type ToolProvider interface {
	Definitions() []llm.Tool
	Execute(ctx context.Context, name string, args map[string]any) (any, error)
}

// Turn is a prior message of the conversation. Participant "user" marks the
// user's messages; anything else is treated as the assistant.
type Turn struct {
	Participant string `json:"participant"`
	Message     string `json:"message"`
}

// Assistant is immutable; With* methods return modified copies.
type Assistant struct {
	responder Responder
	tools     ToolProvider
	locale    locale.Locale
	reasoning string
}

// New returns an assistant without tools that answers fallbacks in the
// baseline locale.
func New(r Responder) *Assistant {
	return &Assistant{responder: r, locale: locale.Baseline}
}

// WithTools returns a copy that offers tp to the model when tools are enabled.
func (a *Assistant) WithTools(tp ToolProvider) *Assistant {
	c := *a
	c.tools = tp
	return &c
}

// WithLocale returns a copy whose fallback answer and tool errors use loc.
func (a *Assistant) WithLocale(loc locale.Locale) *Assistant {
	c := *a
	c.locale = loc
	return &c
}

// WithReasoning returns a copy that requests the given reasoning effort.
// An empty effort omits the parameter.
func (a *Assistant) WithReasoning(effort string) *Assistant {
	c := *a
	c.reasoning = effort
	return &c
}

// Converse sends userMessage after history and returns the model's answer.
// While the model responds with function calls, each call is executed and
// its result sent back, at most MaxIterations times. A failing tool is
// reported to the model as {"error": ...} and never ends the loop. Errors
// from the model request itself are returned unretried. The result is never
// empty: a localized fallback sentence replaces a textless final response.
func (a *Assistant) Converse(ctx context.Context, userMessage, systemPrompt string, history []Turn, useTools bool) (string, error) {
	input := make([]llm.Item, 0, len(history)+1)
	for _, t := range history {
		if t.Participant == llm.RoleUser {
			input = append(input, llm.UserMessage(t.Message))
		} else {
			input = append(input, llm.AssistantMessage(t.Message))
		}
	}
	input = append(input, llm.UserMessage(userMessage))

	req := llm.Request{
		Instructions: systemPrompt,
		Input:        input,
	}
	if a.reasoning != "" {
		req.Reasoning = &llm.Reasoning{Effort: a.reasoning}
	}
	if useTools && a.tools != nil {
		req.Tools = a.tools.Definitions()
	}

	resp, err := a.responder.Respond(ctx, req)
	if err != nil {
		return "", fmt.Errorf("requesting model response: %w", err)
	}

	iterations := 0
	for resp.HasFunctionCalls() && iterations < MaxIterations {
		iterations++
		slog.Debug("resolving tool calls", "iteration", iterations)

		// The model needs to see its own calls before their outputs.
		input = append(input, resp.Output...)
		for _, item := range resp.Output {
			if !item.IsFunctionCall() {
				continue
			}
			output := a.runTool(ctx, item, useTools)
			input = append(input, llm.FunctionCallOutput(item.CallID, output))
		}

		req.Input = input
		resp, err = a.responder.Respond(ctx, req)
		if err != nil {
			return "", fmt.Errorf("requesting model response after tool round %d: %w", iterations, err)
		}
	}
	if resp.HasFunctionCalls() {
		slog.Warn("reached max tool iterations, dropping remaining calls", "max", MaxIterations)
	}

	text := resp.OutputText()
	if strings.TrimSpace(text) == "" {
		return locale.T(a.locale, locale.FallbackResponse, nil), nil
	}
	return text, nil
}

// runTool executes one function call and returns the JSON payload to send
// back to the model.
func (a *Assistant) runTool(ctx context.Context, call llm.Item, enabled bool) string {
	result, err := a.execute(ctx, call, enabled)
	if err != nil {
		toolErr := apperr.NewToolExecutionFailed(a.locale, call.Name, err)
		slog.Warn("tool execution failed", "tool", call.Name, "call_id", call.CallID, "error", toolErr)
		return encodeToolOutput(map[string]string{"error": toolErr.Message})
	}
	return encodeToolOutput(result)
}

func (a *Assistant) execute(ctx context.Context, call llm.Item, enabled bool) (any, error) {
	if !enabled || a.tools == nil {
		return nil, fmt.Errorf("tool %q is not available", call.Name)
	}
	args := map[string]any{}
	if strings.TrimSpace(call.Arguments) != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return nil, fmt.Errorf("invalid arguments for %s: %w", call.Name, err)
		}
	}
	return a.tools.Execute(ctx, call.Name, args)
}

func encodeToolOutput(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	return string(b)
}
