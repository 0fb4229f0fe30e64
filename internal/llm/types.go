package llm

import (
	"encoding/json"
	"strings"
)

// Item types used in Responses API input and output lists.
const (
	TypeMessage            = "message"
	TypeFunctionCall       = "function_call"
	TypeFunctionCallOutput = "function_call_output"
	TypeOutputText         = "output_text"
)

// Roles for message items.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Item is one entry of a Responses API input or output list. Items decoded
// from a response keep their original encoding so they can be sent back to
// the model verbatim.
type Item struct {
	Type string
	Role string

	// Content is the text of an input message.
	Content string
	// Text is the concatenated output_text of an output message.
	Text string

	Name      string
	Arguments string
	CallID    string
	Output    string

	raw json.RawMessage
}

// UserMessage builds an input message from the user.
func UserMessage(content string) Item {
	return Item{Type: TypeMessage, Role: RoleUser, Content: content}
}

// AssistantMessage builds an input message from the assistant.
func AssistantMessage(content string) Item {
	return Item{Type: TypeMessage, Role: RoleAssistant, Content: content}
}

// FunctionCallOutput builds the result item for the call with callID.
func FunctionCallOutput(callID, output string) Item {
	return Item{Type: TypeFunctionCallOutput, CallID: callID, Output: output}
}

// IsFunctionCall reports whether the item asks for a tool invocation.
func (it Item) IsFunctionCall() bool { return it.Type == TypeFunctionCall }

func (it Item) MarshalJSON() ([]byte, error) {
	if it.raw != nil {
		return it.raw, nil
	}
	switch it.Type {
	case TypeFunctionCall:
		return json.Marshal(struct {
			Type      string `json:"type"`
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
			CallID    string `json:"call_id"`
		}{it.Type, it.Name, it.Arguments, it.CallID})
	case TypeFunctionCallOutput:
		return json.Marshal(struct {
			Type   string `json:"type"`
			CallID string `json:"call_id"`
			Output string `json:"output"`
		}{it.Type, it.CallID, it.Output})
	default:
		return json.Marshal(struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{it.Role, it.Content})
	}
}

func (it *Item) UnmarshalJSON(data []byte) error {
	var wire struct {
		Type      string          `json:"type"`
		Role      string          `json:"role"`
		Content   json.RawMessage `json:"content"`
		Name      string          `json:"name"`
		Arguments string          `json:"arguments"`
		CallID    string          `json:"call_id"`
		Output    string          `json:"output"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*it = Item{
		Type:      wire.Type,
		Role:      wire.Role,
		Name:      wire.Name,
		Arguments: wire.Arguments,
		CallID:    wire.CallID,
		Output:    wire.Output,
		raw:       append(json.RawMessage(nil), data...),
	}
	if len(wire.Content) == 0 {
		return nil
	}

	// Input messages carry a string, output messages a list of parts.
	var s string
	if err := json.Unmarshal(wire.Content, &s); err == nil {
		it.Content = s
		return nil
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(wire.Content, &parts); err != nil {
		return nil
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Type == TypeOutputText {
			b.WriteString(p.Text)
		}
	}
	it.Text = b.String()
	return nil
}

// Tool is a function tool the model may call.
type Tool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Reasoning configures reasoning effort for reasoning models.
type Reasoning struct {
	Effort string `json:"effort"`
}

// Request is a Responses API create request.
type Request struct {
	Model        string     `json:"model"`
	Instructions string     `json:"instructions,omitempty"`
	Input        []Item     `json:"input"`
	Tools        []Tool     `json:"tools,omitempty"`
	Reasoning    *Reasoning `json:"reasoning,omitempty"`
}

// Response is the subset of a Responses API response the assistant needs.
type Response struct {
	ID     string `json:"id"`
	Model  string `json:"model"`
	Status string `json:"status"`
	Output []Item `json:"output"`
}

// OutputText concatenates the text of every output message, the same value
// SDKs expose as output_text.
func (r Response) OutputText() string {
	var b strings.Builder
	for _, it := range r.Output {
		if it.Type == TypeMessage {
			b.WriteString(it.Text)
		}
	}
	return b.String()
}

// HasFunctionCalls reports whether any output item is a function call.
func (r Response) HasFunctionCalls() bool {
	for _, it := range r.Output {
		if it.IsFunctionCall() {
			return true
		}
	}
	return false
}
