// Package runtime is the model-call boundary. The agent loop speaks in the
// package's normalized request/response types and stays independent of any
// one provider SDK.
package runtime

import (
	"context"
	"encoding/json"
)

// ToolSpec advertises one callable tool to the model.
type ToolSpec struct {
	Name        string
	Description string
	Properties  map[string]any
	Required    []string
}

// ToolCall is a model request to invoke a tool.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolResult carries a tool's output back to the model.
type ToolResult struct {
	ID      string
	Content string
	IsError bool
}

// Message is one provider-conversation entry. A message carries plain text,
// assistant tool calls, or user tool results; the zero values of the unused
// fields are ignored.
type Message struct {
	Role        string
	Text        string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// Request is one model invocation.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Tools       []ToolSpec
	MaxTokens   int
	Temperature float64
}

// Response is the model's reply, normalized across providers.
type Response struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason string
}

// Runtime executes one model call per Chat invocation. Implementations do
// not loop over tools; that is the agent's job.
type Runtime interface {
	Chat(ctx context.Context, req Request) (*Response, error)
}
