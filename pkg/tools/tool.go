// Package tools defines the agent's callable tools and their registry.
package tools

import "context"

// Tool is the interface that all tools must implement. Parameters returns a
// JSON Schema object describing the tool's arguments.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *ToolResult
}

// ToolResult carries a tool's output. ForLLM goes back to the model; ForUser
// is shown in the terminal when it differs.
type ToolResult struct {
	ForLLM  string
	ForUser string
	IsError bool
	Err     error
}

func TextResult(text string) *ToolResult {
	return &ToolResult{ForLLM: text, ForUser: text}
}

func ErrorResult(message string) *ToolResult {
	return &ToolResult{ForLLM: message, ForUser: message, IsError: true}
}

func (r *ToolResult) WithError(err error) *ToolResult {
	r.Err = err
	return r
}
