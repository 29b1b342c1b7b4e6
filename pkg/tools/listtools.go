package tools

import (
	"context"
	"strings"
)

// ListToolsTool lets the model enumerate its own capabilities.
type ListToolsTool struct {
	registry *Registry
}

func NewListToolsTool(registry *Registry) *ListToolsTool {
	return &ListToolsTool{registry: registry}
}

func (t *ListToolsTool) Name() string {
	return "list_tools"
}

func (t *ListToolsTool) Description() string {
	return "List all available tools with their descriptions."
}

func (t *ListToolsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (t *ListToolsTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	summaries := t.registry.GetSummaries()
	if len(summaries) == 0 {
		return TextResult("No tools registered.")
	}
	return TextResult("Available tools:\n" + strings.Join(summaries, "\n"))
}
