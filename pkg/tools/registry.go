package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/opsforge/opsagent/pkg/logger"
	"github.com/opsforge/opsagent/pkg/runtime"
)

type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) *ToolResult {
	logger.InfoCF("tool", "Tool execution started",
		map[string]any{
			"tool": name,
			"args": sanitizeToolArgs(args),
		})

	tool, ok := r.Get(name)
	if !ok {
		logger.ErrorCF("tool", "Tool not found",
			map[string]any{
				"tool": name,
			})
		return ErrorResult(fmt.Sprintf("tool %q not found", name)).WithError(fmt.Errorf("tool not found"))
	}

	start := time.Now()
	result := tool.Execute(ctx, args)
	duration := time.Since(start)
	if result == nil {
		err := fmt.Errorf("tool %q returned nil result", name)
		logger.ErrorCF("tool", "Tool returned nil result",
			map[string]any{
				"tool": name,
			})
		return ErrorResult(err.Error()).WithError(err)
	}

	if result.IsError {
		logger.ErrorCF("tool", "Tool execution failed",
			map[string]any{
				"tool":        name,
				"duration_ms": duration.Milliseconds(),
				"error":       result.ForLLM,
			})
	} else {
		logger.InfoCF("tool", "Tool execution completed",
			map[string]any{
				"tool":          name,
				"duration_ms":   duration.Milliseconds(),
				"result_length": len(result.ForLLM),
			})
	}

	return result
}

// Specs converts registered tools into the model-call format. Output is
// sorted by name so advertised tools are stable across calls.
func (r *Registry) Specs() []runtime.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]runtime.ToolSpec, 0, len(r.tools))
	for _, tool := range r.tools {
		params := tool.Parameters()
		properties, _ := params["properties"].(map[string]interface{})

		var required []string
		switch req := params["required"].(type) {
		case []string:
			required = req
		case []interface{}:
			for _, item := range req {
				if s, ok := item.(string); ok {
					required = append(required, s)
				}
			}
		}

		specs = append(specs, runtime.ToolSpec{
			Name:        tool.Name(),
			Description: tool.Description(),
			Properties:  properties,
			Required:    required,
		})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// List returns a sorted list of all registered tool names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// GetSummaries returns human-readable summaries of all registered tools.
func (r *Registry) GetSummaries() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]string, 0, len(r.tools))
	for _, tool := range r.tools {
		summaries = append(summaries, fmt.Sprintf("- `%s` - %s", tool.Name(), tool.Description()))
	}
	sort.Strings(summaries)
	return summaries
}

var sensitiveArgKeyFragments = []string{
	"api_key",
	"apikey",
	"authorization",
	"auth",
	"bearer",
	"client_secret",
	"cookie",
	"password",
	"private",
	"secret",
	"session",
	"token",
}

func sanitizeToolArgs(args map[string]interface{}) map[string]interface{} {
	if args == nil {
		return nil
	}
	sanitized := make(map[string]interface{}, len(args))
	for key, value := range args {
		sanitized[key] = sanitizeToolArgValue(key, value, 0)
	}
	return sanitized
}

func sanitizeToolArgValue(key string, value interface{}, depth int) interface{} {
	if depth > 6 {
		return "<omitted>"
	}
	if isSensitiveArgKey(key) {
		return "<redacted>"
	}

	switch typed := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(typed))
		for k, v := range typed {
			out[k] = sanitizeToolArgValue(k, v, depth+1)
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(typed))
		for _, item := range typed {
			out = append(out, sanitizeToolArgValue(key, item, depth+1))
		}
		return out
	case string:
		return truncateLogString(typed)
	default:
		return value
	}
}

func isSensitiveArgKey(key string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "-", "_"))
	for _, fragment := range sensitiveArgKeyFragments {
		if strings.Contains(normalized, fragment) {
			return true
		}
	}
	return false
}

func truncateLogString(value string) string {
	const maxLen = 256
	if len(value) <= maxLen {
		return value
	}
	return value[:maxLen] + "...(truncated)"
}
