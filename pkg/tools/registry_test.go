package tools

import (
	"context"
	"strings"
	"testing"
)

type stubTool struct {
	name   string
	result *ToolResult
}

func (t *stubTool) Name() string        { return t.name }
func (t *stubTool) Description() string { return "stub tool" }
func (t *stubTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"input": map[string]interface{}{"type": "string"},
		},
		"required": []string{"input"},
	}
}

func (t *stubTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	return t.result
}

func TestRegistryExecute(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&stubTool{name: "stub", result: TextResult("ok")})

	result := registry.Execute(context.Background(), "stub", nil)
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.ForLLM)
	}
	if result.ForLLM != "ok" {
		t.Fatalf("got %q, want ok", result.ForLLM)
	}
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	registry := NewRegistry()

	result := registry.Execute(context.Background(), "ghost", nil)
	if !result.IsError {
		t.Fatal("expected error result for unknown tool")
	}
	if !strings.Contains(result.ForLLM, "not found") {
		t.Fatalf("got %q", result.ForLLM)
	}
}

func TestRegistryExecuteNilResult(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&stubTool{name: "broken", result: nil})

	result := registry.Execute(context.Background(), "broken", nil)
	if !result.IsError {
		t.Fatal("expected error result for nil tool result")
	}
}

func TestRegistrySpecsSortedAndShaped(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&stubTool{name: "zeta", result: TextResult("ok")})
	registry.Register(&stubTool{name: "alpha", result: TextResult("ok")})

	specs := registry.Specs()
	if len(specs) != 2 {
		t.Fatalf("got %d specs, want 2", len(specs))
	}
	if specs[0].Name != "alpha" || specs[1].Name != "zeta" {
		t.Fatalf("specs not sorted: %s, %s", specs[0].Name, specs[1].Name)
	}
	if _, ok := specs[0].Properties["input"]; !ok {
		t.Fatal("properties not extracted from parameters")
	}
	if len(specs[0].Required) != 1 || specs[0].Required[0] != "input" {
		t.Fatalf("required not extracted: %v", specs[0].Required)
	}
}

func TestSanitizeToolArgsRedactsSecrets(t *testing.T) {
	args := map[string]interface{}{
		"query":   "list my buckets",
		"api_key": "sk-verysecret",
		"nested": map[string]interface{}{
			"password": "hunter2",
			"region":   "us-east-1",
		},
	}

	sanitized := sanitizeToolArgs(args)
	if sanitized["api_key"] != "<redacted>" {
		t.Fatalf("api_key not redacted: %v", sanitized["api_key"])
	}
	nested := sanitized["nested"].(map[string]interface{})
	if nested["password"] != "<redacted>" {
		t.Fatalf("nested password not redacted: %v", nested["password"])
	}
	if nested["region"] != "us-east-1" {
		t.Fatalf("benign value altered: %v", nested["region"])
	}
	if sanitized["query"] != "list my buckets" {
		t.Fatalf("benign value altered: %v", sanitized["query"])
	}
}

func TestListToolsTool(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&stubTool{name: "stub", result: TextResult("ok")})
	registry.Register(NewListToolsTool(registry))

	result := registry.Execute(context.Background(), "list_tools", nil)
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "`stub`") || !strings.Contains(result.ForLLM, "`list_tools`") {
		t.Fatalf("tool listing incomplete: %s", result.ForLLM)
	}
}
