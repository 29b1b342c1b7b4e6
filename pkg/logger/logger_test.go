package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestSetupWithOutputText(t *testing.T) {
	var buf bytes.Buffer
	SetupWithOutput("info", TextFormat, &buf)

	InfoCF("test", "hello", map[string]any{"key": "value"})

	out := buf.String()
	if !strings.Contains(out, "hello") {
		t.Fatalf("message missing: %s", out)
	}
	if !strings.Contains(out, "component=test") {
		t.Fatalf("component missing: %s", out)
	}
	if !strings.Contains(out, "key=value") {
		t.Fatalf("field missing: %s", out)
	}
}

func TestSetupWithOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	SetupWithOutput("info", JSONFormat, &buf)

	ErrorCF("memory", "retrieval failed", map[string]any{"namespace": "agent/devops/x/semantic"})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["component"] != "memory" {
		t.Fatalf("got component %v", entry["component"])
	}
	if entry["namespace"] != "agent/devops/x/semantic" {
		t.Fatalf("got namespace %v", entry["namespace"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetupWithOutput("warn", TextFormat, &buf)

	InfoCF("test", "suppressed", nil)
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %s", buf.String())
	}

	WarnCF("test", "visible", nil)
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("warn not logged: %s", buf.String())
	}
}

func TestParseLevelFallback(t *testing.T) {
	var buf bytes.Buffer
	SetupWithOutput("bogus", TextFormat, &buf)

	DebugCF("test", "hidden", nil)
	if buf.Len() != 0 {
		t.Fatal("unknown level should fall back to info, not debug")
	}
	InfoCF("test", "shown", nil)
	if buf.Len() == 0 {
		t.Fatal("info suppressed after fallback")
	}
}
