package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsforge/opsagent/pkg/memory"
	"github.com/opsforge/opsagent/pkg/runtime"
	"github.com/opsforge/opsagent/pkg/tools"
)

// scriptedRuntime replays canned responses and records every request.
type scriptedRuntime struct {
	responses []*runtime.Response
	requests  []runtime.Request
	err       error
}

func (s *scriptedRuntime) Chat(ctx context.Context, req runtime.Request) (*runtime.Response, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return &runtime.Response{Text: "done", StopReason: "end_turn"}, nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

type recordingHooks struct {
	added     int
	completed int
	lastSeen  memory.Transcript
}

func (h *recordingHooks) OnMessageAdded(ctx context.Context, transcript memory.Transcript) {
	h.added++
}

func (h *recordingHooks) OnTurnCompleted(ctx context.Context, transcript memory.Transcript) {
	h.completed++
	h.lastSeen = append(memory.Transcript(nil), transcript...)
}

type echoTool struct{ calls int }

func (t *echoTool) Name() string        { return "echo" }
func (t *echoTool) Description() string { return "Echo the input back." }
func (t *echoTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"text": map[string]interface{}{"type": "string"},
		},
		"required": []string{"text"},
	}
}

func (t *echoTool) Execute(ctx context.Context, args map[string]interface{}) *tools.ToolResult {
	t.calls++
	text, _ := args["text"].(string)
	return tools.TextResult("echo: " + text)
}

func newTestAgent(rt runtime.Runtime, hooks memory.Hooks, tool tools.Tool) *Agent {
	registry := tools.NewRegistry()
	if tool != nil {
		registry.Register(tool)
	}
	if hooks == nil {
		hooks = memory.NullHooks{}
	}
	return New(rt, registry, hooks, Config{
		Model:             "test-model",
		MaxTokens:         1024,
		MaxToolIterations: 3,
	})
}

func TestProcessMessagePlainAnswer(t *testing.T) {
	rt := &scriptedRuntime{responses: []*runtime.Response{
		{Text: "Use an ALB.", StopReason: "end_turn"},
	}}
	hooks := &recordingHooks{}
	a := newTestAgent(rt, hooks, nil)

	response, err := a.ProcessMessage(context.Background(), "ALB or NLB?")
	require.NoError(t, err)
	assert.Equal(t, "Use an ALB.", response)

	require.Len(t, rt.requests, 1)
	assert.Equal(t, SystemPrompt, rt.requests[0].System)
	assert.Equal(t, "test-model", rt.requests[0].Model)

	assert.Equal(t, 1, hooks.added)
	assert.Equal(t, 1, hooks.completed)
	require.Len(t, hooks.lastSeen, 2)
	assert.Equal(t, memory.RoleUser, hooks.lastSeen[0].Role)
	assert.Equal(t, memory.RoleAssistant, hooks.lastSeen[1].Role)
}

func TestProcessMessageToolLoop(t *testing.T) {
	input, _ := json.Marshal(map[string]string{"text": "ping"})
	rt := &scriptedRuntime{responses: []*runtime.Response{
		{
			ToolCalls:  []runtime.ToolCall{{ID: "call-1", Name: "echo", Input: input}},
			StopReason: "tool_use",
		},
		{Text: "The echo came back.", StopReason: "end_turn"},
	}}
	tool := &echoTool{}
	hooks := &recordingHooks{}
	a := newTestAgent(rt, hooks, tool)

	response, err := a.ProcessMessage(context.Background(), "run echo")
	require.NoError(t, err)
	assert.Equal(t, "The echo came back.", response)
	assert.Equal(t, 1, tool.calls)

	// Second model call carries the tool exchange.
	require.Len(t, rt.requests, 2)
	second := rt.requests[1].Messages
	require.Len(t, second, 3)
	assert.Equal(t, "call-1", second[1].ToolCalls[0].ID)
	assert.Equal(t, "echo: ping", second[2].ToolResults[0].Content)

	// Transcript keeps the tool result as a flagged user entry.
	transcript := a.Transcript()
	require.Len(t, transcript, 3)
	assert.True(t, transcript[1].ToolResult)
	assert.Equal(t, "echo: ping", transcript[1].Text)
}

func TestProcessMessageToolResultsExcludedFromHistory(t *testing.T) {
	input, _ := json.Marshal(map[string]string{"text": "ping"})
	rt := &scriptedRuntime{responses: []*runtime.Response{
		{ToolCalls: []runtime.ToolCall{{ID: "call-1", Name: "echo", Input: input}}, StopReason: "tool_use"},
		{Text: "first answer", StopReason: "end_turn"},
		{Text: "second answer", StopReason: "end_turn"},
	}}
	a := newTestAgent(rt, nil, &echoTool{})

	_, err := a.ProcessMessage(context.Background(), "turn one")
	require.NoError(t, err)
	_, err = a.ProcessMessage(context.Background(), "turn two")
	require.NoError(t, err)

	// The third model call starts turn two; its history must not contain
	// the orphaned tool result from turn one.
	require.Len(t, rt.requests, 3)
	for _, msg := range rt.requests[2].Messages {
		assert.Empty(t, msg.ToolResults)
	}
	require.Len(t, rt.requests[2].Messages, 3)
	assert.Equal(t, "turn two", rt.requests[2].Messages[2].Text)
}

func TestProcessMessageIterationLimit(t *testing.T) {
	input, _ := json.Marshal(map[string]string{"text": "again"})
	loop := &runtime.Response{
		ToolCalls:  []runtime.ToolCall{{ID: "call-x", Name: "echo", Input: input}},
		StopReason: "tool_use",
	}
	rt := &scriptedRuntime{responses: []*runtime.Response{loop, loop, loop, loop}}
	a := newTestAgent(rt, nil, &echoTool{})

	response, err := a.ProcessMessage(context.Background(), "loop forever")
	require.NoError(t, err)
	assert.Contains(t, response, "tool call limit")
	assert.Len(t, rt.requests, 3)
}

func TestProcessMessageModelErrorRollsBackTurn(t *testing.T) {
	rt := &scriptedRuntime{err: errors.New("throttled")}
	hooks := &recordingHooks{}
	a := newTestAgent(rt, hooks, nil)

	_, err := a.ProcessMessage(context.Background(), "hello")
	require.Error(t, err)
	assert.Empty(t, a.Transcript())
	assert.Equal(t, 0, hooks.completed)
}

func TestProcessMessageUnknownTool(t *testing.T) {
	rt := &scriptedRuntime{responses: []*runtime.Response{
		{ToolCalls: []runtime.ToolCall{{ID: "call-1", Name: "missing", Input: []byte(`{}`)}}, StopReason: "tool_use"},
		{Text: "recovered", StopReason: "end_turn"},
	}}
	a := newTestAgent(rt, nil, nil)

	response, err := a.ProcessMessage(context.Background(), "use a tool")
	require.NoError(t, err)
	assert.Equal(t, "recovered", response)

	require.Len(t, rt.requests, 2)
	result := rt.requests[1].Messages[2].ToolResults[0]
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "not found")
}
