// Package agent runs the conversation loop: it keeps the transcript, drives
// model calls through the runtime, executes requested tools, and fires the
// memory hooks around each turn.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opsforge/opsagent/pkg/logger"
	"github.com/opsforge/opsagent/pkg/memory"
	"github.com/opsforge/opsagent/pkg/runtime"
	"github.com/opsforge/opsagent/pkg/tools"
)

const component = "agent"

// SystemPrompt steers the assistant toward short, tool-frugal answers.
const SystemPrompt = `You are AWS DevOps agent. Help with AWS infrastructure and operations.

CRITICAL EFFICIENCY RULES:
- Answer from knowledge FIRST before using tools
- Use tools ONLY when you need current/specific data
- MAXIMUM 1 tool call per response
- Keep responses under 300 words
- Be direct and actionable

NON-FUNCTIONAL RULES:
- Be friendly, patient, and understanding with users
- Always offer additional help after answering questions
- If you can't help with something, direct users to the appropriate contact
`

// Config carries the per-conversation model settings.
type Config struct {
	Model             string
	SystemPrompt      string
	MaxTokens         int
	Temperature       float64
	MaxToolIterations int
}

// Agent is one conversation. Not safe for concurrent use.
type Agent struct {
	rt       runtime.Runtime
	registry *tools.Registry
	hooks    memory.Hooks
	cfg      Config

	transcript memory.Transcript
}

func New(rt runtime.Runtime, registry *tools.Registry, hooks memory.Hooks, cfg Config) *Agent {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = SystemPrompt
	}
	if cfg.MaxToolIterations <= 0 {
		cfg.MaxToolIterations = 5
	}
	return &Agent{
		rt:       rt,
		registry: registry,
		hooks:    hooks,
		cfg:      cfg,
	}
}

// Transcript returns the conversation so far.
func (a *Agent) Transcript() memory.Transcript {
	return a.transcript
}

// ProcessMessage runs one turn: append the user message, let hooks enrich
// it, loop over model calls and tool executions, then record the completed
// interaction.
func (a *Agent) ProcessMessage(ctx context.Context, text string) (string, error) {
	turnStart := len(a.transcript)
	a.transcript = append(a.transcript, memory.Message{Role: memory.RoleUser, Text: text})
	a.hooks.OnMessageAdded(ctx, a.transcript)

	msgs := a.providerMessages()
	specs := a.registry.Specs()

	var finalText string
	for iteration := 0; ; iteration++ {
		if iteration >= a.cfg.MaxToolIterations {
			logger.WarnCF(component, "tool iteration limit reached", map[string]any{
				"limit": a.cfg.MaxToolIterations,
			})
			finalText = "I could not finish the request within the tool call limit. Please try a more specific question."
			break
		}

		resp, err := a.rt.Chat(ctx, runtime.Request{
			Model:       a.cfg.Model,
			System:      a.cfg.SystemPrompt,
			Messages:    msgs,
			Tools:       specs,
			MaxTokens:   a.cfg.MaxTokens,
			Temperature: a.cfg.Temperature,
		})
		if err != nil {
			// Roll the turn back so a failed model call leaves no
			// half-recorded interaction behind.
			a.transcript = a.transcript[:turnStart]
			return "", fmt.Errorf("process message: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			finalText = resp.Text
			break
		}

		msgs = append(msgs, runtime.Message{
			Role:      "assistant",
			Text:      resp.Text,
			ToolCalls: resp.ToolCalls,
		})
		msgs = append(msgs, runtime.Message{
			Role:        "user",
			ToolResults: a.runTools(ctx, resp.ToolCalls),
		})
	}

	a.transcript = append(a.transcript, memory.Message{Role: memory.RoleAssistant, Text: finalText})
	a.hooks.OnTurnCompleted(ctx, a.transcript)
	return finalText, nil
}

// runTools executes the requested calls in order and mirrors each result
// into the transcript as a tool-result entry.
func (a *Agent) runTools(ctx context.Context, calls []runtime.ToolCall) []runtime.ToolResult {
	results := make([]runtime.ToolResult, 0, len(calls))
	for _, call := range calls {
		var args map[string]interface{}
		if len(call.Input) > 0 {
			if err := json.Unmarshal(call.Input, &args); err != nil {
				logger.ErrorCF(component, "invalid tool arguments", map[string]any{
					"tool": call.Name, "error": err.Error(),
				})
				results = append(results, runtime.ToolResult{
					ID:      call.ID,
					Content: fmt.Sprintf("invalid tool arguments: %v", err),
					IsError: true,
				})
				continue
			}
		}

		res := a.registry.Execute(ctx, call.Name, args)
		results = append(results, runtime.ToolResult{
			ID:      call.ID,
			Content: res.ForLLM,
			IsError: res.IsError,
		})
		a.transcript = append(a.transcript, memory.Message{
			Role:       memory.RoleUser,
			Text:       res.ForLLM,
			ToolResult: true,
		})
	}
	return results
}

// providerMessages converts the transcript for the model. Tool-result
// entries are dropped: their tool_use counterparts live only inside the
// turn that produced them, and replaying one without the other is a
// protocol error.
func (a *Agent) providerMessages() []runtime.Message {
	msgs := make([]runtime.Message, 0, len(a.transcript))
	for _, entry := range a.transcript {
		if entry.ToolResult {
			continue
		}
		msgs = append(msgs, runtime.Message{Role: entry.Role, Text: entry.Text})
	}
	return msgs
}
