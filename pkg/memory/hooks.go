package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/opsforge/opsagent/pkg/logger"
	"github.com/opsforge/opsagent/pkg/memstore"
)

const hooksComponent = "memory.hooks"

// Hooks are the extension points the agent loop calls around each turn.
// OnMessageAdded runs after a message is appended to the transcript and may
// rewrite the latest entry in place. OnTurnCompleted runs after the
// assistant's final response for the turn has been appended.
type Hooks interface {
	OnMessageAdded(ctx context.Context, transcript Transcript)
	OnTurnCompleted(ctx context.Context, transcript Transcript)
}

// NullHooks is the no-memory variant. Every call is a no-op.
type NullHooks struct{}

func (NullHooks) OnMessageAdded(ctx context.Context, transcript Transcript)  {}
func (NullHooks) OnTurnCompleted(ctx context.Context, transcript Transcript) {}

// NewHooks returns memory-backed hooks when a memory id is available and
// NullHooks otherwise, so the agent loop never branches on memory state.
func NewHooks(store memstore.Store, memoryID string, session Session, topK int) Hooks {
	if memoryID == "" {
		logger.InfoCF(hooksComponent, "running without memory", nil)
		return NullHooks{}
	}
	logger.InfoCF(hooksComponent, "memory hooks enabled", map[string]any{
		"memory_id": memoryID, "session_id": session.ID,
	})
	return &MemoryHooks{
		store:    store,
		memoryID: memoryID,
		session:  session,
		topK:     topK,
	}
}

// namespaceBinding pairs a strategy type with its actor-resolved namespace.
// Bindings keep strategy order so injected context lines are deterministic.
type namespaceBinding struct {
	Type      memstore.StrategyType
	Namespace string
}

// MemoryHooks retrieves relevant context before each user query and records
// completed interactions afterward. All failures are logged and swallowed:
// memory never blocks the conversation.
type MemoryHooks struct {
	store    memstore.Store
	memoryID string
	session  Session
	topK     int

	loadOnce sync.Once
	bindings []namespaceBinding
}

// namespaces resolves strategy namespaces once per session. A load failure
// leaves the bindings empty for the rest of the session.
func (h *MemoryHooks) namespaces(ctx context.Context) []namespaceBinding {
	h.loadOnce.Do(func() {
		strategies, err := h.store.GetStrategies(ctx, h.memoryID)
		if err != nil {
			logger.ErrorCF(hooksComponent, "could not load memory strategies", map[string]any{
				"memory_id": h.memoryID, "error": err.Error(),
			})
			return
		}
		for _, st := range strategies {
			if len(st.Namespaces) == 0 {
				continue
			}
			h.bindings = append(h.bindings, namespaceBinding{
				Type:      st.Type,
				Namespace: strings.ReplaceAll(st.Namespaces[0], "{actorId}", h.session.ActorID),
			})
		}
	})
	return h.bindings
}

// OnMessageAdded injects retrieved context into the latest user query. Tool
// results and assistant messages pass through untouched, as does the query
// when nothing relevant is stored.
func (h *MemoryHooks) OnMessageAdded(ctx context.Context, transcript Transcript) {
	last := transcript.Last()
	if last == nil || last.Role != RoleUser || last.ToolResult {
		return
	}
	query := last.Text

	var contextLines []string
	for _, binding := range h.namespaces(ctx) {
		records, err := h.store.Retrieve(ctx, memstore.RetrieveInput{
			MemoryID:  h.memoryID,
			Namespace: binding.Namespace,
			Query:     query,
			TopK:      h.topK,
		})
		if err != nil {
			logger.ErrorCF(hooksComponent, "context retrieval failed", map[string]any{
				"namespace": binding.Namespace, "error": err.Error(),
			})
			continue
		}
		label := strings.ToUpper(string(binding.Type))
		for _, record := range records {
			text := strings.TrimSpace(record.Text)
			if text != "" {
				contextLines = append(contextLines, fmt.Sprintf("[%s] %s", label, text))
			}
		}
	}

	if len(contextLines) == 0 {
		return
	}
	last.Text = fmt.Sprintf("DevOps Context:\n%s\n\n%s", strings.Join(contextLines, "\n"), query)
	logger.InfoCF(hooksComponent, "injected context into query", map[string]any{
		"items": len(contextLines),
	})
}

// OnTurnCompleted records the latest (user query, assistant response) pair.
// The scan walks backward so intermediate tool results are skipped.
func (h *MemoryHooks) OnTurnCompleted(ctx context.Context, transcript Transcript) {
	if len(transcript) < 2 || transcript.Last().Role != RoleAssistant {
		return
	}

	var userQuery, assistantResponse string
	for i := len(transcript) - 1; i >= 0; i-- {
		msg := transcript[i]
		if msg.Role == RoleAssistant && assistantResponse == "" {
			assistantResponse = msg.Text
		} else if msg.Role == RoleUser && !msg.ToolResult && userQuery == "" {
			userQuery = msg.Text
			break
		}
	}
	if userQuery == "" || assistantResponse == "" {
		return
	}

	err := h.store.AppendEvent(ctx, memstore.EventInput{
		MemoryID:  h.memoryID,
		ActorID:   h.session.ActorID,
		SessionID: h.session.ID,
		Messages: []memstore.EventMessage{
			{Text: userQuery, Role: "USER"},
			{Text: assistantResponse, Role: "ASSISTANT"},
		},
	})
	if err != nil {
		logger.ErrorCF(hooksComponent, "could not record interaction", map[string]any{
			"memory_id": h.memoryID, "error": err.Error(),
		})
		return
	}
	logger.InfoCF(hooksComponent, "recorded interaction", map[string]any{
		"session_id": h.session.ID,
	})
}
