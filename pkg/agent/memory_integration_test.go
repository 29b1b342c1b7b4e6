package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsforge/opsagent/pkg/memory"
	"github.com/opsforge/opsagent/pkg/memstore"
	"github.com/opsforge/opsagent/pkg/runtime"
)

// fakeMemStore is just enough of a memory backend to drive the hooks.
type fakeMemStore struct {
	strategies []memstore.Strategy
	records    map[string][]memstore.Record
	events     []memstore.EventInput
}

func (f *fakeMemStore) GetResource(ctx context.Context, id string) (memstore.Resource, error) {
	return memstore.Resource{ID: id, Status: memstore.StatusActive, Strategies: f.strategies}, nil
}

func (f *fakeMemStore) ListResources(ctx context.Context) ([]memstore.Resource, error) {
	return nil, nil
}

func (f *fakeMemStore) CreateResourceAndWait(ctx context.Context, in memstore.CreateInput) (memstore.Resource, error) {
	return memstore.Resource{ID: "mem-123", Status: memstore.StatusActive}, nil
}

func (f *fakeMemStore) GetStrategies(ctx context.Context, id string) ([]memstore.Strategy, error) {
	return f.strategies, nil
}

func (f *fakeMemStore) Retrieve(ctx context.Context, in memstore.RetrieveInput) ([]memstore.Record, error) {
	return f.records[in.Namespace], nil
}

func (f *fakeMemStore) AppendEvent(ctx context.Context, in memstore.EventInput) error {
	f.events = append(f.events, in)
	return nil
}

// Exercises the full turn lifecycle against a fake memory backend: an empty
// store leaves the first prompt untouched, the completed turn is recorded,
// and once the store holds that answer it is injected into the next prompt.
func TestMemoryAugmentedConversation(t *testing.T) {
	store := &fakeMemStore{
		strategies: []memstore.Strategy{{
			Type:       "preference",
			Name:       "DevOpsPreferences",
			Namespaces: []string{"agent/devops/{actorId}/preferences"},
		}},
		records: map[string][]memstore.Record{},
	}
	session := memory.Session{ID: "session-1", ActorID: "devops_001"}
	hooks := memory.NewHooks(store, "mem-123", session, 3)

	rt := &scriptedRuntime{responses: []*runtime.Response{
		{Text: "X", StopReason: "end_turn"},
		{Text: "Y", StopReason: "end_turn"},
	}}
	a := newTestAgent(rt, hooks, nil)
	ctx := context.Background()

	// First turn: nothing stored yet, so the prompt goes out untouched.
	response, err := a.ProcessMessage(ctx, "Which region should I use?")
	require.NoError(t, err)
	assert.Equal(t, "X", response)
	require.Len(t, rt.requests, 1)
	assert.Equal(t, "Which region should I use?", rt.requests[0].Messages[0].Text)

	// The completed turn was recorded as a USER/ASSISTANT pair.
	require.Len(t, store.events, 1)
	require.Len(t, store.events[0].Messages, 2)
	assert.Equal(t, "Which region should I use?", store.events[0].Messages[0].Text)
	assert.Equal(t, "X", store.events[0].Messages[1].Text)

	// The backend extracts a record from that event; the next turn sees it.
	store.records["agent/devops/devops_001/preferences"] = []memstore.Record{{Text: "X"}}

	_, err = a.ProcessMessage(ctx, "And what about backups?")
	require.NoError(t, err)
	require.Len(t, rt.requests, 2)
	last := rt.requests[1].Messages
	assert.Equal(t,
		"DevOps Context:\n[PREFERENCE] X\n\nAnd what about backups?",
		last[len(last)-1].Text)
}
