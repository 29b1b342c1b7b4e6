package memstore

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func openTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := OpenLocal(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testCreateInput() CreateInput {
	return CreateInput{
		Name:        "DevOpsAgentMemory",
		Description: "DevOps Agent memory",
		Strategies: []Strategy{
			{
				Type:       StrategyUserPreference,
				Name:       "DevOpsPreferences",
				Namespaces: []string{"agent/devops/{actorId}/preferences"},
			},
			{
				Type:       StrategySemantic,
				Name:       "DevOpsAgentSemantic",
				Namespaces: []string{"agent/devops/{actorId}/semantic"},
			},
		},
		EventExpiryDays: 90,
	}
}

func TestLocalStoreCreateAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created, err := store.CreateResourceAndWait(ctx, testCreateInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != StatusActive {
		t.Fatalf("got status %s, want ACTIVE", created.Status)
	}
	if !strings.Contains(created.ID, "DevOpsAgentMemory") {
		t.Fatalf("id %q does not carry the resource name", created.ID)
	}

	got, err := store.GetResource(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "DevOpsAgentMemory" {
		t.Fatalf("got name %q", got.Name)
	}
	if len(got.Strategies) != 2 {
		t.Fatalf("got %d strategies, want 2", len(got.Strategies))
	}
}

func TestLocalStoreGetUnknownID(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetResource(context.Background(), "mem-nope")
	if err != ErrResourceNotFound {
		t.Fatalf("got %v, want ErrResourceNotFound", err)
	}
}

func TestLocalStoreListResources(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateResourceAndWait(ctx, testCreateInput()); err != nil {
		t.Fatalf("create: %v", err)
	}

	resources, err := store.ListResources(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resources) != 1 {
		t.Fatalf("got %d resources, want 1", len(resources))
	}
	if resources[0].Name != "DevOpsAgentMemory" {
		t.Fatalf("got name %q", resources[0].Name)
	}
}

func TestLocalStoreAppendAndRetrieve(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created, err := store.CreateResourceAndWait(ctx, testCreateInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = store.AppendEvent(ctx, EventInput{
		MemoryID:  created.ID,
		ActorID:   "devops_001",
		SessionID: "session-1",
		Messages: []EventMessage{
			{Text: "I prefer deploying to us-east-1 with terraform", Role: "USER"},
			{Text: "Noted, us-east-1 with terraform it is", Role: "ASSISTANT"},
		},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	records, err := store.Retrieve(ctx, RetrieveInput{
		MemoryID:  created.ID,
		Namespace: "agent/devops/devops_001/preferences",
		Query:     "terraform region",
		TopK:      3,
	})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("no records matched")
	}
	if !strings.Contains(records[0].Text, "terraform") {
		t.Fatalf("unexpected top match: %q", records[0].Text)
	}
}

func TestLocalStoreRetrieveRespectsTopK(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created, err := store.CreateResourceAndWait(ctx, testCreateInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 5; i++ {
		err := store.AppendEvent(ctx, EventInput{
			MemoryID:  created.ID,
			ActorID:   "devops_001",
			SessionID: "session-1",
			Messages:  []EventMessage{{Text: "kubernetes cluster notes", Role: "USER"}},
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	records, err := store.Retrieve(ctx, RetrieveInput{
		MemoryID:  created.ID,
		Namespace: "agent/devops/devops_001/preferences",
		Query:     "kubernetes",
		TopK:      2,
	})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
}

func TestLocalStoreRetrieveUnknownResource(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Retrieve(context.Background(), RetrieveInput{
		MemoryID:  "mem-nope",
		Namespace: "agent/devops/devops_001/preferences",
		Query:     "anything",
		TopK:      3,
	})
	if err != ErrResourceNotFound {
		t.Fatalf("got %v, want ErrResourceNotFound", err)
	}
}
