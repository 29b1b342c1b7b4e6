// Package memstore abstracts the managed memory service: resource lifecycle
// (find, list, create) and content operations (ranked retrieval, event
// appends). The production backend is Bedrock AgentCore Memory; a SQLite
// backend serves local development and tests.
package memstore

import (
	"context"
	"errors"
)

// Status of a memory resource. ACTIVE is the only usable state.
type Status string

const (
	StatusCreating Status = "CREATING"
	StatusActive   Status = "ACTIVE"
	StatusDeleting Status = "DELETING"
	StatusFailed   Status = "FAILED"
)

// StrategyType categorizes what a strategy extracts from conversations.
type StrategyType string

const (
	StrategyUserPreference StrategyType = "USER_PREFERENCE"
	StrategySemantic       StrategyType = "SEMANTIC"
)

// Strategy owns one or more namespace templates keyed by {actorId}. Only the
// first namespace of each strategy is consulted at retrieval time.
type Strategy struct {
	Type        StrategyType
	Name        string
	Description string
	Namespaces  []string
}

// Resource is a long-lived memory resource. Name may be empty when the
// backend's list call does not carry it.
type Resource struct {
	ID         string
	Name       string
	Status     Status
	Strategies []Strategy
}

// Record is one ranked retrieval match.
type Record struct {
	Text string
}

// RetrieveInput queries one namespace for matches against a user utterance.
type RetrieveInput struct {
	MemoryID  string
	Namespace string
	Query     string
	TopK      int
}

// EventMessage is one half of a recorded interaction.
type EventMessage struct {
	Text string
	Role string // "USER" or "ASSISTANT"
}

// EventInput appends one interaction to a memory resource.
type EventInput struct {
	MemoryID  string
	ActorID   string
	SessionID string
	Messages  []EventMessage
}

// CreateInput describes a new memory resource.
type CreateInput struct {
	Name            string
	Description     string
	Strategies      []Strategy
	EventExpiryDays int
}

// ErrResourceNotFound indicates the memory id does not resolve to a resource.
var ErrResourceNotFound = errors.New("memory resource not found")

// Store is the memory service boundary consumed by the session manager.
type Store interface {
	// GetResource describes a resource by id, returning ErrResourceNotFound
	// for unknown ids.
	GetResource(ctx context.Context, id string) (Resource, error)

	// ListResources returns every resource known to the service. Strategies
	// are not populated; use GetStrategies.
	ListResources(ctx context.Context) ([]Resource, error)

	// CreateResourceAndWait creates a resource and blocks until it reaches
	// ACTIVE or fails. This can take minutes on managed backends.
	CreateResourceAndWait(ctx context.Context, in CreateInput) (Resource, error)

	// GetStrategies describes the strategies configured on a resource.
	GetStrategies(ctx context.Context, id string) ([]Strategy, error)

	// Retrieve returns up to TopK ranked matches from one namespace.
	Retrieve(ctx context.Context, in RetrieveInput) ([]Record, error)

	// AppendEvent records one interaction. Events are write-only from the
	// caller's perspective.
	AppendEvent(ctx context.Context, in EventInput) error
}
