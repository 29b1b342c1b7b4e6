package memory

import "github.com/google/uuid"

// Session identifies one conversation for event recording. A new id is
// minted per process run; the actor id is stable across runs so extracted
// memories accumulate under one identity.
type Session struct {
	ID      string
	ActorID string
}

// NewSession creates a session for the given actor with a fresh random id.
func NewSession(actorID string) Session {
	return Session{
		ID:      uuid.NewString(),
		ActorID: actorID,
	}
}
