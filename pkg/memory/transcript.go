// Package memory implements the session layer of the agent: resolving the
// long-lived memory resource, retrieving relevant context into the
// conversation, and recording completed interactions.
package memory

// Message roles as they appear in the conversation transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one transcript entry. ToolResult marks user-role entries that
// carry tool output rather than an actual user utterance.
type Message struct {
	Role       string
	Text       string
	ToolResult bool
}

// Transcript is the running conversation, oldest first. Hooks may rewrite
// entries in place but never reorder or remove them.
type Transcript []Message

// Last returns a pointer to the most recent entry, or nil when empty.
func (t Transcript) Last() *Message {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}
