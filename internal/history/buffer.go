// Package history keeps the rolling conversation window handed to the
// model. The buffer is bounded: old turns fall off the front while the
// pinned system turn survives every eviction.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gmsas95/aria/internal/llm"
)

// Turn is one entry in the conversation window.
type Turn struct {
	ID        string
	Role      string // system, user, assistant, tool
	Content   string
	ToolName  string         // set on tool turns
	ToolCallID string        // ties a tool turn to the call that produced it
	ToolCalls []llm.ToolCall // set on assistant turns that requested tools
	CreatedAt time.Time
}

// NewTurn stamps a turn with an id and timestamp.
func NewTurn(role, content string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// Buffer is a fixed-capacity FIFO of turns with an optional pinned
// system turn that does not count against capacity and is never evicted.
// Safe for concurrent use; the dashboard reads while the controller writes.
type Buffer struct {
	mu       sync.RWMutex
	capacity int
	pinned   *Turn
	turns    []Turn
}

const DefaultCapacity = 20

// NewBuffer creates a buffer holding at most capacity non-pinned turns.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		capacity: capacity,
		turns:    make([]Turn, 0, capacity),
	}
}

// Pin installs the system turn. Re-pinning replaces the previous one.
func (b *Buffer) Pin(content string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	turn := NewTurn("system", content)
	b.pinned = &turn
}

// Append adds a turn, evicting the oldest non-pinned turn when full.
func (b *Buffer) Append(turn Turn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.turns) >= b.capacity {
		drop := len(b.turns) - b.capacity + 1
		b.turns = append(b.turns[:0], b.turns[drop:]...)
	}
	b.turns = append(b.turns, turn)
}

// Snapshot returns the window in order, pinned turn first.
func (b *Buffer) Snapshot() []Turn {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Turn, 0, len(b.turns)+1)
	if b.pinned != nil {
		out = append(out, *b.pinned)
	}
	out = append(out, b.turns...)
	return out
}

// Messages renders the window as the wire messages the model expects.
func (b *Buffer) Messages() []llm.Message {
	snapshot := b.Snapshot()
	msgs := make([]llm.Message, 0, len(snapshot))
	for _, turn := range snapshot {
		msgs = append(msgs, llm.Message{
			Role:       turn.Role,
			Content:    turn.Content,
			Name:       turn.ToolName,
			ToolCallID: turn.ToolCallID,
			ToolCalls:  turn.ToolCalls,
		})
	}
	return msgs
}

// Len counts non-pinned turns.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.turns)
}

// Reset drops every turn except the pinned one.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.turns = b.turns[:0]
}
