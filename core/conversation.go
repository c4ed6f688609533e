package orchestration

import (
	"slices"
	"sync"

	"github.com/voiceos-labs/voiceos-core/core/agents"
)

// conversation is the shared turn log. Trigger sources append user turns, the
// running exchange commits assistant and tool turns, and a reset clears
// everything. A generation counter keeps turns produced by a pre-reset
// exchange from leaking into the post-reset log.
type conversation struct {
	mu         sync.RWMutex
	turns      []agents.Turn
	generation uint64
}

// appendUser appends a user turn and returns the snapshot the next exchange
// should run against, together with the generation that snapshot belongs to.
//
// A log that still ends in an assistant turn means the previous exchange was
// interrupted before its tool results were committed; appending another user
// turn after it would leave a tool invocation unresolved, so the dangling
// turn is dropped first.
func (c *conversation) appendUser(turn agents.Turn) ([]agents.Turn, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(c.turns); n > 0 && c.turns[n-1].Role == agents.RoleAssistant {
		c.turns = c.turns[:n-1]
	}
	c.turns = append(c.turns, turn)
	return slices.Clone(c.turns), c.generation
}

// commit appends a turn produced by a running exchange. Returns false and
// leaves the log untouched when the exchange started against a history that
// has since been reset.
func (c *conversation) commit(generation uint64, turn agents.Turn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return false
	}
	c.turns = append(c.turns, turn)
	return true
}

func (c *conversation) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = nil
	c.generation++
}

// history returns a point-in-time copy of the turn log.
func (c *conversation) history() []agents.Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Clone(c.turns)
}
