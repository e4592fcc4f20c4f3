package ai

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// maxTurns caps the messages kept per conversation.
const maxTurns = 40

// History keeps recent turns per conversation id in a bounded cache. Entries
// expire after ttl and the least recently used conversation is evicted first.
// Nothing is persisted.
type History struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, []Message]
}

func NewHistory(size int, ttl time.Duration) *History {
	return &History{cache: expirable.NewLRU[string, []Message](size, nil, ttl)}
}

// Get returns a copy of the stored turns for id.
func (h *History) Get(id string) []Message {
	msgs, ok := h.cache.Get(id)
	if !ok {
		return nil
	}
	return append([]Message(nil), msgs...)
}

// Append adds turns to id, dropping the oldest beyond maxTurns. Leading system
// messages are never dropped.
func (h *History) Append(id string, turns ...Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	msgs, _ := h.cache.Get(id)
	next := make([]Message, 0, len(msgs)+len(turns))
	next = append(next, msgs...)
	next = append(next, turns...)
	h.cache.Add(id, trimTurns(next, maxTurns))
}

// trimTurns keeps the leading system messages and the last max messages overall.
func trimTurns(msgs []Message, max int) []Message {
	if len(msgs) <= max {
		return msgs
	}
	head := 0
	for head < len(msgs) && msgs[head].Role == RoleSystem {
		head++
	}
	keep := max - head
	if keep < 0 {
		keep = 0
	}
	out := make([]Message, 0, head+keep)
	out = append(out, msgs[:head]...)
	return append(out, msgs[len(msgs)-keep:]...)
}

func (h *History) Len() int { return h.cache.Len() }
