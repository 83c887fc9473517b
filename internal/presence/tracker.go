// Package presence tracks short-lived typing signals. Nothing here touches
// durable storage: a signal is a timestamp in memory that ages out of
// relevance after the TTL.
package presence

import (
	"sync"
	"time"
)

// DefaultTTL is how long a typing signal stays live after the last keystroke.
const DefaultTTL = 3000 * time.Millisecond

// Tracker holds the last-typed instant per (conversation, user). Staleness is
// evaluated lazily at query time; entries are garbage-collected
// opportunistically when a conversation is touched again.
type Tracker struct {
	ttl    time.Duration
	mu     sync.RWMutex
	typing map[string]map[string]time.Time
}

// NewTracker builds a tracker whose signals stay live for ttl. A
// non-positive ttl falls back to DefaultTTL.
func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{
		ttl:    ttl,
		typing: make(map[string]map[string]time.Time),
	}
}

// TTL returns the tracker's configured signal lifetime.
func (t *Tracker) TTL() time.Duration {
	return t.ttl
}

// SetTyping records now as the last-typed instant for the user.
func (t *Tracker) SetTyping(conversationID, userID string) {
	t.SetTypingAt(conversationID, userID, time.Now())
}

func (t *Tracker) SetTypingAt(conversationID, userID string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	users, ok := t.typing[conversationID]
	if !ok {
		users = make(map[string]time.Time)
		t.typing[conversationID] = users
	}
	users[userID] = now

	// Drop entries that can never be reported again. Opportunistic only;
	// correctness comes from the query-time comparison.
	for id, at := range users {
		if now.Sub(at) > t.ttl {
			delete(users, id)
		}
	}
}

// TypingUsers returns every user other than the viewer whose last typing
// signal in the conversation is within ttl of now.
func (t *Tracker) TypingUsers(conversationID, viewerID string, now time.Time, ttl time.Duration) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	users := t.typing[conversationID]
	active := make([]string, 0, len(users))
	for id, at := range users {
		if id == viewerID {
			continue
		}
		if now.Sub(at) <= ttl {
			active = append(active, id)
		}
	}
	return active
}
