package service

import (
	"sync"
)

// ConversationLocks serializes mutations per conversation. Conversations are
// independent units of serialization; no cross-conversation ordering is ever
// needed, so each id gets its own mutex. Entries are never evicted — the map
// is bounded by the number of conversations the process has touched.
type ConversationLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewConversationLocks() *ConversationLocks {
	return &ConversationLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

func (l *ConversationLocks) Get(conversationID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[conversationID] = lock
	}
	return lock
}
