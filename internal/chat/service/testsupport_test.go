package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"schoolchat/internal/common"
	"schoolchat/internal/dbmysql"
)

// fakeChatRepo is an in-memory ChatRepository. Reads hand out copies so a
// caller never mutates stored state without an explicit save, mirroring how
// the real repository round-trips through the database.
type fakeChatRepo struct {
	mu            sync.Mutex
	conversations map[string]*dbmysql.Conversation
	messages      map[string]*dbmysql.Message
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		conversations: make(map[string]*dbmysql.Conversation),
		messages:      make(map[string]*dbmysql.Message),
	}
}

func copyConversation(c *dbmysql.Conversation) *dbmysql.Conversation {
	out := *c
	out.Participants = append([]string(nil), c.Participants...)
	out.UnreadCounts = make(map[string]int, len(c.UnreadCounts))
	for k, v := range c.UnreadCounts {
		out.UnreadCounts[k] = v
	}
	return &out
}

func copyMessage(m *dbmysql.Message) *dbmysql.Message {
	out := *m
	out.Attachments = append([]string(nil), m.Attachments...)
	out.ReadBy = append([]string(nil), m.ReadBy...)
	out.DeletedFor = append([]string(nil), m.DeletedFor...)
	if m.Reactions != nil {
		out.Reactions = make(map[string]string, len(m.Reactions))
		for k, v := range m.Reactions {
			out.Reactions[k] = v
		}
	}
	if m.ScheduledAt != nil {
		at := *m.ScheduledAt
		out.ScheduledAt = &at
	}
	return &out
}

func (f *fakeChatRepo) CreateConversation(_ context.Context, conv *dbmysql.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.conversations[conv.ID]; exists {
		return fmt.Errorf("duplicate conversation %s", conv.ID)
	}
	f.conversations[conv.ID] = copyConversation(conv)
	return nil
}

func (f *fakeChatRepo) SaveConversation(_ context.Context, conv *dbmysql.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversations[conv.ID] = copyConversation(conv)
	return nil
}

func (f *fakeChatRepo) ConversationByID(_ context.Context, id string) (*dbmysql.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversations[id]
	if !ok {
		return nil, fmt.Errorf("%w: conversation %s", common.ErrNotFound, id)
	}
	return copyConversation(conv), nil
}

func (f *fakeChatRepo) ConversationsFor(_ context.Context, userID string) ([]*dbmysql.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*dbmysql.Conversation
	for _, conv := range f.conversations {
		if conv.HasParticipant(userID) {
			out = append(out, copyConversation(conv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out, nil
}

func (f *fakeChatRepo) DirectConversation(_ context.Context, userA, userB string) (*dbmysql.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conv := range f.conversations {
		if conv.HasParticipant(userA) && conv.HasParticipant(userB) {
			return copyConversation(conv), nil
		}
	}
	return nil, fmt.Errorf("%w: conversation between %s and %s", common.ErrNotFound, userA, userB)
}

func (f *fakeChatRepo) CreateMessage(_ context.Context, msg *dbmysql.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.messages[msg.ID]; exists {
		return fmt.Errorf("duplicate message %s", msg.ID)
	}
	f.messages[msg.ID] = copyMessage(msg)
	return nil
}

func (f *fakeChatRepo) SaveMessage(_ context.Context, msg *dbmysql.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[msg.ID] = copyMessage(msg)
	return nil
}

func (f *fakeChatRepo) MessageByID(_ context.Context, id string) (*dbmysql.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return nil, fmt.Errorf("%w: message %s", common.ErrNotFound, id)
	}
	return copyMessage(msg), nil
}

func (f *fakeChatRepo) MessagesByConversation(_ context.Context, conversationID string) ([]*dbmysql.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*dbmysql.Message
	for _, msg := range f.messages {
		if msg.ConversationID == conversationID {
			out = append(out, copyMessage(msg))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (f *fakeChatRepo) DueScheduled(_ context.Context, now time.Time) ([]*dbmysql.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*dbmysql.Message
	for _, msg := range f.messages {
		if !msg.IsSent && msg.ScheduledAt != nil && !msg.ScheduledAt.After(now) {
			out = append(out, copyMessage(msg))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledAt.Before(*out[j].ScheduledAt)
	})
	return out, nil
}
