package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"schoolchat/internal/chat/repository"
	"schoolchat/internal/common"
	"schoolchat/internal/dbmysql"
)

// ConversationService owns conversation records: creation and lookup, unread
// counters, read-state marking and summary recomputation.
type ConversationService interface {
	ConversationsFor(ctx context.Context, userID string) ([]*dbmysql.Conversation, error)
	StartOrGet(ctx context.Context, userA, userB string) (*dbmysql.Conversation, error)
	MarkRead(ctx context.Context, conversationID, userID string) error
	RecomputeSummary(ctx context.Context, conversationID string) error
}

type conversationService struct {
	repo  repository.ChatRepository
	locks *ConversationLocks
}

func NewConversationService(repo repository.ChatRepository, locks *ConversationLocks) ConversationService {
	return &conversationService{repo: repo, locks: locks}
}

func (s *conversationService) ConversationsFor(ctx context.Context, userID string) ([]*dbmysql.Conversation, error) {
	if err := common.ValidateUserID(userID); err != nil {
		return nil, err
	}
	return s.repo.ConversationsFor(ctx, userID)
}

// StartOrGet returns the direct conversation between the two users, creating
// it on first contact. Idempotent regardless of argument order: both orders
// resolve to the same record, and concurrent first contacts serialize on the
// pair lock.
func (s *conversationService) StartOrGet(ctx context.Context, userA, userB string) (*dbmysql.Conversation, error) {
	if err := common.ValidateParticipants(userA, userB); err != nil {
		return nil, err
	}

	participants := []string{userA, userB}
	sort.Strings(participants)

	pairKey := strings.Join(participants, "|")
	lock := s.locks.Get(pairKey)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.repo.DirectConversation(ctx, userA, userB)
	if err == nil {
		return conv, nil
	}
	if !common.IsNotFound(err) {
		return nil, err
	}

	now := time.Now().UTC()
	conv = &dbmysql.Conversation{
		ID:            uuid.NewString(),
		Participants:  participants,
		LastMessage:   conversationStartedText,
		LastMessageAt: now,
		UnreadCounts: map[string]int{
			participants[0]: 0,
			participants[1]: 0,
		},
	}

	if err := s.repo.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// MarkRead zeroes the user's unread counter and adds them to the read set of
// every message in the conversation they did not author.
func (s *conversationService) MarkRead(ctx context.Context, conversationID, userID string) error {
	if err := common.ValidateUserID(userID); err != nil {
		return err
	}

	lock := s.locks.Get(conversationID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.repo.ConversationByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		return fmt.Errorf("%w: user %s is not a participant of conversation %s",
			common.ErrPermissionDenied, userID, conversationID)
	}

	if conv.UnreadCounts == nil {
		conv.UnreadCounts = make(map[string]int)
	}
	conv.UnreadCounts[userID] = 0
	if err := s.repo.SaveConversation(ctx, conv); err != nil {
		return err
	}

	messages, err := s.repo.MessagesByConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	for _, msg := range messages {
		if msg.SenderID == userID || msg.ReadByUser(userID) {
			continue
		}
		msg.ReadBy = append(msg.ReadBy, userID)
		if err := s.repo.SaveMessage(ctx, msg); err != nil {
			return err
		}
	}

	return nil
}

func (s *conversationService) RecomputeSummary(ctx context.Context, conversationID string) error {
	lock := s.locks.Get(conversationID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.repo.ConversationByID(ctx, conversationID)
	if err != nil {
		return err
	}
	return recomputeSummaryLocked(ctx, s.repo, conv)
}
