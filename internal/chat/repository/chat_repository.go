package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"schoolchat/internal/common"
	"schoolchat/internal/dbmysql"
)

// ChatRepository is the persistence contract of the messaging engine. Access
// is indexed by conversation id rather than whole-collection reads, so every
// operation touches only the records it is about.
type ChatRepository interface {
	CreateConversation(ctx context.Context, conv *dbmysql.Conversation) error
	SaveConversation(ctx context.Context, conv *dbmysql.Conversation) error
	ConversationByID(ctx context.Context, id string) (*dbmysql.Conversation, error)
	ConversationsFor(ctx context.Context, userID string) ([]*dbmysql.Conversation, error)
	DirectConversation(ctx context.Context, userA, userB string) (*dbmysql.Conversation, error)

	CreateMessage(ctx context.Context, msg *dbmysql.Message) error
	SaveMessage(ctx context.Context, msg *dbmysql.Message) error
	MessageByID(ctx context.Context, id string) (*dbmysql.Message, error)
	MessagesByConversation(ctx context.Context, conversationID string) ([]*dbmysql.Message, error)
	DueScheduled(ctx context.Context, now time.Time) ([]*dbmysql.Message, error)
}

type chatRepo struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepo{db: db}
}

func (r *chatRepo) CreateConversation(ctx context.Context, conv *dbmysql.Conversation) error {
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (r *chatRepo) SaveConversation(ctx context.Context, conv *dbmysql.Conversation) error {
	if err := r.db.WithContext(ctx).Save(conv).Error; err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

func (r *chatRepo) ConversationByID(ctx context.Context, id string) (*dbmysql.Conversation, error) {
	var conv dbmysql.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: conversation %s", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

func (r *chatRepo) ConversationsFor(ctx context.Context, userID string) ([]*dbmysql.Conversation, error) {
	var convs []*dbmysql.Conversation
	err := r.db.WithContext(ctx).
		Where("JSON_CONTAINS(participants, JSON_QUOTE(?))", userID).
		Order("last_message_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

func (r *chatRepo) DirectConversation(ctx context.Context, userA, userB string) (*dbmysql.Conversation, error) {
	var conv dbmysql.Conversation
	err := r.db.WithContext(ctx).
		Where("JSON_CONTAINS(participants, JSON_QUOTE(?)) AND JSON_CONTAINS(participants, JSON_QUOTE(?))", userA, userB).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: conversation between %s and %s", common.ErrNotFound, userA, userB)
		}
		return nil, fmt.Errorf("failed to find direct conversation: %w", err)
	}
	return &conv, nil
}

func (r *chatRepo) CreateMessage(ctx context.Context, msg *dbmysql.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *chatRepo) SaveMessage(ctx context.Context, msg *dbmysql.Message) error {
	if err := r.db.WithContext(ctx).Save(msg).Error; err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

func (r *chatRepo) MessageByID(ctx context.Context, id string) (*dbmysql.Message, error) {
	var msg dbmysql.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: message %s", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &msg, nil
}

func (r *chatRepo) MessagesByConversation(ctx context.Context, conversationID string) ([]*dbmysql.Message, error) {
	var messages []*dbmysql.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("timestamp ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return messages, nil
}

// DueScheduled returns unsent messages whose scheduled time has passed,
// oldest target first, so delivery bookkeeping happens in timestamp order.
func (r *chatRepo) DueScheduled(ctx context.Context, now time.Time) ([]*dbmysql.Message, error) {
	var messages []*dbmysql.Message
	err := r.db.WithContext(ctx).
		Where("is_sent = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", false, now).
		Order("scheduled_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due scheduled messages: %w", err)
	}
	return messages, nil
}
