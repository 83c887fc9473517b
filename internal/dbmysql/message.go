package dbmysql

import (
	"time"
)

// Message is a single direct message. Sender name/avatar are denormalized
// from the directory at send time. Reactions are keyed by user id with the
// emoji as the value, so a user can never hold two reactions at once.
// Messages are never physically removed; deletion is a state flag.
type Message struct {
	ID             string            `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string            `gorm:"index;size:36;not null" json:"conversation_id"`
	SenderID       string            `gorm:"index;size:36;not null" json:"sender_id"`
	SenderName     string            `gorm:"size:100" json:"sender_name"`
	SenderAvatar   string            `gorm:"size:512" json:"sender_avatar"`
	Content        string            `gorm:"type:text" json:"content"`
	Attachments    []string          `gorm:"serializer:json;type:json" json:"attachments,omitempty"`
	Timestamp      time.Time         `gorm:"index" json:"timestamp"`
	IsSent         bool              `gorm:"index" json:"is_sent"`
	ScheduledAt    *time.Time        `json:"scheduled_at,omitempty"`
	ReadBy         []string          `gorm:"serializer:json;type:json" json:"read_by"`
	Reactions      map[string]string `gorm:"serializer:json;type:json" json:"reactions,omitempty"`
	ReplyToID      string            `gorm:"size:36" json:"reply_to_id,omitempty"`
	ReplyToSender  string            `gorm:"size:100" json:"reply_to_sender,omitempty"`
	ReplyToSnippet string            `gorm:"size:160" json:"reply_to_snippet,omitempty"`
	IsEdited       bool              `json:"is_edited"`
	IsDeleted      bool              `json:"is_deleted"`
	DeletedFor     []string          `gorm:"serializer:json;type:json" json:"-"`
	CreatedAt      time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// ReadByUser reports whether userID has seen this message.
func (m *Message) ReadByUser(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// DeletedForUser reports whether userID chose to hide this message.
func (m *Message) DeletedForUser(userID string) bool {
	for _, id := range m.DeletedFor {
		if id == userID {
			return true
		}
	}
	return false
}

// ReactionsByEmoji regroups the user-keyed reaction map into the
// emoji -> users view the clients render.
func (m *Message) ReactionsByEmoji() map[string][]string {
	if len(m.Reactions) == 0 {
		return nil
	}
	grouped := make(map[string][]string)
	for userID, emoji := range m.Reactions {
		grouped[emoji] = append(grouped[emoji], userID)
	}
	return grouped
}
