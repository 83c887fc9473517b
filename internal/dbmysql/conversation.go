package dbmysql

import (
	"time"
)

// Conversation is a two-party direct-message thread. Participants and the
// per-participant unread counters are stored as JSON columns; UnreadCounts
// always carries exactly one entry per participant.
type Conversation struct {
	ID                  string         `gorm:"primaryKey;size:36" json:"id"`
	Participants        []string       `gorm:"serializer:json;type:json" json:"participants"`
	LastMessage         string         `gorm:"size:512" json:"last_message"`
	LastMessageSenderID string         `gorm:"size:36" json:"last_message_sender_id"`
	LastMessageAt       time.Time      `gorm:"index" json:"last_message_at"`
	UnreadCounts        map[string]int `gorm:"serializer:json;type:json" json:"unread_counts"`
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
