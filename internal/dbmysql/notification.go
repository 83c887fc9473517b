package dbmysql

import (
	"time"
)

// Notification is an in-app notification row written by the publisher when a
// message is delivered to a recipient.
type Notification struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	UserID        string     `gorm:"not null;index;size:36" json:"user_id"`
	Header        string     `gorm:"not null;size:255" json:"header"`
	Content       string     `gorm:"not null;type:text" json:"content"`
	Type          string     `gorm:"not null;size:50" json:"type"`
	Status        string     `gorm:"default:'pending';size:50" json:"status"`
	Priority      int        `gorm:"default:1" json:"priority"`
	TriggerUserID *string    `gorm:"size:36" json:"trigger_user_id,omitempty"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
