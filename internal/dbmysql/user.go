package dbmysql

import (
	"time"
)

// User is the slice of the school directory the messaging engine reads.
// Account management lives elsewhere; this table is lookup-only here.
type User struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	DisplayName string    `gorm:"size:100;not null" json:"display_name"`
	Avatar      string    `gorm:"size:512" json:"avatar"`
	Status      string    `gorm:"type:enum('active','suspended','deleted');default:'active'" json:"status"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
