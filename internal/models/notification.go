package models

import (
	"time"
)

// Notification is a per-recipient record. Only the read flag is mutable.
type Notification struct {
	ID        string    `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index:notifications_user_ix;column:user_id" json:"user_id"`
	Type      string    `gorm:"type:varchar(32);not null;column:type" json:"type"`
	Title     string    `gorm:"type:varchar(128);not null;column:title" json:"title"`
	Message   string    `gorm:"type:text;not null;column:message" json:"message"`
	Read      bool      `gorm:"not null;default:false;column:read" json:"read"`
	Data      string    `gorm:"type:text;not null;default:'{}';column:data" json:"data"`
	CreatedAt time.Time `gorm:"not null;column:created_at" json:"created_at"`
}

// TableName specifies the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}

// Notification type constants
const (
	NotifyTypeLike     = "like"
	NotifyTypeComment  = "comment"
	NotifyTypeRevive   = "revive"
	NotifyTypeTransfer = "transfer"
	NotifyTypeNewPost  = "new_post"
	NotifyTypeBurn     = "burn"
	NotifyTypeFollow   = "follow"
)
