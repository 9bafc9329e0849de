package models

import (
	"time"
)

// Follow represents a follow edge. Follows carry no weight and have no
// effect on the ledger; they only select following-feed content and
// notification recipients.
type Follow struct {
	FollowerID  string    `gorm:"type:uuid;primaryKey;column:follower_id"`
	FollowingID string    `gorm:"type:uuid;primaryKey;column:following_id"`
	CreatedAt   time.Time `gorm:"not null;column:created_at"`

	Follower  *Account `gorm:"foreignKey:FollowerID;references:ID"`
	Following *Account `gorm:"foreignKey:FollowingID;references:ID"`
}

// TableName specifies the table name for Follow
func (Follow) TableName() string {
	return "follows"
}
