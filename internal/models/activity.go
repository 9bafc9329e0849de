package models

import (
	"time"
)

// Activity is an append-only audit entry written alongside every
// balance-affecting action. Details is a JSON document carrying the
// spent/earned deltas, so replaying the log reproduces the account
// counters exactly.
type Activity struct {
	ID           string    `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	UserID       string    `gorm:"type:uuid;not null;index:activities_user_ix;column:user_id" json:"user_id"`
	ActivityType string    `gorm:"type:varchar(32);not null;column:activity_type" json:"activity_type"`
	Details      string    `gorm:"type:text;not null;default:'{}';column:details" json:"details"`
	CreatedAt    time.Time `gorm:"not null;column:created_at" json:"created_at"`

	User *Account `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// TableName specifies the table name for Activity
func (Activity) TableName() string {
	return "activities"
}

// Activity type constants
const (
	ActivityPosted            = "posted"
	ActivityLikeGiven         = "like_given"
	ActivityLikeReceived      = "like_received"
	ActivityLikeRemoved       = "like_removed"
	ActivityLikeReturned      = "like_returned"
	ActivityCommented         = "commented"
	ActivityCommentReceived   = "comment_received"
	ActivityReviveGiven       = "revive_given"
	ActivityReviveReceived    = "revive_received"
	ActivityHeartsBurned      = "hearts_burned"
	ActivityHeartsTransferred = "hearts_transferred"
	ActivityHeartsReceived    = "hearts_received"
)
