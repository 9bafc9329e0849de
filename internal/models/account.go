package models

import (
	"time"
)

// Account status values. Status is derived from the heart balance:
// an account is dead exactly when its balance is zero.
const (
	StatusAlive = "alive"
	StatusDead  = "dead"
)

// StartingHearts is granted to every account at signup.
const StartingHearts = 100

// Account represents a Heartconomy profile. The heart balance is the
// single source of truth; counters are derived sums over the activity log.
type Account struct {
	ID           string    `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	Username     string    `gorm:"type:varchar(32);not null;uniqueIndex:accounts_username_ux;column:username" json:"username"`
	PasswordHash string    `gorm:"type:varchar(128);not null;column:password_hash" json:"-"`
	Avatar       string    `gorm:"type:varchar(16);not null;default:'';column:avatar" json:"avatar"`
	Hearts       int64     `gorm:"not null;default:100;column:hearts" json:"hearts"`
	Status       string    `gorm:"type:varchar(8);not null;default:'alive';column:status" json:"status"`

	TotalHeartsEarned int64 `gorm:"not null;default:0;column:total_hearts_earned" json:"total_hearts_earned"`
	TotalHeartsSpent  int64 `gorm:"not null;default:0;column:total_hearts_spent" json:"total_hearts_spent"`
	RevivesGiven      int64 `gorm:"not null;default:0;column:revives_given" json:"revives_given"`
	RevivesReceived   int64 `gorm:"not null;default:0;column:revives_received" json:"revives_received"`

	CreatedAt time.Time `gorm:"not null;column:created_at" json:"created_at"`
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "accounts"
}

// VampireRatio is hearts earned over hearts spent. Accounts that never
// spent anything rank by raw earnings.
func (a *Account) VampireRatio() float64 {
	if a.TotalHeartsSpent == 0 {
		return float64(a.TotalHeartsEarned)
	}
	return float64(a.TotalHeartsEarned) / float64(a.TotalHeartsSpent)
}
