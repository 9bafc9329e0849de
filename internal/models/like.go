package models

import (
	"time"
)

// PostLike is the (user, post) join record. The unique index is what
// enforces "cannot like the same post twice".
type PostLike struct {
	ID        string    `gorm:"type:uuid;primaryKey;column:id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:post_likes_ux;column:user_id"`
	PostID    string    `gorm:"type:uuid;not null;uniqueIndex:post_likes_ux;column:post_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for PostLike
func (PostLike) TableName() string {
	return "post_likes"
}

// CommentLike is the (user, comment) join record, unique per pair.
type CommentLike struct {
	ID        string    `gorm:"type:uuid;primaryKey;column:id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:comment_likes_ux;column:user_id"`
	CommentID string    `gorm:"type:uuid;not null;uniqueIndex:comment_likes_ux;column:comment_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for CommentLike
func (CommentLike) TableName() string {
	return "comment_likes"
}
