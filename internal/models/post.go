package models

import (
	"time"
)

// Post represents a feed post. Like and comment counts are denormalized;
// the join tables remain authoritative.
type Post struct {
	ID            string    `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	AuthorID      string    `gorm:"type:uuid;not null;index:posts_author_ix;column:author_id" json:"author_id"`
	Content       string    `gorm:"type:text;not null;column:content" json:"content"`
	LikesCount    int64     `gorm:"not null;default:0;column:likes_count" json:"likes_count"`
	CommentsCount int64     `gorm:"not null;default:0;column:comments_count" json:"comments_count"`
	CreatedAt     time.Time `gorm:"not null;column:created_at" json:"created_at"`

	Author *Account `gorm:"foreignKey:AuthorID;references:ID" json:"author,omitempty"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}
