package models

import (
	"database/sql"
	"time"
)

// Comment represents a comment on a post. ParentCommentID threads replies;
// a null parent marks a top-level comment.
type Comment struct {
	ID              string         `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	AuthorID        string         `gorm:"type:uuid;not null;column:author_id" json:"author_id"`
	PostID          string         `gorm:"type:uuid;not null;index:comments_post_ix;column:post_id" json:"post_id"`
	ParentCommentID sql.NullString `gorm:"type:uuid;column:parent_comment_id" json:"-"`
	Content         string         `gorm:"type:text;not null;column:content" json:"content"`
	LikesCount      int64          `gorm:"not null;default:0;column:likes_count" json:"likes_count"`
	CreatedAt       time.Time      `gorm:"not null;column:created_at" json:"created_at"`

	Author *Account `gorm:"foreignKey:AuthorID;references:ID" json:"author,omitempty"`
	Post   *Post    `gorm:"foreignKey:PostID;references:ID" json:"-"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comments"
}
