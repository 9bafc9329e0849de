package ledger

import (
	"encoding/json"
	"fmt"
)

// Action costs and limits. One canonical rule set: a comment pays the
// author three hearts, a revival costs ten and resets the target to ten.
const (
	CostPost    int64 = 2
	CostLike    int64 = 1
	CostComment int64 = 3
	CostRevive  int64 = 10
	ReviveGrant int64 = 10
	TransferMin int64 = 1
	TransferMax int64 = 50
)

// Action is one variant of the ledger's tagged request union. Each action
// decodes into its own struct; nothing past the decode edge inspects the
// raw payload.
type Action interface {
	ActionName() string
}

// CreatePost publishes a post for CostPost hearts
type CreatePost struct {
	Content string `json:"content"`
}

// ActionName implements Action
func (*CreatePost) ActionName() string { return "create_post" }

// LikePost transfers one heart from the liker to the post author
type LikePost struct {
	PostID string `json:"postId"`
}

// ActionName implements Action
func (*LikePost) ActionName() string { return "like_post" }

// UnlikePost reverses a prior LikePost
type UnlikePost struct {
	PostID string `json:"postId"`
}

// ActionName implements Action
func (*UnlikePost) ActionName() string { return "unlike_post" }

// CommentPost comments on a post, paying CostComment hearts to its author
type CommentPost struct {
	PostID          string `json:"postId"`
	Content         string `json:"content"`
	ParentCommentID string `json:"parentCommentId"`
}

// ActionName implements Action
func (*CommentPost) ActionName() string { return "comment_post" }

// LikeComment transfers one heart from the liker to the comment author
type LikeComment struct {
	CommentID string `json:"commentId"`
}

// ActionName implements Action
func (*LikeComment) ActionName() string { return "like_comment" }

// UnlikeComment reverses a prior LikeComment
type UnlikeComment struct {
	CommentID string `json:"commentId"`
}

// ActionName implements Action
func (*UnlikeComment) ActionName() string { return "unlike_comment" }

// ReviveUser spends CostRevive hearts to reset a dead account to
// ReviveGrant hearts. Older clients send userId instead of targetUserId.
type ReviveUser struct {
	TargetUserID string `json:"targetUserId"`
	UserID       string `json:"userId"`
}

// ActionName implements Action
func (*ReviveUser) ActionName() string { return "revive_user" }

// Target returns the target account ID from whichever field was sent
func (a *ReviveUser) Target() string {
	if a.TargetUserID != "" {
		return a.TargetUserID
	}
	return a.UserID
}

// BurnHearts zeroes the actor's own balance, forcing dead status
type BurnHearts struct{}

// ActionName implements Action
func (*BurnHearts) ActionName() string { return "burn_hearts" }

// TransferHearts moves amount hearts to another account
type TransferHearts struct {
	TargetUserID string `json:"targetUserId"`
	UserID       string `json:"userId"`
	Amount       int64  `json:"amount"`
}

// ActionName implements Action
func (*TransferHearts) ActionName() string { return "transfer_hearts" }

// Target returns the target account ID from whichever field was sent
func (a *TransferHearts) Target() string {
	if a.TargetUserID != "" {
		return a.TargetUserID
	}
	return a.UserID
}

// DecodeAction parses a request body of the form {action, ...fields}
// into the matching typed action.
func DecodeAction(body []byte) (Action, error) {
	var envelope struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, InvalidArgument("malformed request body")
	}

	var action Action
	switch envelope.Action {
	case "create_post":
		action = &CreatePost{}
	case "like_post":
		action = &LikePost{}
	case "unlike_post":
		action = &UnlikePost{}
	case "comment_post":
		action = &CommentPost{}
	case "like_comment":
		action = &LikeComment{}
	case "unlike_comment":
		action = &UnlikeComment{}
	case "revive_user":
		action = &ReviveUser{}
	case "burn_hearts":
		action = &BurnHearts{}
	case "transfer_hearts":
		action = &TransferHearts{}
	default:
		return nil, InvalidArgument(fmt.Sprintf("unknown action %q", envelope.Action))
	}

	if err := json.Unmarshal(body, action); err != nil {
		return nil, InvalidArgument("malformed request body")
	}
	return action, nil
}
