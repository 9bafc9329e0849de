package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/heartconomy/heartledger/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository. Pass a transaction handle to
// scope all operations to that transaction.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AccountRepository provides account-related database operations.
//
// Every balance mutation is a single conditional UPDATE so that concurrent
// actions against the same account serialize on the row and can never
// produce a negative balance or a lost update. The alive/dead status is
// re-derived in the same statement or immediately after, inside the same
// transaction, keeping status == dead exactly when hearts == 0.
type AccountRepository struct {
	*Repository
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(repo *Repository) *AccountRepository {
	return &AccountRepository{Repository: repo}
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetByUsername retrieves an account by username
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// Create creates a new account
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// Debit removes amount hearts from an alive account that can afford it.
// Returns false without mutating anything when the account is missing,
// dead, or short on hearts. reviveGiven additionally bumps revives_given.
func (r *AccountRepository) Debit(ctx context.Context, id string, amount int64, reviveGiven bool) (bool, error) {
	updates := map[string]interface{}{
		"hearts":             gorm.Expr("hearts - ?", amount),
		"total_hearts_spent": gorm.Expr("total_hearts_spent + ?", amount),
	}
	if reviveGiven {
		updates["revives_given"] = gorm.Expr("revives_given + 1")
	}

	res := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND status = ? AND hearts >= ?", id, models.StatusAlive, amount).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, r.deriveDead(ctx, id)
}

// Credit adds amount hearts to an account. A credit always leaves the
// balance positive, so the row flips to alive in the same statement.
func (r *AccountRepository) Credit(ctx context.Context, id string, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"hearts":              gorm.Expr("hearts + ?", amount),
			"total_hearts_earned": gorm.Expr("total_hearts_earned + ?", amount),
			"status":              models.StatusAlive,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Revive resets a dead account's balance to grant hearts. The grant is a
// reset, not additive. Returns false when the account is not dead.
func (r *AccountRepository) Revive(ctx context.Context, id string, grant int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND status = ?", id, models.StatusDead).
		Updates(map[string]interface{}{
			"hearts":              grant,
			"total_hearts_earned": gorm.Expr("total_hearts_earned + ?", grant),
			"revives_received":    gorm.Expr("revives_received + 1"),
			"status":              models.StatusAlive,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Refund returns amount hearts to an account and unwinds the spent
// counter, clamped at zero. Used by unlike; dead accounts may be refunded
// and come back alive because the balance goes positive.
func (r *AccountRepository) Refund(ctx context.Context, id string, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"hearts": gorm.Expr("hearts + ?", amount),
			"total_hearts_spent": gorm.Expr(
				"CASE WHEN total_hearts_spent >= ? THEN total_hearts_spent - ? ELSE 0 END", amount, amount),
			"status": models.StatusAlive,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Chargeback claws back amount hearts earned from a now-removed like,
// flooring the balance and the earned counter at zero.
func (r *AccountRepository) Chargeback(ctx context.Context, id string, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"hearts": gorm.Expr("CASE WHEN hearts >= ? THEN hearts - ? ELSE 0 END", amount, amount),
			"total_hearts_earned": gorm.Expr(
				"CASE WHEN total_hearts_earned >= ? THEN total_hearts_earned - ? ELSE 0 END", amount, amount),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, r.deriveDead(ctx, id)
}

// Burn forces the balance to zero, adding the burned amount to the spent
// counter. The update is a compare-and-swap on the balance the caller
// read inside the same transaction; a miss means either nothing to burn
// or an interleaved action, and the caller diagnoses which.
func (r *AccountRepository) Burn(ctx context.Context, id string, expected int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND hearts = ? AND hearts > 0", id, expected).
		Updates(map[string]interface{}{
			"total_hearts_spent": gorm.Expr("total_hearts_spent + ?", expected),
			"hearts":             0,
			"status":             models.StatusDead,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// deriveDead marks an account dead when its balance has reached zero.
func (r *AccountRepository) deriveDead(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND hearts = 0", id).
		Update("status", models.StatusDead).Error
}

// ListVampires retrieves accounts that earned at least one heart, ordered
// by raw earnings. Ratio ranking happens in the caller.
func (r *AccountRepository) ListVampires(ctx context.Context, limit int) ([]*models.Account, error) {
	var accounts []*models.Account
	if err := r.db.WithContext(ctx).
		Where("total_hearts_earned > 0").
		Order("total_hearts_earned DESC").
		Limit(limit).
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetByID retrieves a post by ID
func (r *PostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// Create creates a new post
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// IncLikes adjusts the denormalized likes counter
func (r *PostRepository) IncLikes(ctx context.Context, id string, delta int64) error {
	return r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		Update("likes_count", gorm.Expr("likes_count + ?", delta)).Error
}

// IncComments adjusts the denormalized comments counter
func (r *PostRepository) IncComments(ctx context.Context, id string, delta int64) error {
	return r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		Update("comments_count", gorm.Expr("comments_count + ?", delta)).Error
}

// ListRecent retrieves the newest posts with their authors
func (r *PostRepository) ListRecent(ctx context.Context, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ListByAuthors retrieves the newest posts by the given authors
func (r *PostRepository) ListByAuthors(ctx context.Context, authorIDs []string, limit int) ([]*models.Post, error) {
	if len(authorIDs) == 0 {
		return []*models.Post{}, nil
	}
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Where("author_id IN ?", authorIDs).
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// CommentRepository provides comment-related database operations
type CommentRepository struct {
	*Repository
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(repo *Repository) *CommentRepository {
	return &CommentRepository{Repository: repo}
}

// GetByID retrieves a comment by ID
func (r *CommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// Create creates a new comment
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// IncLikes adjusts the denormalized likes counter
func (r *CommentRepository) IncLikes(ctx context.Context, id string, delta int64) error {
	return r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", id).
		Update("likes_count", gorm.Expr("likes_count + ?", delta)).Error
}

// ListByPost retrieves all comments for a post in creation order
func (r *CommentRepository) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	var comments []*models.Comment
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// LikeRepository provides like-related database operations for both
// post-level and comment-level likes.
type LikeRepository struct {
	*Repository
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(repo *Repository) *LikeRepository {
	return &LikeRepository{Repository: repo}
}

// GetPostLike retrieves a post like by (user, post)
func (r *LikeRepository) GetPostLike(ctx context.Context, userID, postID string) (*models.PostLike, error) {
	var like models.PostLike
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		First(&like).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &like, nil
}

// CreatePostLike creates a post like; the unique index rejects duplicates
func (r *LikeRepository) CreatePostLike(ctx context.Context, like *models.PostLike) error {
	return r.db.WithContext(ctx).Create(like).Error
}

// DeletePostLike deletes a post like by ID
func (r *LikeRepository) DeletePostLike(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PostLike{}).Error
}

// GetCommentLike retrieves a comment like by (user, comment)
func (r *LikeRepository) GetCommentLike(ctx context.Context, userID, commentID string) (*models.CommentLike, error) {
	var like models.CommentLike
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		First(&like).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &like, nil
}

// CreateCommentLike creates a comment like
func (r *LikeRepository) CreateCommentLike(ctx context.Context, like *models.CommentLike) error {
	return r.db.WithContext(ctx).Create(like).Error
}

// DeleteCommentLike deletes a comment like by ID
func (r *LikeRepository) DeleteCommentLike(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.CommentLike{}).Error
}

// ListLikedPostIDs retrieves the IDs of posts liked by a user
func (r *LikeRepository) ListLikedPostIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.PostLike{}).
		Where("user_id = ?", userID).
		Pluck("post_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// FollowRepository provides follow-related database operations
type FollowRepository struct {
	*Repository
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(repo *Repository) *FollowRepository {
	return &FollowRepository{Repository: repo}
}

// Create creates a follow edge; the composite key rejects duplicates
func (r *FollowRepository) Create(ctx context.Context, follow *models.Follow) error {
	return r.db.WithContext(ctx).Create(follow).Error
}

// Delete removes a follow edge
func (r *FollowRepository) Delete(ctx context.Context, followerID, followingID string) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{}).Error
}

// ListFollowerIDs retrieves the IDs of accounts following userID
func (r *FollowRepository) ListFollowerIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("following_id = ?", userID).
		Pluck("follower_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ListFollowingIDs retrieves the IDs of accounts userID follows
func (r *FollowRepository) ListFollowingIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Pluck("following_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ActivityRepository provides activity-feed database operations
type ActivityRepository struct {
	*Repository
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(repo *Repository) *ActivityRepository {
	return &ActivityRepository{Repository: repo}
}

// Create appends an activity entry. Entries are never updated or deleted.
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

// ListRecent retrieves the newest activity entries with their users
func (r *ActivityRepository) ListRecent(ctx context.Context, limit int) ([]*models.Activity, error) {
	var activities []*models.Activity
	if err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}

// ListByUser retrieves a user's activity entries, oldest first
func (r *ActivityRepository) ListByUser(ctx context.Context, userID string) ([]*models.Activity, error) {
	var activities []*models.Activity
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}

// NotificationRepository provides notification-related database operations
type NotificationRepository struct {
	*Repository
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(repo *Repository) *NotificationRepository {
	return &NotificationRepository{Repository: repo}
}

// Create creates a notification
func (r *NotificationRepository) Create(ctx context.Context, notif *models.Notification) error {
	return r.db.WithContext(ctx).Create(notif).Error
}

// ListByUser retrieves a user's newest notifications
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	var notifs []*models.Notification
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifs).Error; err != nil {
		return nil, err
	}
	return notifs, nil
}

// MarkRead flips the read flag on a single notification owned by userID
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkAllRead flips the read flag on all of a user's unread notifications
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true).Error
}

// CountUnread counts a user's unread notifications
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
