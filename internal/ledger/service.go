package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/heartconomy/heartledger/internal/db"
	"github.com/heartconomy/heartledger/internal/models"
	"github.com/heartconomy/heartledger/pkg/logging"
	"github.com/heartconomy/heartledger/pkg/telemetry"
)

// Service executes ledger actions. Each action runs as one database
// transaction: read, validate, mutate balances through conditional
// updates, record side effects. Validation failures short-circuit before
// any mutation; a failure after mutation begins rolls the whole action
// back.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new ledger service
func NewService(gdb *gorm.DB) *Service {
	return &Service{
		db:     gdb,
		logger: logging.WithComponent("ledger"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Result reports the records created by a successful action
type Result struct {
	PostID    string `json:"postId,omitempty"`
	CommentID string `json:"commentId,omitempty"`
}

// txRepos bundles the repositories scoped to one action's transaction
type txRepos struct {
	accounts *db.AccountRepository
	posts    *db.PostRepository
	comments *db.CommentRepository
	likes    *db.LikeRepository
	follows  *db.FollowRepository
	rec      *recorder
}

func newTxRepos(tx *gorm.DB, now func() time.Time) *txRepos {
	base := db.NewRepository(tx)
	return &txRepos{
		accounts: db.NewAccountRepository(base),
		posts:    db.NewPostRepository(base),
		comments: db.NewCommentRepository(base),
		likes:    db.NewLikeRepository(base),
		follows:  db.NewFollowRepository(base),
		rec: &recorder{
			activities:    db.NewActivityRepository(base),
			notifications: db.NewNotificationRepository(base),
			now:           now,
		},
	}
}

// Execute runs one action on behalf of the actor identified by actorID.
func (s *Service) Execute(ctx context.Context, actorID string, action Action) (*Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "ledger."+action.ActionName())
	defer span.End()

	if actorID == "" {
		return nil, Unauthorized("missing actor")
	}

	var result *Result
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := newTxRepos(tx, s.now)
		var err error
		switch a := action.(type) {
		case *CreatePost:
			result, err = s.createPost(ctx, r, actorID, a)
		case *LikePost:
			result, err = s.likePost(ctx, r, actorID, a)
		case *UnlikePost:
			result, err = s.unlikePost(ctx, r, actorID, a)
		case *CommentPost:
			result, err = s.commentPost(ctx, r, actorID, a)
		case *LikeComment:
			result, err = s.likeComment(ctx, r, actorID, a)
		case *UnlikeComment:
			result, err = s.unlikeComment(ctx, r, actorID, a)
		case *ReviveUser:
			result, err = s.reviveUser(ctx, r, actorID, a)
		case *BurnHearts:
			result, err = s.burnHearts(ctx, r, actorID)
		case *TransferHearts:
			result, err = s.transferHearts(ctx, r, actorID, a)
		default:
			err = InvalidArgument(fmt.Sprintf("unsupported action %q", action.ActionName()))
		}
		return err
	})
	if txErr != nil {
		s.logger.Debug("action rejected",
			zap.String("action", action.ActionName()),
			zap.String("actor_id", actorID),
			zap.Error(txErr))
		return nil, txErr
	}

	s.logger.Info("action applied",
		zap.String("action", action.ActionName()),
		zap.String("actor_id", actorID))
	return result, nil
}

// diagnoseDebit explains why a conditional debit matched no rows.
func (s *Service) diagnoseDebit(ctx context.Context, r *txRepos, actorID string, cost int64) error {
	acct, err := r.accounts.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if acct == nil {
		return Unauthorized("unknown actor")
	}
	if acct.Status == models.StatusDead {
		return DeadActor("dead users cannot perform this action")
	}
	if acct.Hearts < cost {
		return InsufficientHearts(fmt.Sprintf("action costs %d hearts, balance is %d", cost, acct.Hearts))
	}
	return Conflict("balance changed concurrently, resubmit")
}

func (s *Service) createPost(ctx context.Context, r *txRepos, actorID string, a *CreatePost) (*Result, error) {
	content := strings.TrimSpace(a.Content)
	if content == "" {
		return nil, InvalidArgument("post content must not be empty")
	}

	ok, err := r.accounts.Debit(ctx, actorID, CostPost, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.diagnoseDebit(ctx, r, actorID, CostPost)
	}

	post := &models.Post{
		ID:        uuid.NewString(),
		AuthorID:  actorID,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := r.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	if err := r.rec.activity(ctx, actorID, models.ActivityPosted, Details{
		SpentDelta: CostPost,
		PostID:     post.ID,
	}); err != nil {
		return nil, err
	}

	actor, err := r.accounts.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	followers, err := r.follows.ListFollowerIDs(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := r.rec.notifyMany(ctx, followers, models.NotifyTypeNewPost,
		"New post",
		fmt.Sprintf("@%s shared a new post", actor.Username),
		Details{PostID: post.ID, ActorID: actorID}); err != nil {
		return nil, err
	}

	return &Result{PostID: post.ID}, nil
}

func (s *Service) likePost(ctx context.Context, r *txRepos, actorID string, a *LikePost) (*Result, error) {
	post, err := r.posts.GetByID(ctx, a.PostID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, NotFound("post not found")
	}
	if post.AuthorID == actorID {
		return nil, InvalidArgument("cannot like your own post")
	}

	like := &models.PostLike{
		ID:        uuid.NewString(),
		UserID:    actorID,
		PostID:    post.ID,
		CreatedAt: s.now(),
	}
	if err := r.likes.CreatePostLike(ctx, like); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, Duplicate("post already liked")
		}
		return nil, err
	}

	ok, err := r.accounts.Debit(ctx, actorID, CostLike, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.diagnoseDebit(ctx, r, actorID, CostLike)
	}
	if ok, err := r.accounts.Credit(ctx, post.AuthorID, CostLike); err != nil {
		return nil, err
	} else if !ok {
		return nil, NotFound("post author not found")
	}
	if err := r.posts.IncLikes(ctx, post.ID, 1); err != nil {
		return nil, err
	}

	if err := r.rec.activity(ctx, actorID, models.ActivityLikeGiven, Details{
		SpentDelta: CostLike,
		PostID:     post.ID,
	}); err != nil {
		return nil, err
	}
	if err := r.rec.activity(ctx, post.AuthorID, models.ActivityLikeReceived, Details{
		EarnedDelta: CostLike,
		PostID:      post.ID,
		ActorID:     actorID,
	}); err != nil {
		return nil, err
	}

	actor, err := r.accounts.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := r.rec.notify(ctx, post.AuthorID, models.NotifyTypeLike,
		"Your post was liked",
		fmt.Sprintf("@%s liked your post and sent you a heart", actor.Username),
		Details{PostID: post.ID, ActorID: actorID}); err != nil {
		return nil, err
	}

	return &Result{PostID: post.ID}, nil
}

func (s *Service) unlikePost(ctx context.Context, r *txRepos, actorID string, a *UnlikePost) (*Result, error) {
	like, err := r.likes.GetPostLike(ctx, actorID, a.PostID)
	if err != nil {
		return nil, err
	}
	if like == nil {
		return nil, NotFound("like not found")
	}
	post, err := r.posts.GetByID(ctx, a.PostID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, NotFound("post not found")
	}

	if err := r.likes.DeletePostLike(ctx, like.ID); err != nil {
		return nil, err
	}
	if _, err := r.accounts.Refund(ctx, actorID, CostLike); err != nil {
		return nil, err
	}
	if _, err := r.accounts.Chargeback(ctx, post.AuthorID, CostLike); err != nil {
		return nil, err
	}
	if err := r.posts.IncLikes(ctx, post.ID, -1); err != nil {
		return nil, err
	}

	if err := r.rec.activity(ctx, actorID, models.ActivityLikeRemoved, Details{
		SpentDelta: -CostLike,
		PostID:     post.ID,
	}); err != nil {
		return nil, err
	}
	if err := r.rec.activity(ctx, post.AuthorID, models.ActivityLikeReturned, Details{
		EarnedDelta: -CostLike,
		PostID:      post.ID,
		ActorID:     actorID,
	}); err != nil {
		return nil, err
	}

	return &Result{PostID: post.ID}, nil
}

func (s *Service) commentPost(ctx context.Context, r *txRepos, actorID string, a *CommentPost) (*Result, error) {
	content := strings.TrimSpace(a.Content)
	if content == "" {
		return nil, InvalidArgument("comment content must not be empty")
	}

	post, err := r.posts.GetByID(ctx, a.PostID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, NotFound("post not found")
	}

	parentID := sql.NullString{}
	if a.ParentCommentID != "" {
		parent, err := r.comments.GetByID(ctx, a.ParentCommentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, NotFound("parent comment not found")
		}
		if parent.PostID != post.ID {
			return nil, InvalidArgument("parent comment belongs to a different post")
		}
		parentID = sql.NullString{String: parent.ID, Valid: true}
	}

	ok, err := r.accounts.Debit(ctx, actorID, CostComment, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.diagnoseDebit(ctx, r, actorID, CostComment)
	}
	if ok, err := r.accounts.Credit(ctx, post.AuthorID, CostComment); err != nil {
		return nil, err
	} else if !ok {
		return nil, NotFound("post author not found")
	}

	comment := &models.Comment{
		ID:              uuid.NewString(),
		AuthorID:        actorID,
		PostID:          post.ID,
		ParentCommentID: parentID,
		Content:         content,
		CreatedAt:       s.now(),
	}
	if err := r.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	if err := r.posts.IncComments(ctx, post.ID, 1); err != nil {
		return nil, err
	}

	if err := r.rec.activity(ctx, actorID, models.ActivityCommented, Details{
		SpentDelta: CostComment,
		PostID:     post.ID,
		CommentID:  comment.ID,
	}); err != nil {
		return nil, err
	}
	if err := r.rec.activity(ctx, post.AuthorID, models.ActivityCommentReceived, Details{
		EarnedDelta: CostComment,
		PostID:      post.ID,
		CommentID:   comment.ID,
		ActorID:     actorID,
	}); err != nil {
		return nil, err
	}

	if post.AuthorID != actorID {
		actor, err := r.accounts.GetByID(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if err := r.rec.notify(ctx, post.AuthorID, models.NotifyTypeComment,
			"New comment",
			fmt.Sprintf("@%s commented on your post and sent you %d hearts", actor.Username, CostComment),
			Details{PostID: post.ID, CommentID: comment.ID, ActorID: actorID}); err != nil {
			return nil, err
		}
	}

	return &Result{PostID: post.ID, CommentID: comment.ID}, nil
}

func (s *Service) likeComment(ctx context.Context, r *txRepos, actorID string, a *LikeComment) (*Result, error) {
	comment, err := r.comments.GetByID(ctx, a.CommentID)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, NotFound("comment not found")
	}
	if comment.AuthorID == actorID {
		return nil, InvalidArgument("cannot like your own comment")
	}

	like := &models.CommentLike{
		ID:        uuid.NewString(),
		UserID:    actorID,
		CommentID: comment.ID,
		CreatedAt: s.now(),
	}
	if err := r.likes.CreateCommentLike(ctx, like); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, Duplicate("comment already liked")
		}
		return nil, err
	}

	ok, err := r.accounts.Debit(ctx, actorID, CostLike, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.diagnoseDebit(ctx, r, actorID, CostLike)
	}
	if ok, err := r.accounts.Credit(ctx, comment.AuthorID, CostLike); err != nil {
		return nil, err
	} else if !ok {
		return nil, NotFound("comment author not found")
	}
	if err := r.comments.IncLikes(ctx, comment.ID, 1); err != nil {
		return nil, err
	}

	if err := r.rec.activity(ctx, actorID, models.ActivityLikeGiven, Details{
		SpentDelta: CostLike,
		CommentID:  comment.ID,
	}); err != nil {
		return nil, err
	}
	if err := r.rec.activity(ctx, comment.AuthorID, models.ActivityLikeReceived, Details{
		EarnedDelta: CostLike,
		CommentID:   comment.ID,
		ActorID:     actorID,
	}); err != nil {
		return nil, err
	}

	actor, err := r.accounts.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := r.rec.notify(ctx, comment.AuthorID, models.NotifyTypeLike,
		"Your comment was liked",
		fmt.Sprintf("@%s liked your comment and sent you a heart", actor.Username),
		Details{CommentID: comment.ID, ActorID: actorID}); err != nil {
		return nil, err
	}

	return &Result{CommentID: comment.ID}, nil
}

func (s *Service) unlikeComment(ctx context.Context, r *txRepos, actorID string, a *UnlikeComment) (*Result, error) {
	like, err := r.likes.GetCommentLike(ctx, actorID, a.CommentID)
	if err != nil {
		return nil, err
	}
	if like == nil {
		return nil, NotFound("like not found")
	}
	comment, err := r.comments.GetByID(ctx, a.CommentID)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, NotFound("comment not found")
	}

	if err := r.likes.DeleteCommentLike(ctx, like.ID); err != nil {
		return nil, err
	}
	if _, err := r.accounts.Refund(ctx, actorID, CostLike); err != nil {
		return nil, err
	}
	if _, err := r.accounts.Chargeback(ctx, comment.AuthorID, CostLike); err != nil {
		return nil, err
	}
	if err := r.comments.IncLikes(ctx, comment.ID, -1); err != nil {
		return nil, err
	}

	if err := r.rec.activity(ctx, actorID, models.ActivityLikeRemoved, Details{
		SpentDelta: -CostLike,
		CommentID:  comment.ID,
	}); err != nil {
		return nil, err
	}
	if err := r.rec.activity(ctx, comment.AuthorID, models.ActivityLikeReturned, Details{
		EarnedDelta: -CostLike,
		CommentID:   comment.ID,
		ActorID:     actorID,
	}); err != nil {
		return nil, err
	}

	return &Result{CommentID: comment.ID}, nil
}

func (s *Service) reviveUser(ctx context.Context, r *txRepos, actorID string, a *ReviveUser) (*Result, error) {
	targetID := a.Target()
	if targetID == "" {
		return nil, InvalidArgument("missing target user")
	}
	if targetID == actorID {
		return nil, InvalidArgument("cannot revive yourself")
	}

	ok, err := r.accounts.Debit(ctx, actorID, CostRevive, true)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.diagnoseDebit(ctx, r, actorID, CostRevive)
	}

	revived, err := r.accounts.Revive(ctx, targetID, ReviveGrant)
	if err != nil {
		return nil, err
	}
	if !revived {
		target, err := r.accounts.GetByID(ctx, targetID)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return nil, NotFound("target user not found")
		}
		return nil, InvalidArgument("target user is not dead")
	}

	if err := r.rec.activity(ctx, actorID, models.ActivityReviveGiven, Details{
		SpentDelta:   CostRevive,
		TargetUserID: targetID,
	}); err != nil {
		return nil, err
	}
	if err := r.rec.activity(ctx, targetID, models.ActivityReviveReceived, Details{
		EarnedDelta: ReviveGrant,
		ActorID:     actorID,
	}); err != nil {
		return nil, err
	}

	actor, err := r.accounts.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	target, err := r.accounts.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := r.rec.notify(ctx, targetID, models.NotifyTypeRevive,
		"You were revived",
		fmt.Sprintf("@%s spent %d hearts to bring you back to life", actor.Username, CostRevive),
		Details{ActorID: actorID}); err != nil {
		return nil, err
	}
	followers, err := r.follows.ListFollowerIDs(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := r.rec.notifyMany(ctx, followers, models.NotifyTypeRevive,
		"Back from the dead",
		fmt.Sprintf("@%s is back from the dead", target.Username),
		Details{ActorID: actorID, TargetUserID: targetID}); err != nil {
		return nil, err
	}

	return &Result{}, nil
}

func (s *Service) burnHearts(ctx context.Context, r *txRepos, actorID string) (*Result, error) {
	acct, err := r.accounts.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, Unauthorized("unknown actor")
	}
	if acct.Hearts == 0 {
		return nil, InvalidArgument("no hearts to burn")
	}

	ok, err := r.accounts.Burn(ctx, actorID, acct.Hearts)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, Conflict("balance changed concurrently, resubmit")
	}

	if err := r.rec.activity(ctx, actorID, models.ActivityHeartsBurned, Details{
		SpentDelta: acct.Hearts,
	}); err != nil {
		return nil, err
	}

	followers, err := r.follows.ListFollowerIDs(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := r.rec.notifyMany(ctx, followers, models.NotifyTypeBurn,
		"Hearts burned",
		fmt.Sprintf("@%s burned all their hearts and entered the afterlife", acct.Username),
		Details{ActorID: actorID, Amount: acct.Hearts}); err != nil {
		return nil, err
	}

	return &Result{}, nil
}

func (s *Service) transferHearts(ctx context.Context, r *txRepos, actorID string, a *TransferHearts) (*Result, error) {
	targetID := a.Target()
	if targetID == "" {
		return nil, InvalidArgument("missing target user")
	}
	if targetID == actorID {
		return nil, InvalidArgument("cannot transfer hearts to yourself")
	}
	if a.Amount < TransferMin || a.Amount > TransferMax {
		return nil, InvalidArgument(fmt.Sprintf("amount must be between %d and %d", TransferMin, TransferMax))
	}

	ok, err := r.accounts.Debit(ctx, actorID, a.Amount, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.diagnoseDebit(ctx, r, actorID, a.Amount)
	}
	if ok, err := r.accounts.Credit(ctx, targetID, a.Amount); err != nil {
		return nil, err
	} else if !ok {
		return nil, NotFound("target user not found")
	}

	if err := r.rec.activity(ctx, actorID, models.ActivityHeartsTransferred, Details{
		SpentDelta:   a.Amount,
		TargetUserID: targetID,
		Amount:       a.Amount,
	}); err != nil {
		return nil, err
	}
	if err := r.rec.activity(ctx, targetID, models.ActivityHeartsReceived, Details{
		EarnedDelta: a.Amount,
		ActorID:     actorID,
		Amount:      a.Amount,
	}); err != nil {
		return nil, err
	}

	actor, err := r.accounts.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := r.rec.notify(ctx, targetID, models.NotifyTypeTransfer,
		"Hearts received",
		fmt.Sprintf("@%s sent you %d hearts", actor.Username, a.Amount),
		Details{ActorID: actorID, Amount: a.Amount}); err != nil {
		return nil, err
	}

	return &Result{}, nil
}
