package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/heartconomy/heartledger/internal/db"
	"github.com/heartconomy/heartledger/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// A single connection keeps every session on the same in-memory
	// database and serializes concurrent transactions.
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return gdb
}

func createAccount(t *testing.T, gdb *gorm.DB, username string, hearts int64) *models.Account {
	t.Helper()

	status := models.StatusAlive
	if hearts == 0 {
		status = models.StatusDead
	}
	account := &models.Account{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: "x",
		Hearts:       hearts,
		Status:       status,
		CreatedAt:    time.Now().UTC(),
	}
	if err := gdb.Create(account).Error; err != nil {
		t.Fatalf("failed to create account %s: %v", username, err)
	}
	return account
}

func getAccount(t *testing.T, gdb *gorm.DB, id string) *models.Account {
	t.Helper()

	var account models.Account
	if err := gdb.Where("id = ?", id).First(&account).Error; err != nil {
		t.Fatalf("failed to load account %s: %v", id, err)
	}
	return &account
}

func getPost(t *testing.T, gdb *gorm.DB, id string) *models.Post {
	t.Helper()

	var post models.Post
	if err := gdb.Where("id = ?", id).First(&post).Error; err != nil {
		t.Fatalf("failed to load post %s: %v", id, err)
	}
	return &post
}

func mustExecute(t *testing.T, s *Service, actorID string, action Action) *Result {
	t.Helper()

	result, err := s.Execute(context.Background(), actorID, action)
	if err != nil {
		t.Fatalf("Execute(%s) failed: %v", action.ActionName(), err)
	}
	return result
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %v error, got nil", kind)
	}
	if KindOf(err) != kind {
		t.Fatalf("expected %v error, got %v (%v)", kind, KindOf(err), err)
	}
}

func TestCreatePost(t *testing.T) {
	gdb := newTestDB(t)
	s := NewService(gdb)
	actor := createAccount(t, gdb, "alice", 100)
	follower := createAccount(t, gdb, "bob", 100)
	if err := gdb.Create(&models.Follow{FollowerID: follower.ID, FollowingID: actor.ID, CreatedAt: time.Now()}).Error; err != nil {
		t.Fatal(err)
	}

	result := mustExecute(t, s, actor.ID, &CreatePost{Content: "hello world"})
	if result.PostID == "" {
		t.Fatal("expected a post ID")
	}

	post := getPost(t, gdb, result.PostID)
	if post.AuthorID != actor.ID || post.Content != "hello world" {
		t.Errorf("unexpected post: %+v", post)
	}

	got := getAccount(t, gdb, actor.ID)
	if got.Hearts != 98 || got.TotalHeartsSpent != 2 {
		t.Errorf("expected 98 hearts and 2 spent, got %d/%d", got.Hearts, got.TotalHeartsSpent)
	}

	var activities []models.Activity
	if err := gdb.Where("user_id = ?", actor.ID).Find(&activities).Error; err != nil {
		t.Fatal(err)
	}
	if len(activities) != 1 || activities[0].ActivityType != models.ActivityPosted {
		t.Errorf("expected one posted activity, got %+v", activities)
	}

	var notifCount int64
	if err := gdb.Model(&models.Notification{}).Where("user_id = ?", follower.ID).Count(&notifCount).Error; err != nil {
		t.Fatal(err)
	}
	if notifCount != 1 {
		t.Errorf("expected follower to be notified, got %d notifications", notifCount)
	}
}

func TestCreatePostFailures(t *testing.T) {
	gdb := newTestDB(t)
	s := NewService(gdb)
	broke := createAccount(t, gdb, "broke", 1)
	dead := createAccount(t, gdb, "ghost", 0)
	rich := createAccount(t, gdb, "rich", 100)

	tests := []struct {
		name    string
		actorID string
		content string
		kind    Kind
	}{
		{"insufficient hearts", broke.ID, "hi", KindInsufficientHearts},
		{"dead actor", dead.ID, "hi", KindDeadActor},
		{"empty content", rich.ID, "   ", KindInvalidArgument},
		{"unknown actor", uuid.NewString(), "hi", KindUnauthorized},
		{"missing actor", "", "hi", KindUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Execute(context.Background(), tt.actorID, &CreatePost{Content: tt.content})
			wantKind(t, err, tt.kind)
		})
	}

	// No side effects from any rejected action.
	var postCount int64
	if err := gdb.Model(&models.Post{}).Count(&postCount).Error; err != nil {
		t.Fatal(err)
	}
	if postCount != 0 {
		t.Errorf("expected no posts, got %d", postCount)
	}
	if got := getAccount(t, gdb, broke.ID); got.Hearts != 1 {
		t.Errorf("rejected action mutated balance: %d", got.Hearts)
	}
}

func TestLikeUnlikeRoundTrip(t *testing.T) {
	gdb := newTestDB(t)
	s := NewService(gdb)
	a := createAccount(t, gdb, "a", 100)
	b := createAccount(t, gdb, "b", 100)

	result := mustExecute(t, s, a.ID, &CreatePost{Content: "like me"})
	if got := getAccount(t, gdb, a.ID); got.Hearts != 98 {
		t.Fatalf("expected A at 98 after posting, got %d", got.Hearts)
	}

	mustExecute(t, s, b.ID, &LikePost{PostID: result.PostID})
	if got := getAccount(t, gdb, b.ID); got.Hearts != 99 || got.TotalHeartsSpent != 1 {
		t.Errorf("expected B at 99/1 spent, got %d/%d", got.Hearts, got.TotalHeartsSpent)
	}
	if got := getAccount(t, gdb, a.ID); got.Hearts != 99 || got.TotalHeartsEarned != 1 {
		t.Errorf("expected A at 99/1 earned, got %d/%d", got.Hearts, got.TotalHeartsEarned)
	}
	if post := getPost(t, gdb, result.PostID); post.LikesCount != 1 {
		t.Errorf("expected likes_count 1, got %d", post.LikesCount)
	}

	mustExecute(t, s, b.ID, &UnlikePost{PostID: result.PostID})
	if got := getAccount(t, gdb, b.ID); got.Hearts != 100 || got.TotalHeartsSpent != 0 {
		t.Errorf("expected B restored to 100/0 spent, got %d/%d", got.Hearts, got.TotalHeartsSpent)
	}
	if got := getAccount(t, gdb, a.ID); got.Hearts != 98 || got.TotalHeartsEarned != 0 {
		t.Errorf("expected A back at 98/0 earned, got %d/%d", got.Hearts, got.TotalHeartsEarned)
	}
	if post := getPost(t, gdb, result.PostID); post.LikesCount != 0 {
		t.Errorf("expected likes_count 0, got %d", post.LikesCount)
	}
}

func TestLikePostRejections(t *testing.T) {
	gdb := newTestDB(t)
	s := NewService(gdb)
	a := createAccount(t, gdb, "a", 100)
	b := createAccount(t, gdb, "b", 100)

	result := mustExecute(t, s, a.ID, &CreatePost{Content: "post"})

	_, err := s.Execute(context.Background(), a.ID, &LikePost{PostID: result.PostID})
	wantKind(t, err, KindInvalidArgument)

	mustExecute(t, s, b.ID, &LikePost{PostID: result.PostID})
	_, err = s.Execute(context.Background(), b.ID, &LikePost{PostID: result.PostID})
	wantKind(t, err, KindDuplicate)

	// The rejected duplicate must not have moved a single heart.
	if got := getAccount(t, gdb, b.ID); got.Hearts != 99 {
		t.Errorf("duplicate like mutated balance: %d", got.Hearts)
	}

	_, err = s.Execute(context.Background(), b.ID, &LikePost{PostID: uuid.NewString()})
	wantKind(t, err, KindNotFound)

	_, err = s.Execute(context.Background(), b.ID, &UnlikePost{PostID: uuid.NewString()})
	wantKind(t, err, KindNotFound)
}

func TestLikeCreditRevivesDeadAuthor(t *testing.T) {
	gdb := newTestDB(t)
	s := NewService(gdb)
	b := createAccount(t, gdb, "liker", 100)

	// Author posted, then went to zero.
	a := createAccount(t, gdb, "author", 2)
	result := mustExecute(t, s, a.ID, &CreatePost{Content: "last words"})
	if got := getAccount(t, gdb, a.ID); got.Hearts != 0 || got.Status != models.StatusDead {
		t.Fatalf("expected author dead at 0, got %d/%s", got.Hearts, got.Status)
	}

	mustExecute(t, s, b.ID, &LikePost{PostID: result.PostID})
	got := getAccount(t, gdb, a.ID)
	if got.Hearts != 1 || got.Status != models.StatusAlive {
		t.Errorf("credit must keep dead<=>zero: got %d/%s", got.Hearts, got.Status)
	}
}

func TestUnlikeFloorsAuthorAtZero(t *testing.T) {
	gdb := newTestDB(t)
	s := NewService(gdb)
	b := createAccount(t, gdb, "liker", 100)
	a := createAccount(t, gdb, "author", 2)

	result := mustExecute(t, s, a.ID, &CreatePost{Content: "p"})
	mustExecute(t, s, b.ID, &LikePost{PostID: result.PostID})

	// Author burns their single earned heart before the unlike lands.
	mustExecute(t, s, a.ID, &BurnHearts{})

	mustExecute(t, s, b.ID, &UnlikePost{PostID: result.PostID})
	got := getAccount(t, gdb, a.ID)
	if got.Hearts != 0 || got.Status != models.StatusDead {
		t.Errorf("expected author floored at 0 and dead, got %d/%s", got.Hearts, got.Status)
	}
	if got.TotalHeartsEarned != 0 {
		t.Errorf("expected earned clamped at 0, got %d", got.TotalHeartsEarned)
	}
}

func TestCommentPost(t *testing.T) {
	gdb := newTestDB(t)
	s := NewService(gdb)
	a := createAccount(t, gdb, "author", 100)
	b := createAccount(t, gdb, "commenter", 100)

	postResult := mustExecute(t, s, a.ID, &CreatePost{Content: "discuss"})
	commentResult := mustExecute(t, s, b.ID, &CommentPost{PostID: postResult.PostID, Content: "first"})
	if commentResult.CommentID == "" {
		t.Fatal("expected a comment ID")
	}

	if got := getAccount(t, gdb, b.ID); got.Hearts != 97 || got.TotalHeartsSpent != 3 {
		t.Errorf("expected commenter at 97/3 spent, got %d/%d", got.Hearts, got.TotalHeartsSpent)
	}
	if got := getAccount(t, gdb, a.ID); got.Hearts != 101 || got.TotalHeartsEarned != 3 {
		t.Errorf("expected author at 101/3 earned, got %d/%d", got.Hearts, got.TotalHeartsEarned)
	}
	if post := getPost(t, gdb, postResult.PostID); post.CommentsCount != 1 {
		t.Errorf("expected comments_count 1, got %d", post.CommentsCount)
	}

	// Threaded reply under the first comment.
	reply := mustExecute(t, s, a.ID, &CommentPost{
		PostID:          postResult.PostID,
		Content:         "reply",
		ParentCommentID: commentResult.CommentID,
	})
	var stored models.Comment
	if err := gdb.Where("id = ?", reply.CommentID).First(&stored).Error; err != nil {
		t.Fatal(err)
	}
	if !stored.ParentCommentID.Valid || stored.ParentCommentID.String != commentResult.CommentID {
		t.Errorf("expected reply parent %s, got %+v", commentResult.CommentID, stored.ParentCommentID)
	}

	// Parent from another post is rejected.
	other := mustExecute(t, s, a.ID, &CreatePost{Content: "other"})
	_, err := s.Execute(context.Background(), b.ID, &CommentPost{
		PostID:          other.PostID,
		Content:         "cross-thread",
		ParentCommentID: commentResult.CommentID,
	})
	wantKind(t, err, KindInvalidArgument)

	_, err = s.Execute(context.Background(), b.ID, &CommentPost{PostID: uuid.NewString(), Content: "x"})
	wantKind(t, err, KindNotFound)
}

func TestLikeCommentRoundTrip(t *testing.T) {
	gdb := newTestDB(t)
	s := NewService(gdb)
	a := createAccount(t, gdb, "author", 100)
	b := createAccount(t, gdb, "liker", 100)

	postResult := mustExecute(t, s, a.ID, &CreatePost{Content: "p"})
	commentResult := mustExecute(t, s, a.ID, &CommentPost{PostID: postResult.PostID, Content: "c"})

	_, err := s.Execute(context.Background(), a.ID, &LikeComment{CommentID: commentResult.CommentID})
	wantKind(t, err, KindInvalidArgument)

	mustExecute(t, s, b.ID, &LikeComment{CommentID: commentResult.CommentID})
	_, err = s.Execute(context.Background(), b.ID, &LikeComment{CommentID: commentResult.CommentID})
	wantKind(t, err, KindDuplicate)

	var stored models.Comment
	if err := gdb.Where("id = ?", commentResult.CommentID).First(&stored).Error; err != nil {
		t.Fatal(err)
	}
	if stored.LikesCount != 1 {
		t.Errorf("expected comment likes_count 1, got %d", stored.LikesCount)
	}

	before := getAccount(t, gdb, b.ID)
	mustExecute(t, s, b.ID, &UnlikeComment{CommentID: commentResult.CommentID})
	after := getAccount(t, gdb, b.ID)
	if after.Hearts != before.Hearts+1 {
		t.Errorf("expected liker refunded one heart, got %d -> %d", before.Hearts, after.Hearts)
	}
}

func TestReviveUser(t *testing.T) {
	gdb := newTestDB(t)
	s := NewService(gdb)
	d := createAccount(t, gdb, "healer", 100)
	c := createAccount(t, gdb, "corpse", 0)

	mustExecute(t, s, d.ID, &ReviveUser{TargetUserID: c.ID})

	giver := getAccount(t, gdb, d.ID)
	if giver.Hearts != 90 || giver.TotalHeartsSpent != 10 || giver.RevivesGiven != 1 {
		t.Errorf("unexpected reviver state: %+v", giver)
	}
	target := getAccount(t, gdb, c.ID)
	if target.Hearts != 10 || target.Status != models.StatusAlive || target.RevivesReceived != 1 {
		t.Errorf("unexpected target state: %+v", target)
	}

	var notifCount int64
	if err := gdb.Model(&models.Notification{}).Where("user_id = ?", c.ID).Count(&notifCount).Error; err != nil {
		t.Fatal(err)
	}
	if notifCount != 1 {
		t.Errorf("expected target to be notified, got %d", notifCount)
	}
}

func TestReviveUserRejections(t *testing.T) {
	gdb := newTestDB(t)
	s := NewService(gdb)
	healer := createAccount(t, gdb, "healer", 100)
	alive := createAccount(t, gdb, "alive", 50)
	poor := createAccount(t, gdb, "poor", 5)
	corpse := createAccount(t, gdb, "corpse", 0)

	tests := []struct {
		name   string
		actor  string
		target string
		kind   Kind
	}{
		{"target alive", healer.ID, alive.ID, KindInvalidArgument},
		{"self revive", healer.ID, healer.ID, KindInvalidArgument},
		{"missing target", healer.ID, "", KindInvalidArgument},
		{"unknown target", healer.ID, uuid.NewString(), KindNotFound},
		{"poor reviver", poor.ID, corpse.ID, KindInsufficientHearts},
		{"dead reviver", corpse.ID, corpse.ID, KindInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Execute(context.Background(), tt.actor, &ReviveUser{TargetUserID: tt.target})
			wantKind(t, err, tt.kind)
		})
	}

	// Rejected revivals leave the reviver untouched.
	if got := getAccount(t, gdb, healer.ID); got.Hearts != 100 || got.RevivesGiven != 0 {
		t.Errorf("rejected revive mutated reviver: %+v", got)
	}
	if got := getAccount(t, gdb, corpse.ID); got.Status != models.StatusDead {
		t.Errorf("rejected revive mutated target: %+v", got)
	}
}

func TestBurnHearts(t *testing.T) {
	gdb := newTestDB(t)
	s := NewService(gdb)
	actor := createAccount(t, gdb, "pyro", 73)

	mustExecute(t, s, actor.ID, &BurnHearts{})

	got := getAccount(t, gdb, actor.ID)
	if got.Hearts != 0 || got.Status != models.StatusDead || got.TotalHeartsSpent != 73 {
		t.Errorf("unexpected post-burn state: %+v", got)
	}

	_, err := s.Execute(context.Background(), actor.ID, &BurnHearts{})
	wantKind(t, err, KindInvalidArgument)
}

func TestTransferHearts(t *testing.T) {
	gdb := newTestDB(t)
	s := NewService(gdb)
	sender := createAccount(t, gdb, "sender", 100)
	receiver := createAccount(t, gdb, "receiver", 100)

	tests := []struct {
		name   string
		target string
		amount int64
		kind   Kind
	}{
		{"zero amount", receiver.ID, 0, KindInvalidArgument},
		{"too large", receiver.ID, 51, KindInvalidArgument},
		{"self transfer", sender.ID, 10, KindInvalidArgument},
		{"unknown target", uuid.NewString(), 10, KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Execute(context.Background(), sender.ID, &TransferHearts{TargetUserID: tt.target, Amount: tt.amount})
			wantKind(t, err, tt.kind)
		})
	}

	mustExecute(t, s, sender.ID, &TransferHearts{TargetUserID: receiver.ID, Amount: 30})

	if got := getAccount(t, gdb, sender.ID); got.Hearts != 70 || got.TotalHeartsSpent != 30 {
		t.Errorf("unexpected sender state: %+v", got)
	}
	if got := getAccount(t, gdb, receiver.ID); got.Hearts != 130 || got.TotalHeartsEarned != 30 {
		t.Errorf("unexpected receiver state: %+v", got)
	}
}

func TestSpendToZeroDerivesDead(t *testing.T) {
	gdb := newTestDB(t)
	s := NewService(gdb)
	actor := createAccount(t, gdb, "edge", 2)

	mustExecute(t, s, actor.ID, &CreatePost{Content: "famous last post"})

	got := getAccount(t, gdb, actor.ID)
	if got.Hearts != 0 || got.Status != models.StatusDead {
		t.Errorf("expected dead at exactly 0, got %d/%s", got.Hearts, got.Status)
	}
}

func TestReplayConsistency(t *testing.T) {
	gdb := newTestDB(t)
	s := NewService(gdb)

	// Strictly increasing timestamps so the replay order matches the
	// execution order exactly.
	base := time.Now().UTC()
	var tick time.Duration
	s.now = func() time.Time {
		tick += time.Millisecond
		return base.Add(tick)
	}

	a := createAccount(t, gdb, "a", 100)
	b := createAccount(t, gdb, "b", 100)
	c := createAccount(t, gdb, "c", 0)

	post := mustExecute(t, s, a.ID, &CreatePost{Content: "p"})
	mustExecute(t, s, b.ID, &LikePost{PostID: post.PostID})
	comment := mustExecute(t, s, b.ID, &CommentPost{PostID: post.PostID, Content: "c"})
	mustExecute(t, s, a.ID, &LikeComment{CommentID: comment.CommentID})
	mustExecute(t, s, b.ID, &UnlikePost{PostID: post.PostID})
	mustExecute(t, s, a.ID, &ReviveUser{TargetUserID: c.ID})
	mustExecute(t, s, b.ID, &TransferHearts{TargetUserID: c.ID, Amount: 5})
	mustExecute(t, s, a.ID, &BurnHearts{})

	for _, id := range []string{a.ID, b.ID, c.ID} {
		var activities []*models.Activity
		if err := gdb.Where("user_id = ?", id).Order("created_at ASC").Find(&activities).Error; err != nil {
			t.Fatal(err)
		}
		earned, spent, err := ReplayCounters(activities)
		if err != nil {
			t.Fatalf("replay failed for %s: %v", id, err)
		}
		got := getAccount(t, gdb, id)
		if earned != got.TotalHeartsEarned || spent != got.TotalHeartsSpent {
			t.Errorf("replay mismatch for %s: replayed %d/%d, stored %d/%d",
				got.Username, earned, spent, got.TotalHeartsEarned, got.TotalHeartsSpent)
		}
		if got.Hearts < 0 {
			t.Errorf("negative balance for %s: %d", got.Username, got.Hearts)
		}
		if (got.Hearts == 0) != (got.Status == models.StatusDead) {
			t.Errorf("status invariant broken for %s: %d hearts, %s", got.Username, got.Hearts, got.Status)
		}
	}
}

func TestConcurrentLikesLoseNoUpdate(t *testing.T) {
	gdb := newTestDB(t)
	s := NewService(gdb)
	author := createAccount(t, gdb, "author", 100)

	const likers = 8
	likerIDs := make([]string, likers)
	for i := range likerIDs {
		likerIDs[i] = createAccount(t, gdb, "liker"+string(rune('a'+i)), 100).ID
	}

	post := mustExecute(t, s, author.ID, &CreatePost{Content: "race me"})

	var wg sync.WaitGroup
	for _, id := range likerIDs {
		wg.Add(1)
		go func(actorID string) {
			defer wg.Done()
			if _, err := s.Execute(context.Background(), actorID, &LikePost{PostID: post.PostID}); err != nil {
				t.Errorf("concurrent like failed: %v", err)
			}
		}(id)
	}
	wg.Wait()

	got := getAccount(t, gdb, author.ID)
	if got.Hearts != 98+likers {
		t.Errorf("lost update: author at %d hearts, want %d", got.Hearts, 98+likers)
	}
	if got.TotalHeartsEarned != likers {
		t.Errorf("lost update: earned %d, want %d", got.TotalHeartsEarned, likers)
	}
	if p := getPost(t, gdb, post.PostID); p.LikesCount != likers {
		t.Errorf("lost update: likes_count %d, want %d", p.LikesCount, likers)
	}
}
