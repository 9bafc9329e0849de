package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/heartconomy/heartledger/internal/db"
	"github.com/heartconomy/heartledger/internal/ledger"
	"github.com/heartconomy/heartledger/internal/models"
)

const (
	feedLimit        = 50
	activityLimit    = 50
	leaderboardLimit = 100
	leaderboardKey   = "leaderboard:vampires"
	leaderboardTTL   = 30 * time.Second
)

// feedPost is a post annotated with whether the caller has liked it
type feedPost struct {
	*models.Post
	UserHasLiked bool `json:"user_has_liked"`
}

func (r *Router) annotateLikes(c *gin.Context, posts []*models.Post) ([]feedPost, error) {
	likes := db.NewLikeRepository(db.NewRepository(r.db.DB))
	likedIDs, err := likes.ListLikedPostIDs(c.Request.Context(), actorID(c))
	if err != nil {
		return nil, err
	}
	liked := make(map[string]bool, len(likedIDs))
	for _, id := range likedIDs {
		liked[id] = true
	}

	out := make([]feedPost, 0, len(posts))
	for _, p := range posts {
		out = append(out, feedPost{Post: p, UserHasLiked: liked[p.ID]})
	}
	return out, nil
}

// feedHandler returns the newest posts
func (r *Router) feedHandler(c *gin.Context) {
	posts := db.NewPostRepository(db.NewRepository(r.db.DB))
	recent, err := posts.ListRecent(c.Request.Context(), feedLimit)
	if err != nil {
		r.logger.Error("feed query failed", zap.Error(err))
		writeError(c, err)
		return
	}

	annotated, err := r.annotateLikes(c, recent)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": annotated})
}

// followingFeedHandler returns the newest posts by followed accounts
func (r *Router) followingFeedHandler(c *gin.Context) {
	repo := db.NewRepository(r.db.DB)
	follows := db.NewFollowRepository(repo)
	followingIDs, err := follows.ListFollowingIDs(c.Request.Context(), actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	posts := db.NewPostRepository(repo)
	recent, err := posts.ListByAuthors(c.Request.Context(), followingIDs, feedLimit)
	if err != nil {
		writeError(c, err)
		return
	}

	annotated, err := r.annotateLikes(c, recent)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": annotated})
}

// threadedComment is a comment with its nested replies
type threadedComment struct {
	*models.Comment
	ParentCommentID string             `json:"parent_comment_id,omitempty"`
	Replies         []*threadedComment `json:"replies"`
}

// commentsHandler returns a post's comments as a reply tree
func (r *Router) commentsHandler(c *gin.Context) {
	repo := db.NewRepository(r.db.DB)
	posts := db.NewPostRepository(repo)
	post, err := posts.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if post == nil {
		writeError(c, ledger.NotFound("post not found"))
		return
	}

	comments := db.NewCommentRepository(repo)
	flat, err := comments.ListByPost(c.Request.Context(), post.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": buildThread(flat)})
}

// buildThread turns a flat creation-ordered comment list into a tree.
// Orphaned replies fall back to top level.
func buildThread(flat []*models.Comment) []*threadedComment {
	byID := make(map[string]*threadedComment, len(flat))
	roots := make([]*threadedComment, 0, len(flat))

	for _, cm := range flat {
		tc := &threadedComment{Comment: cm, Replies: []*threadedComment{}}
		if cm.ParentCommentID.Valid {
			tc.ParentCommentID = cm.ParentCommentID.String
		}
		byID[cm.ID] = tc
	}
	for _, cm := range flat {
		tc := byID[cm.ID]
		if tc.ParentCommentID != "" {
			if parent, ok := byID[tc.ParentCommentID]; ok {
				parent.Replies = append(parent.Replies, tc)
				continue
			}
		}
		roots = append(roots, tc)
	}
	return roots
}

// profileHandler returns an account with its counters
func (r *Router) profileHandler(c *gin.Context) {
	accounts := db.NewAccountRepository(db.NewRepository(r.db.DB))
	account, err := accounts.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if account == nil {
		writeError(c, ledger.NotFound("user not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account":       account,
		"vampire_ratio": account.VampireRatio(),
	})
}

// vampireEntry is a leaderboard row
type vampireEntry struct {
	*models.Account
	VampireRatio float64 `json:"vampire_ratio"`
}

// leaderboardHandler ranks accounts by vampire ratio. The result is
// cached in Redis for a short interval when Redis is configured.
func (r *Router) leaderboardHandler(c *gin.Context) {
	if r.cache != nil {
		if cached, err := r.cache.Get(leaderboardKey); err == nil {
			c.Data(http.StatusOK, "application/json", []byte(cached))
			return
		}
	}

	accounts := db.NewAccountRepository(db.NewRepository(r.db.DB))
	earners, err := accounts.ListVampires(c.Request.Context(), leaderboardLimit)
	if err != nil {
		writeError(c, err)
		return
	}

	entries := make([]vampireEntry, 0, len(earners))
	for _, a := range earners {
		entries = append(entries, vampireEntry{Account: a, VampireRatio: a.VampireRatio()})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].VampireRatio > entries[j].VampireRatio
	})

	payload, err := json.Marshal(gin.H{"vampires": entries})
	if err != nil {
		writeError(c, err)
		return
	}

	if r.cache != nil {
		if err := r.cache.Set(leaderboardKey, string(payload), leaderboardTTL); err != nil {
			r.logger.Warn("leaderboard cache write failed", zap.Error(err))
		}
	}

	c.Data(http.StatusOK, "application/json", payload)
}

// activityHandler returns the latest activity entries
func (r *Router) activityHandler(c *gin.Context) {
	activities := db.NewActivityRepository(db.NewRepository(r.db.DB))
	recent, err := activities.ListRecent(c.Request.Context(), activityLimit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": recent})
}
