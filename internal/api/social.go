package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/heartconomy/heartledger/internal/db"
	"github.com/heartconomy/heartledger/internal/ledger"
	"github.com/heartconomy/heartledger/internal/models"
)

const notificationsLimit = 50

// notificationsHandler returns the caller's newest notifications with an
// unread count.
func (r *Router) notificationsHandler(c *gin.Context) {
	notifs := db.NewNotificationRepository(db.NewRepository(r.db.DB))

	list, err := notifs.ListByUser(c.Request.Context(), actorID(c), notificationsLimit)
	if err != nil {
		writeError(c, err)
		return
	}
	unread, err := notifs.CountUnread(c.Request.Context(), actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": list,
		"unread":        unread,
	})
}

// markReadHandler flips the read flag on one of the caller's notifications
func (r *Router) markReadHandler(c *gin.Context) {
	notifs := db.NewNotificationRepository(db.NewRepository(r.db.DB))
	ok, err := notifs.MarkRead(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		writeError(c, ledger.NotFound("notification not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// markAllReadHandler flips the read flag on all the caller's notifications
func (r *Router) markAllReadHandler(c *gin.Context) {
	notifs := db.NewNotificationRepository(db.NewRepository(r.db.DB))
	if err := notifs.MarkAllRead(c.Request.Context(), actorID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// followHandler creates a follow edge from the caller to :id. Follows
// are free; they never touch the ledger.
func (r *Router) followHandler(c *gin.Context) {
	targetID := c.Param("id")
	if targetID == actorID(c) {
		writeError(c, ledger.InvalidArgument("cannot follow yourself"))
		return
	}

	repo := db.NewRepository(r.db.DB)
	accounts := db.NewAccountRepository(repo)
	target, err := accounts.GetByID(c.Request.Context(), targetID)
	if err != nil {
		writeError(c, err)
		return
	}
	if target == nil {
		writeError(c, ledger.NotFound("user not found"))
		return
	}

	follows := db.NewFollowRepository(repo)
	err = follows.Create(c.Request.Context(), &models.Follow{
		FollowerID:  actorID(c),
		FollowingID: targetID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeError(c, ledger.Duplicate("already following"))
			return
		}
		writeError(c, err)
		return
	}

	follower, err := accounts.GetByID(c.Request.Context(), actorID(c))
	if err == nil && follower != nil {
		notifs := db.NewNotificationRepository(repo)
		err = notifs.Create(c.Request.Context(), &models.Notification{
			ID:        uuid.NewString(),
			UserID:    targetID,
			Type:      models.NotifyTypeFollow,
			Title:     "New follower",
			Message:   fmt.Sprintf("@%s started following you", follower.Username),
			CreatedAt: time.Now().UTC(),
		})
	}
	if err != nil {
		r.logger.Warn("follow notification failed", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// unfollowHandler removes a follow edge
func (r *Router) unfollowHandler(c *gin.Context) {
	follows := db.NewFollowRepository(db.NewRepository(r.db.DB))
	if err := follows.Delete(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
