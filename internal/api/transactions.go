package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/heartconomy/heartledger/internal/ledger"
	"github.com/heartconomy/heartledger/pkg/telemetry"
)

// transactionHandler is the single ledger entry point. The body carries
// an action tag plus action-specific fields; the actor comes from the
// Bearer token.
func (r *Router) transactionHandler(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "api.transaction")
	defer span.End()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, ledger.InvalidArgument("unreadable request body"))
		return
	}

	action, err := ledger.DecodeAction(body)
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := r.ledger.Execute(ctx, actorID(c), action)
	if err != nil {
		if ledger.KindOf(err) == ledger.KindUnknown {
			r.logger.Error("transaction failed",
				zap.String("action", action.ActionName()),
				zap.String("actor_id", actorID(c)),
				zap.Error(err))
		}
		writeError(c, err)
		return
	}

	resp := gin.H{"success": true}
	if result != nil {
		if result.PostID != "" {
			resp["postId"] = result.PostID
		}
		if result.CommentID != "" {
			resp["commentId"] = result.CommentID
		}
	}
	c.JSON(http.StatusOK, resp)
}
