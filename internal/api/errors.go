package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/heartconomy/heartledger/internal/ledger"
)

// statusForKind maps a ledger error kind to an HTTP status
func statusForKind(kind ledger.Kind) int {
	switch kind {
	case ledger.KindUnauthorized:
		return http.StatusUnauthorized
	case ledger.KindInsufficientHearts:
		return http.StatusPaymentRequired
	case ledger.KindDeadActor:
		return http.StatusForbidden
	case ledger.KindNotFound:
		return http.StatusNotFound
	case ledger.KindInvalidArgument:
		return http.StatusBadRequest
	case ledger.KindDuplicate, ledger.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a ledger failure as {error, code} with a non-2xx
// status. Internal errors are not echoed to the caller.
func writeError(c *gin.Context, err error) {
	kind := ledger.KindOf(err)
	status := statusForKind(kind)

	message := err.Error()
	if kind == ledger.KindUnknown {
		message = "internal error"
	}

	c.JSON(status, gin.H{
		"error": message,
		"code":  kind.String(),
	})
}
