package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/heartconomy/heartledger/internal/db"
	"github.com/heartconomy/heartledger/internal/models"
)

// Details is the structured payload of an activity entry or notification.
// SpentDelta and EarnedDelta mirror the counter changes applied by the
// action, so summing them over an account's activity log reproduces
// total_hearts_spent and total_hearts_earned.
type Details struct {
	SpentDelta   int64  `json:"spent_delta,omitempty"`
	EarnedDelta  int64  `json:"earned_delta,omitempty"`
	PostID       string `json:"post_id,omitempty"`
	CommentID    string `json:"comment_id,omitempty"`
	ActorID      string `json:"actor_id,omitempty"`
	TargetUserID string `json:"target_user_id,omitempty"`
	Amount       int64  `json:"amount,omitempty"`
}

// recorder writes the audit trail and notifications for a ledger action,
// inside the action's transaction.
type recorder struct {
	activities    *db.ActivityRepository
	notifications *db.NotificationRepository
	now           func() time.Time
}

func (r *recorder) activity(ctx context.Context, userID, activityType string, d Details) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return r.activities.Create(ctx, &models.Activity{
		ID:           uuid.NewString(),
		UserID:       userID,
		ActivityType: activityType,
		Details:      string(raw),
		CreatedAt:    r.now(),
	})
}

func (r *recorder) notify(ctx context.Context, userID, notifType, title, message string, d Details) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return r.notifications.Create(ctx, &models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Message:   message,
		Data:      string(raw),
		CreatedAt: r.now(),
	})
}

func (r *recorder) notifyMany(ctx context.Context, userIDs []string, notifType, title, message string, d Details) error {
	for _, id := range userIDs {
		if err := r.notify(ctx, id, notifType, title, message, d); err != nil {
			return err
		}
	}
	return nil
}

// ReplayCounters replays an account's activity log and returns the
// earned/spent counters it implies, applying the same floor-at-zero rule
// the balance updates use.
func ReplayCounters(activities []*models.Activity) (earned, spent int64, err error) {
	for _, a := range activities {
		var d Details
		if err := json.Unmarshal([]byte(a.Details), &d); err != nil {
			return 0, 0, err
		}
		earned += d.EarnedDelta
		if earned < 0 {
			earned = 0
		}
		spent += d.SpentDelta
		if spent < 0 {
			spent = 0
		}
	}
	return earned, spent, nil
}
