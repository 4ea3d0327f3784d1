// Package goals tracks savings goal progress. Saving transactions
// accrue into the goal; a goal that reaches its target is completed
// and closed for further saving until a revert reopens it.
package goals

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/apperr"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/notify"
)

// CompletionKey returns the idempotent event key for a goal's
// completion notification.
func CompletionKey(goalID uint) string {
	return fmt.Sprintf("goal:%d:completed", goalID)
}

// Accrue adds a committed saving transaction to the goal. When the
// addition tips the goal over its target, the completion is stamped
// with the causing transaction and a goal_completed event is returned.
func Accrue(db *gorm.DB, goal *models.Goal, tx *models.Transaction) ([]notify.Event, error) {
	if goal.CompletedAt != nil {
		return nil, apperr.New(apperr.KindGoalAlreadyCompleted, "goal %d already completed", goal.ID)
	}

	before := goal.SavedMinor
	goal.SavedMinor += tx.AmountMinor

	var events []notify.Event
	if goal.SavedMinor >= goal.TargetMinor && before < goal.TargetMinor {
		now := time.Now()
		goal.CompletedAt = &now
		goal.CompletedByTransactionID = &tx.ID
		events = append(events, notify.Event{
			UserID: goal.UserID,
			Type:   notify.EventGoalCompleted,
			Key:    CompletionKey(goal.ID),
			Args:   map[string]string{"goal": goal.Name},
		})
	}

	if err := db.Model(&models.Goal{}).Where("id = ?", goal.ID).Updates(map[string]any{
		"saved_minor":                 goal.SavedMinor,
		"completed_at":                goal.CompletedAt,
		"completed_by_transaction_id": goal.CompletedByTransactionID,
	}).Error; err != nil {
		return nil, fmt.Errorf("accrue goal %d: %w", goal.ID, err)
	}
	return events, nil
}

// Release reverses a previously accrued saving transaction. The
// completion is cleared only when tx is the transaction that caused
// it; reports whether that happened so the caller can withdraw the
// completion notification.
func Release(db *gorm.DB, goal *models.Goal, tx *models.Transaction) (cleared bool, err error) {
	goal.SavedMinor -= tx.AmountMinor
	if goal.SavedMinor < 0 {
		return false, apperr.New(apperr.KindInternal,
			"goal %d saved amount would drop below zero", goal.ID)
	}

	if goal.CompletedByTransactionID != nil && *goal.CompletedByTransactionID == tx.ID {
		goal.CompletedAt = nil
		goal.CompletedByTransactionID = nil
		cleared = true
	}

	if err := db.Model(&models.Goal{}).Where("id = ?", goal.ID).Updates(map[string]any{
		"saved_minor":                 goal.SavedMinor,
		"completed_at":                goal.CompletedAt,
		"completed_by_transaction_id": goal.CompletedByTransactionID,
	}).Error; err != nil {
		return false, fmt.Errorf("release goal %d: %w", goal.ID, err)
	}
	return cleared, nil
}
