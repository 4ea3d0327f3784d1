// Package budgets rolls expense consumption per (user, category,
// period) and classifies threshold crossings. Evaluation runs after
// the transaction row is persisted, so the in-window sum already
// includes it; the previous ratio is derived by subtracting the
// transaction's own contribution. That keeps crossings correct even
// after reverts, without a cached counter.
package budgets

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/notify"
)

// Window is the half-open interval [Start, End) a budget period covers.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowFor returns the period window containing date: the calendar
// month, or the ISO week starting Monday.
func WindowFor(period models.BudgetPeriod, date time.Time) Window {
	switch period {
	case models.BudgetWeekly:
		// Roll back to Monday 00:00.
		offset := (int(date.Weekday()) + 6) % 7
		start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()).
			AddDate(0, 0, -offset)
		return Window{Start: start, End: start.AddDate(0, 0, 7)}
	default:
		start := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
		return Window{Start: start, End: start.AddDate(0, 1, 0)}
	}
}

// consumedInWindow sums committed expense amounts for (user, category)
// inside w.
func consumedInWindow(db *gorm.DB, userID, categoryID uint, w Window) (int64, error) {
	var total int64
	err := db.Model(&models.Transaction{}).
		Where("user_id = ? AND category_id = ? AND type = ? AND date >= ? AND date < ?",
			userID, categoryID, models.TxExpense, w.Start, w.End).
		Select("COALESCE(SUM(amount_minor), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("sum budget consumption: %w", err)
	}
	return total, nil
}

// Evaluate checks every active budget on the transaction's category
// and returns threshold-crossing events. tx must already be persisted
// and must be an expense on a category of kind expense; callers gate
// on that.
func Evaluate(db *gorm.DB, tx *models.Transaction) ([]notify.Event, error) {
	if tx.CategoryID == nil {
		return nil, nil
	}

	var budgetRows []models.Budget
	if err := db.Where("user_id = ? AND category_id = ? AND active = ?",
		tx.UserID, *tx.CategoryID, true).
		Find(&budgetRows).Error; err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}

	var events []notify.Event
	for i := range budgetRows {
		b := &budgetRows[i]
		if tx.Date.Before(b.StartDate) {
			continue
		}
		w := WindowFor(b.Period, tx.Date)
		consumed, err := consumedInWindow(db, tx.UserID, *tx.CategoryID, w)
		if err != nil {
			return nil, err
		}
		prev := consumed - tx.AmountMinor

		ratio := float64(consumed) / float64(b.LimitMinor)
		prevRatio := float64(prev) / float64(b.LimitMinor)

		if ratio >= b.WarnPct && prevRatio < b.WarnPct {
			events = append(events, notify.Event{
				UserID: tx.UserID,
				Type:   notify.EventBudgetWarn,
				Key:    eventKey(b.ID, w.Start, "warn"),
				Args:   map[string]string{"limit": fmt.Sprint(b.LimitMinor), "consumed": fmt.Sprint(consumed)},
			})
		}
		if ratio >= 1 && prevRatio < 1 {
			events = append(events, notify.Event{
				UserID: tx.UserID,
				Type:   notify.EventBudgetExceeded,
				Key:    eventKey(b.ID, w.Start, "exceeded"),
				Args:   map[string]string{"limit": fmt.Sprint(b.LimitMinor), "consumed": fmt.Sprint(consumed)},
			})
		}
	}
	return events, nil
}

// Status reports current consumption for one budget in the window
// containing now; the read side the handlers expose.
type ConsumptionStatus struct {
	Budget        *models.Budget
	WindowStart   time.Time
	WindowEnd     time.Time
	ConsumedMinor int64
	Ratio         float64
}

func StatusFor(db *gorm.DB, b *models.Budget, now time.Time) (*ConsumptionStatus, error) {
	w := WindowFor(b.Period, now)
	consumed, err := consumedInWindow(db, b.UserID, b.CategoryID, w)
	if err != nil {
		return nil, err
	}
	return &ConsumptionStatus{
		Budget:        b,
		WindowStart:   w.Start,
		WindowEnd:     w.End,
		ConsumedMinor: consumed,
		Ratio:         float64(consumed) / float64(b.LimitMinor),
	}, nil
}

// eventKey makes threshold events idempotent per (budget, window,
// threshold); the user id is carried on the event itself.
func eventKey(budgetID uint, windowStart time.Time, threshold string) string {
	return fmt.Sprintf("budget:%d:%s:%s", budgetID, windowStart.Format("2006-01-02"), threshold)
}
