// Package notify turns engine events into persisted user-visible
// notifications. Every event carries a deterministic key; dispatch
// upserts on (user, key), so replaying a pipeline run over the same
// transaction creates nothing new.
package notify

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
)

// EventType enumerates the engine occurrences users hear about.
type EventType string

const (
	EventBudgetWarn      EventType = "budget_warn"
	EventBudgetExceeded  EventType = "budget_exceeded"
	EventGoalCompleted   EventType = "goal_completed"
	EventReviewRequested EventType = "review_requested"
)

// Event is one engine occurrence. Key must be stable across replays of
// the same logical occurrence.
type Event struct {
	UserID uint
	Type   EventType
	Key    string
	Args   map[string]string
}

// catalog maps event types to the title and message template shown to
// the user. Messages reference Args entries by name.
var catalog = map[EventType]struct {
	title   string
	message string
}{
	EventBudgetWarn:      {"Budget warning", "You have spent %s of your %s budget for this period."},
	EventBudgetExceeded:  {"Budget exceeded", "You have spent %s, over your %s budget for this period."},
	EventGoalCompleted:   {"Goal completed", "Congratulations, your goal %s reached its target."},
	EventReviewRequested: {"Transaction flagged", "A rule flagged transaction %s for review."},
}

// Render produces the user-visible title and message for an event.
func Render(ev Event) (title, message string) {
	entry, ok := catalog[ev.Type]
	if !ok {
		return string(ev.Type), ""
	}
	switch ev.Type {
	case EventBudgetWarn, EventBudgetExceeded:
		return entry.title, fmt.Sprintf(entry.message, ev.Args["consumed"], ev.Args["limit"])
	case EventGoalCompleted:
		return entry.title, fmt.Sprintf(entry.message, ev.Args["goal"])
	case EventReviewRequested:
		return entry.title, fmt.Sprintf(entry.message, ev.Args["description"])
	}
	return entry.title, entry.message
}

// Dispatcher persists notifications. Mail delivery, when configured,
// is the caller's post-commit concern; nothing here leaves the store.
type Dispatcher struct {
	Log *slog.Logger
}

func NewDispatcher(log *slog.Logger) *Dispatcher {
	return &Dispatcher{Log: log}
}

// Dispatch upserts one notification per event inside the caller's
// store transaction. Events whose key already exists for the user are
// silently dropped. Returns the notifications actually created.
func (d *Dispatcher) Dispatch(db *gorm.DB, events []Event) ([]models.Notification, error) {
	var created []models.Notification
	for _, ev := range events {
		title, message := Render(ev)
		n := models.Notification{
			UserID:   ev.UserID,
			Type:     string(ev.Type),
			Title:    title,
			Message:  message,
			EventKey: ev.Key,
		}
		res := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "event_key"}},
			DoNothing: true,
		}).Create(&n)
		if res.Error != nil {
			return created, fmt.Errorf("dispatch %s: %w", ev.Key, res.Error)
		}
		if res.RowsAffected > 0 {
			created = append(created, n)
			if d.Log != nil {
				d.Log.Info("notification dispatched",
					"user_id", ev.UserID, "type", ev.Type, "event_key", ev.Key)
			}
		}
	}
	return created, nil
}

// Withdraw marks the notification with the given key withdrawn, used
// when a revert undoes the occurrence (a goal completion rolled back).
// Missing keys are a no-op.
func (d *Dispatcher) Withdraw(db *gorm.DB, userID uint, eventKey string) error {
	err := db.Model(&models.Notification{}).
		Where("user_id = ? AND event_key = ?", userID, eventKey).
		Update("withdrawn", true).Error
	if err != nil {
		return fmt.Errorf("withdraw %s: %w", eventKey, err)
	}
	return nil
}
