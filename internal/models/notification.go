package models

import "time"

// Notification is a persisted user-visible message produced from an
// engine event. EventKey is unique per user, which makes dispatch
// idempotent: replaying a pipeline run upserts instead of duplicating.
type Notification struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"uniqueIndex:idx_notifications_user_event;not null"`
	Type      string    `gorm:"size:32;index;not null"`
	Title     string    `gorm:"size:128;not null"`
	Message   string    `gorm:"size:512"`
	EventKey  string    `gorm:"size:128;uniqueIndex:idx_notifications_user_event;not null"`
	Read      bool      `gorm:"not null;default:false"`
	Withdrawn bool      `gorm:"not null;default:false"`
	CreatedAt time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}
