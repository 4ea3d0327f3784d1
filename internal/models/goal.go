package models

import "time"

// Goal is a savings target. SavedMinor accrues from saving
// transactions and never goes below zero. CompletedByTransactionID
// records which transaction tipped the goal over, so reverting that
// transaction clears the completion again.
type Goal struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      uint      `gorm:"index;not null"`
	Name        string    `gorm:"size:64;not null"`
	TargetMinor int64     `gorm:"not null"`
	SavedMinor  int64     `gorm:"not null;default:0"`
	Currency    string    `gorm:"size:8;not null"`
	TargetDate  time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	CompletedAt              *time.Time
	CompletedByTransactionID *uint
}
