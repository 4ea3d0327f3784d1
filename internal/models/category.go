package models

import "time"

// CategoryKind is fixed at creation and never changes afterwards.
type CategoryKind string

const (
	CategoryIncome   CategoryKind = "income"
	CategoryExpense  CategoryKind = "expense"
	CategorySaving   CategoryKind = "saving"
	CategoryTransfer CategoryKind = "transfer"
)

// Category represents a user-owned transaction category.
type Category struct {
	ID        uint         `gorm:"primaryKey"`
	UserID    uint         `gorm:"index;not null"`
	Name      string       `gorm:"size:64;not null"`
	Kind      CategoryKind `gorm:"size:16;index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
