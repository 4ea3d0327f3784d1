package models

import "time"

// BudgetPeriod is the rolling window a budget limit applies to.
type BudgetPeriod string

const (
	BudgetMonthly BudgetPeriod = "month"
	BudgetWeekly  BudgetPeriod = "week"
)

// Budget caps spending for one (user, category, period). At most one
// active budget exists per such triple.
type Budget struct {
	ID         uint         `gorm:"primaryKey"`
	UserID     uint         `gorm:"index;not null"`
	CategoryID uint         `gorm:"index;not null"`
	Period     BudgetPeriod `gorm:"size:8;not null"`
	LimitMinor int64        `gorm:"not null"`
	WarnPct    float64      `gorm:"not null;default:0.8"` // in (0,1]
	StartDate  time.Time    `gorm:"not null"`
	Active     bool         `gorm:"not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Category Category `gorm:"constraint:OnDelete:CASCADE"`
}
