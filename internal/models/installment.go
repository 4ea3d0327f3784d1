package models

import "time"

// InstallmentPlan is the amortization schedule attached to a credit
// card purchase. It is owned by its transaction: deleting the
// transaction removes the plan and all its rows.
type InstallmentPlan struct {
	ID            uint   `gorm:"primaryKey"`
	TransactionID uint   `gorm:"uniqueIndex;not null"`
	NInstallments int    `gorm:"not null"`
	MonthlyRate   string `gorm:"size:32;not null"` // decimal text, e.g. "0.02"

	PrincipalMinor      int64 `gorm:"not null"`
	TotalInterestMinor  int64 `gorm:"not null"`
	TotalPrincipalMinor int64 `gorm:"not null"`
	TotalAmountMinor    int64 `gorm:"not null"`

	CreatedAt time.Time

	Installments []Installment `gorm:"constraint:OnDelete:CASCADE"`
}

// Installment is one row of a plan schedule.
type Installment struct {
	ID                uint      `gorm:"primaryKey"`
	InstallmentPlanID uint      `gorm:"index;not null"`
	Index             int       `gorm:"not null"` // 1-based
	DueDate           time.Time `gorm:"not null"`
	PrincipalMinor    int64     `gorm:"not null"`
	InterestMinor     int64     `gorm:"not null"`
	BalanceAfterMinor int64     `gorm:"not null"`
}
