package models

import "time"

// AccountType classifies which side of the balance an account sits on.
type AccountType string

const (
	AccountAsset     AccountType = "asset"
	AccountLiability AccountType = "liability"
)

// AccountCategory refines the account for balance-floor rules:
// cash and savings accounts may not go negative, credit accounts
// are bounded by their credit limit instead.
type AccountCategory string

const (
	AccountCash    AccountCategory = "cash"
	AccountSavings AccountCategory = "savings"
	AccountCredit  AccountCategory = "credit"
	AccountOther   AccountCategory = "other"
)

// Account holds a per-user balance in a single currency.
// BalanceMinor is the signed sum of all applied transaction deltas
// under the account-type sign rule; money stored in minor units.
type Account struct {
	ID               uint            `gorm:"primaryKey"`
	UserID           uint            `gorm:"index;not null"`
	Name             string          `gorm:"size:64;not null"`
	Type             AccountType     `gorm:"size:16;not null"`
	Category         AccountCategory `gorm:"size:16;not null"`
	Currency         string          `gorm:"size:8;not null"`
	BalanceMinor     int64           `gorm:"not null;default:0"`
	CreditLimitMinor int64           `gorm:"not null;default:0"` // liability accounts only; 0 = no limit
	Active           bool            `gorm:"not null;default:true"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}
