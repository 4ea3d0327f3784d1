package models

import "time"

// TransactionType determines the sign applied to the owning account
// balance; the sign itself is never stored.
type TransactionType string

const (
	TxIncome      TransactionType = "income"
	TxExpense     TransactionType = "expense"
	TxSaving      TransactionType = "saving"
	TxTransferOut TransactionType = "transfer_out"
	TxTransferIn  TransactionType = "transfer_in"
)

// Transaction is a single committed movement on an account.
// AmountMinor is always positive and expressed in the account currency;
// when the original amount was in another currency, the FX fields record
// the conversion that produced it.
type Transaction struct {
	ID          uint            `gorm:"primaryKey"`
	UserID      uint            `gorm:"index;not null"`
	AccountID   uint            `gorm:"index;not null"`
	CategoryID  *uint           `gorm:"index"`
	GoalID      *uint           `gorm:"index"`
	Type        TransactionType `gorm:"size:16;index;not null"`
	AmountMinor int64           `gorm:"not null"`
	Currency    string          `gorm:"size:8;not null"`
	Date        time.Time       `gorm:"index;not null"`
	Description string          `gorm:"size:255"`

	// FX fields, set only when the request currency differed from the
	// account currency. ExchangeRate is a decimal with up to six
	// fractional digits, kept as text to stay exact.
	OriginalCurrency    string `gorm:"size:8"`
	ExchangeRate        string `gorm:"size:32"`
	OriginalAmountMinor int64

	// Both legs of a transfer share one group id.
	TransferGroupID string `gorm:"size:40;index"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Account  Account   `gorm:"constraint:OnDelete:CASCADE"`
	Category *Category `gorm:"constraint:OnDelete:SET NULL"`
	Goal     *Goal     `gorm:"constraint:OnDelete:SET NULL"`

	InstallmentPlan *InstallmentPlan `gorm:"constraint:OnDelete:CASCADE"`
}
