// Package ledger owns account balances. Every committed transaction
// moves its account balance by a signed delta derived from the
// (account type, transaction type) pair; the delta is applied inside
// the caller's store transaction so the balance and the transaction
// row commit or roll back together.
package ledger

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/apperr"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
)

// Sign returns the direction a transaction type moves the balance of
// an account type. Asset accounts grow on income and incoming
// transfers; liability accounts (credit cards) grow on spending and
// shrink on payments.
func Sign(accountType models.AccountType, txType models.TransactionType) (int64, error) {
	switch accountType {
	case models.AccountAsset:
		switch txType {
		case models.TxIncome, models.TxTransferIn:
			return +1, nil
		case models.TxExpense, models.TxSaving, models.TxTransferOut:
			return -1, nil
		}
	case models.AccountLiability:
		switch txType {
		case models.TxExpense, models.TxSaving, models.TxTransferOut:
			return +1, nil // debt grows
		case models.TxIncome, models.TxTransferIn:
			return -1, nil // payments reduce debt
		}
	}
	return 0, apperr.New(apperr.KindValidation, "no sign rule for account type %q and transaction type %q", accountType, txType)
}

// Apply moves the account balance by amountMinor under the sign rule
// and persists the new balance. The account row must already be part
// of the caller's serialized section (locked where the dialect
// supports it). Returns the new balance.
func Apply(db *gorm.DB, account *models.Account, txType models.TransactionType, amountMinor int64) (int64, error) {
	if amountMinor <= 0 {
		return 0, apperr.New(apperr.KindValidation, "amount must be positive, got %d", amountMinor)
	}
	if !account.Active {
		return 0, apperr.New(apperr.KindAccountInactive, "account %d is inactive", account.ID)
	}

	sign, err := Sign(account.Type, txType)
	if err != nil {
		return 0, err
	}
	next := account.BalanceMinor + sign*amountMinor

	if err := checkBounds(account, next); err != nil {
		return 0, err
	}
	return settle(db, account, next)
}

// Revert undoes a previously applied transaction. The inverse delta is
// applied unconditionally: restoring the prior balance must always
// succeed, so floor and limit checks are skipped here.
func Revert(db *gorm.DB, account *models.Account, txType models.TransactionType, amountMinor int64) (int64, error) {
	if amountMinor <= 0 {
		return 0, apperr.New(apperr.KindValidation, "amount must be positive, got %d", amountMinor)
	}
	sign, err := Sign(account.Type, txType)
	if err != nil {
		return 0, err
	}
	return settle(db, account, account.BalanceMinor-sign*amountMinor)
}

// checkBounds enforces the per-category balance constraints: cash and
// savings accounts never go negative, liability accounts with a
// configured credit limit never exceed it.
func checkBounds(account *models.Account, next int64) error {
	if account.Type == models.AccountAsset &&
		(account.Category == models.AccountCash || account.Category == models.AccountSavings) &&
		next < 0 {
		return apperr.New(apperr.KindInsufficientFunds,
			"account %d balance would drop to %d", account.ID, next)
	}
	if account.Type == models.AccountLiability && account.CreditLimitMinor > 0 {
		abs := next
		if abs < 0 {
			abs = -abs
		}
		if abs > account.CreditLimitMinor {
			return apperr.New(apperr.KindCreditLimitExceeded,
				"account %d balance %d would exceed credit limit %d", account.ID, next, account.CreditLimitMinor)
		}
	}
	return nil
}

func settle(db *gorm.DB, account *models.Account, next int64) (int64, error) {
	account.BalanceMinor = next
	if err := db.Model(&models.Account{}).Where("id = ?", account.ID).
		Update("balance_minor", next).Error; err != nil {
		return 0, fmt.Errorf("update balance: %w", err)
	}
	return next, nil
}
