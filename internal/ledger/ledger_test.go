package ledger

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/apperr"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
)

var dbSeq atomic.Int64

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:ledger%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Account{}))
	return db
}

func TestSign(t *testing.T) {
	tests := []struct {
		acct models.AccountType
		tx   models.TransactionType
		want int64
	}{
		{models.AccountAsset, models.TxIncome, +1},
		{models.AccountAsset, models.TxTransferIn, +1},
		{models.AccountAsset, models.TxExpense, -1},
		{models.AccountAsset, models.TxSaving, -1},
		{models.AccountAsset, models.TxTransferOut, -1},
		{models.AccountLiability, models.TxExpense, +1},
		{models.AccountLiability, models.TxSaving, +1},
		{models.AccountLiability, models.TxTransferOut, +1},
		{models.AccountLiability, models.TxIncome, -1},
		{models.AccountLiability, models.TxTransferIn, -1},
	}
	for _, tt := range tests {
		got, err := Sign(tt.acct, tt.tx)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s/%s", tt.acct, tt.tx)
	}

	_, err := Sign(models.AccountAsset, models.TransactionType("bogus"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestApply_AssetExpense(t *testing.T) {
	db := testDB(t)
	acct := &models.Account{UserID: 1, Name: "wallet", Type: models.AccountAsset,
		Category: models.AccountCash, Currency: "COP", BalanceMinor: 100000000, Active: true}
	require.NoError(t, db.Create(acct).Error)

	got, err := Apply(db, acct, models.TxExpense, 1550000)
	require.NoError(t, err)
	assert.Equal(t, int64(98450000), got)

	var stored models.Account
	require.NoError(t, db.First(&stored, acct.ID).Error)
	assert.Equal(t, int64(98450000), stored.BalanceMinor)
}

func TestApply_InsufficientFunds(t *testing.T) {
	db := testDB(t)
	acct := &models.Account{UserID: 1, Name: "cash", Type: models.AccountAsset,
		Category: models.AccountCash, Currency: "COP", BalanceMinor: 1000, Active: true}
	require.NoError(t, db.Create(acct).Error)

	_, err := Apply(db, acct, models.TxExpense, 1001)
	assert.Equal(t, apperr.KindInsufficientFunds, apperr.KindOf(err))

	// Balance untouched on rejection.
	var stored models.Account
	require.NoError(t, db.First(&stored, acct.ID).Error)
	assert.Equal(t, int64(1000), stored.BalanceMinor)
}

func TestApply_OtherAssetMayGoNegative(t *testing.T) {
	db := testDB(t)
	acct := &models.Account{UserID: 1, Name: "brokerage", Type: models.AccountAsset,
		Category: models.AccountOther, Currency: "COP", BalanceMinor: 100, Active: true}
	require.NoError(t, db.Create(acct).Error)

	got, err := Apply(db, acct, models.TxExpense, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(-400), got)
}

func TestApply_CreditLimit(t *testing.T) {
	db := testDB(t)
	acct := &models.Account{UserID: 1, Name: "visa", Type: models.AccountLiability,
		Category: models.AccountCredit, Currency: "COP", BalanceMinor: 90000,
		CreditLimitMinor: 100000, Active: true}
	require.NoError(t, db.Create(acct).Error)

	_, err := Apply(db, acct, models.TxExpense, 20000)
	assert.Equal(t, apperr.KindCreditLimitExceeded, apperr.KindOf(err))

	got, err := Apply(db, acct, models.TxExpense, 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), got)

	// Payments reduce debt.
	got, err = Apply(db, acct, models.TxIncome, 30000)
	require.NoError(t, err)
	assert.Equal(t, int64(70000), got)
}

func TestApply_Inactive(t *testing.T) {
	db := testDB(t)
	acct := &models.Account{UserID: 1, Name: "old", Type: models.AccountAsset,
		Category: models.AccountCash, Currency: "COP", BalanceMinor: 5000, Active: false}
	require.NoError(t, db.Create(acct).Error)

	_, err := Apply(db, acct, models.TxIncome, 100)
	assert.Equal(t, apperr.KindAccountInactive, apperr.KindOf(err))
}

func TestRevert_RestoresExactBalance(t *testing.T) {
	db := testDB(t)
	acct := &models.Account{UserID: 1, Name: "wallet", Type: models.AccountAsset,
		Category: models.AccountCash, Currency: "COP", BalanceMinor: 100000000, Active: true}
	require.NoError(t, db.Create(acct).Error)

	_, err := Apply(db, acct, models.TxExpense, 1550000)
	require.NoError(t, err)

	got, err := Revert(db, acct, models.TxExpense, 1550000)
	require.NoError(t, err)
	assert.Equal(t, int64(100000000), got)
}

func TestRevert_SkipsFloorCheck(t *testing.T) {
	db := testDB(t)
	// Reverting an income on a drained cash account must still succeed
	// even though the result is negative.
	acct := &models.Account{UserID: 1, Name: "cash", Type: models.AccountAsset,
		Category: models.AccountCash, Currency: "COP", BalanceMinor: 100, Active: true}
	require.NoError(t, db.Create(acct).Error)

	got, err := Revert(db, acct, models.TxIncome, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(-400), got)
}
