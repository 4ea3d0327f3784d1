package budgets

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/notify"
)

var dbSeq atomic.Int64

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:budgets%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Account{}, &models.Category{},
		&models.Transaction{}, &models.Budget{},
	))
	return db
}

func TestWindowFor(t *testing.T) {
	wed := time.Date(2026, 3, 18, 15, 30, 0, 0, time.UTC)

	m := WindowFor(models.BudgetMonthly, wed)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), m.Start)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), m.End)

	w := WindowFor(models.BudgetWeekly, wed)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), w.Start, "week starts Monday")
	assert.Equal(t, time.Date(2026, 3, 23, 0, 0, 0, 0, time.UTC), w.End)

	// Sunday belongs to the week that started the previous Monday.
	sun := time.Date(2026, 3, 22, 8, 0, 0, 0, time.UTC)
	w = WindowFor(models.BudgetWeekly, sun)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), w.Start)
}

func seedExpense(t *testing.T, db *gorm.DB, userID, accountID, categoryID uint, amount int64, date time.Time) *models.Transaction {
	t.Helper()
	tx := &models.Transaction{
		UserID: userID, AccountID: accountID, CategoryID: &categoryID,
		Type: models.TxExpense, AmountMinor: amount, Currency: "COP", Date: date,
	}
	require.NoError(t, db.Create(tx).Error)
	return tx
}

func TestEvaluate_WarnCrossingOnce(t *testing.T) {
	db := testDB(t)
	date := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	cat := models.Category{UserID: 1, Name: "Groceries", Kind: models.CategoryExpense}
	require.NoError(t, db.Create(&cat).Error)
	budget := models.Budget{UserID: 1, CategoryID: cat.ID, Period: models.BudgetMonthly,
		LimitMinor: 20000000, WarnPct: 0.80,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Active: true}
	require.NoError(t, db.Create(&budget).Error)

	// Existing consumption: 14,000,000 in the month.
	seedExpense(t, db, 1, 1, cat.ID, 14000000, date.AddDate(0, 0, -2))

	// +3,000,000 -> 17,000,000 crosses the 16,000,000 warn line.
	tx := seedExpense(t, db, 1, 1, cat.ID, 3000000, date)
	events, err := Evaluate(db, tx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventBudgetWarn, events[0].Type)
	assert.Equal(t, fmt.Sprintf("budget:%d:2026-03-01:warn", budget.ID), events[0].Key)

	// +1,000,000 -> 18,000,000: still above warn, already crossed, no event.
	tx2 := seedExpense(t, db, 1, 1, cat.ID, 1000000, date.AddDate(0, 0, 1))
	events, err = Evaluate(db, tx2)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEvaluate_ExceededCrossing(t *testing.T) {
	db := testDB(t)
	date := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	cat := models.Category{UserID: 1, Name: "Dining", Kind: models.CategoryExpense}
	require.NoError(t, db.Create(&cat).Error)
	budget := models.Budget{UserID: 1, CategoryID: cat.ID, Period: models.BudgetMonthly,
		LimitMinor: 1000000, WarnPct: 0.80,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Active: true}
	require.NoError(t, db.Create(&budget).Error)

	// One transaction jumping from 0 straight past the limit emits both
	// crossings.
	tx := seedExpense(t, db, 1, 1, cat.ID, 1200000, date)
	events, err := Evaluate(db, tx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, notify.EventBudgetWarn, events[0].Type)
	assert.Equal(t, notify.EventBudgetExceeded, events[1].Type)
}

func TestEvaluate_OtherWindowIgnored(t *testing.T) {
	db := testDB(t)
	cat := models.Category{UserID: 1, Name: "Transport", Kind: models.CategoryExpense}
	require.NoError(t, db.Create(&cat).Error)
	budget := models.Budget{UserID: 1, CategoryID: cat.ID, Period: models.BudgetMonthly,
		LimitMinor: 1000000, WarnPct: 0.80,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Active: true}
	require.NoError(t, db.Create(&budget).Error)

	// Heavy spend in February does not count against March.
	seedExpense(t, db, 1, 1, cat.ID, 5000000, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC))

	tx := seedExpense(t, db, 1, 1, cat.ID, 100000, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC))
	events, err := Evaluate(db, tx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEvaluate_BeforeBudgetStart(t *testing.T) {
	db := testDB(t)
	cat := models.Category{UserID: 1, Name: "Clothes", Kind: models.CategoryExpense}
	require.NoError(t, db.Create(&cat).Error)
	budget := models.Budget{UserID: 1, CategoryID: cat.ID, Period: models.BudgetMonthly,
		LimitMinor: 100, WarnPct: 0.5,
		StartDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), Active: true}
	require.NoError(t, db.Create(&budget).Error)

	tx := seedExpense(t, db, 1, 1, cat.ID, 5000, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC))
	events, err := Evaluate(db, tx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestStatusFor(t *testing.T) {
	db := testDB(t)
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	cat := models.Category{UserID: 1, Name: "Groceries", Kind: models.CategoryExpense}
	require.NoError(t, db.Create(&cat).Error)
	budget := models.Budget{UserID: 1, CategoryID: cat.ID, Period: models.BudgetMonthly,
		LimitMinor: 20000000, WarnPct: 0.80,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Active: true}
	require.NoError(t, db.Create(&budget).Error)

	seedExpense(t, db, 1, 1, cat.ID, 5000000, now.AddDate(0, 0, -3))

	st, err := StatusFor(db, &budget, now)
	require.NoError(t, err)
	assert.Equal(t, int64(5000000), st.ConsumedMinor)
	assert.InDelta(t, 0.25, st.Ratio, 1e-9)
}
