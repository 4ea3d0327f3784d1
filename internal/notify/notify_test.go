package notify

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
)

var dbSeq atomic.Int64

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:notify%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Notification{}))
	return db
}

func TestDispatch_CreatesOnce(t *testing.T) {
	db := testDB(t)
	d := NewDispatcher(nil)

	ev := Event{UserID: 1, Type: EventBudgetWarn, Key: "budget:3:2026-03-01:warn",
		Args: map[string]string{"consumed": "17000000", "limit": "20000000"}}

	created, err := d.Dispatch(db, []Event{ev})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "Budget warning", created[0].Title)
	assert.Contains(t, created[0].Message, "17000000")

	// Replaying the same event key is a no-op.
	created, err = d.Dispatch(db, []Event{ev})
	require.NoError(t, err)
	assert.Empty(t, created)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDispatch_SameKeyDifferentUsers(t *testing.T) {
	db := testDB(t)
	d := NewDispatcher(nil)

	events := []Event{
		{UserID: 1, Type: EventGoalCompleted, Key: "goal:9:completed", Args: map[string]string{"goal": "Vacation"}},
		{UserID: 2, Type: EventGoalCompleted, Key: "goal:9:completed", Args: map[string]string{"goal": "Vacation"}},
	}
	created, err := d.Dispatch(db, events)
	require.NoError(t, err)
	assert.Len(t, created, 2, "keys are scoped per user")
}

func TestWithdraw(t *testing.T) {
	db := testDB(t)
	d := NewDispatcher(nil)

	_, err := d.Dispatch(db, []Event{
		{UserID: 1, Type: EventGoalCompleted, Key: "goal:5:completed", Args: map[string]string{"goal": "Car"}},
	})
	require.NoError(t, err)

	require.NoError(t, d.Withdraw(db, 1, "goal:5:completed"))

	var n models.Notification
	require.NoError(t, db.Where("user_id = ? AND event_key = ?", 1, "goal:5:completed").First(&n).Error)
	assert.True(t, n.Withdrawn)

	// Unknown key is a no-op, not an error.
	require.NoError(t, d.Withdraw(db, 1, "goal:404:completed"))
}

func TestRender(t *testing.T) {
	title, msg := Render(Event{Type: EventReviewRequested, Args: map[string]string{"description": "Uber trip"}})
	assert.Equal(t, "Transaction flagged", title)
	assert.Contains(t, msg, "Uber trip")

	title, _ = Render(Event{Type: EventType("mystery")})
	assert.Equal(t, "mystery", title)
}
