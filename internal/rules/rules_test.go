package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
)

func uptr(v uint) *uint { return &v }

func expenseInput(desc string, amount int64) Input {
	return Input{
		Description: desc,
		AmountMinor: amount,
		AccountID:   1,
		Type:        models.TxExpense,
		Date:        time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC), // a Wednesday
	}
}

func TestMatch_DescriptionContains(t *testing.T) {
	ruleSet := []models.Rule{
		{ID: 1, Priority: 10, Enabled: true,
			CriteriaType: models.CriteriaDescriptionContains, CriteriaValue: "uber",
			ActionType: models.ActionAssignCategory, ActionPayload: "7"},
	}

	got := Match(ruleSet, expenseInput("Uber trip", 1550000), nil)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, uint(7), *got.CategoryID)
	assert.Equal(t, uint(1), got.CategoryRuleID)

	got = Match(ruleSet, expenseInput("taxi", 1550000), nil)
	assert.Nil(t, got.CategoryID)
}

func TestMatch_FirstWriterWins(t *testing.T) {
	ruleSet := []models.Rule{
		{ID: 5, Priority: 2, Enabled: true,
			CriteriaType: models.CriteriaDescriptionContains, CriteriaValue: "coffee",
			ActionType: models.ActionAssignCategory, ActionPayload: "9"},
		{ID: 3, Priority: 1, Enabled: true,
			CriteriaType: models.CriteriaDescriptionContains, CriteriaValue: "coffee",
			ActionType: models.ActionAssignCategory, ActionPayload: "4"},
	}

	got := Match(ruleSet, expenseInput("coffee shop", 900), nil)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, uint(4), *got.CategoryID, "lower priority value evaluates first")
	assert.Equal(t, uint(3), got.CategoryRuleID)
}

func TestMatch_PriorityTieBrokenByID(t *testing.T) {
	ruleSet := []models.Rule{
		{ID: 8, Priority: 1, Enabled: true,
			CriteriaType: models.CriteriaDescriptionContains, CriteriaValue: "x",
			ActionType: models.ActionAssignCategory, ActionPayload: "80"},
		{ID: 2, Priority: 1, Enabled: true,
			CriteriaType: models.CriteriaDescriptionContains, CriteriaValue: "x",
			ActionType: models.ActionAssignCategory, ActionPayload: "20"},
	}

	got := Match(ruleSet, expenseInput("x", 100), nil)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, uint(20), *got.CategoryID)
}

func TestMatch_BlockShortCircuits(t *testing.T) {
	ruleSet := []models.Rule{
		{ID: 1, Priority: 1, Enabled: true,
			CriteriaType: models.CriteriaAmountGt, CriteriaValue: "50000000",
			ActionType: models.ActionBlock},
		{ID: 2, Priority: 2, Enabled: true,
			CriteriaType: models.CriteriaDescriptionContains, CriteriaValue: "x",
			ActionType: models.ActionAssignCategory, ActionPayload: "3"},
	}

	got := Match(ruleSet, expenseInput("x", 60000000), nil)
	assert.True(t, got.Blocked)
	assert.Equal(t, uint(1), got.BlockRuleID)
	assert.Nil(t, got.CategoryID, "nothing staged after the block")
}

func TestMatch_DisabledSkipped(t *testing.T) {
	ruleSet := []models.Rule{
		{ID: 1, Priority: 1, Enabled: false,
			CriteriaType: models.CriteriaDescriptionContains, CriteriaValue: "x",
			ActionType: models.ActionBlock},
	}
	got := Match(ruleSet, expenseInput("x", 100), nil)
	assert.False(t, got.Blocked)
}

func TestMatch_AssignGoalOnlyForSaving(t *testing.T) {
	ruleSet := []models.Rule{
		{ID: 1, Priority: 1, Enabled: true,
			CriteriaType: models.CriteriaDescriptionContains, CriteriaValue: "vacation",
			ActionType: models.ActionAssignGoal, ActionPayload: "11"},
	}

	got := Match(ruleSet, expenseInput("vacation fund", 5000), nil)
	assert.Nil(t, got.GoalID, "expense never gets a goal")

	in := expenseInput("vacation fund", 5000)
	in.Type = models.TxSaving
	got = Match(ruleSet, in, nil)
	require.NotNil(t, got.GoalID)
	assert.Equal(t, uint(11), *got.GoalID)
}

func TestMatch_Criteria(t *testing.T) {
	wednesday := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		crit models.RuleCriteria
		val  string
		in   Input
		want bool
	}{
		{"regex match", models.CriteriaDescriptionRegex, `Uber.*`, Input{Description: "Uber trip"}, true},
		{"regex is anchored", models.CriteriaDescriptionRegex, `trip`, Input{Description: "Uber trip"}, false},
		{"amount_gt true", models.CriteriaAmountGt, "100", Input{AmountMinor: 101}, true},
		{"amount_gt boundary", models.CriteriaAmountGt, "100", Input{AmountMinor: 100}, false},
		{"amount_lt", models.CriteriaAmountLt, "100", Input{AmountMinor: 99}, true},
		{"between inclusive", models.CriteriaAmountBetween, "100:200", Input{AmountMinor: 200}, true},
		{"between outside", models.CriteriaAmountBetween, "100:200", Input{AmountMinor: 201}, false},
		{"account_equals", models.CriteriaAccountEquals, "4", Input{AccountID: 4}, true},
		{"category_equals nil", models.CriteriaCategoryEquals, "4", Input{}, false},
		{"category_equals set", models.CriteriaCategoryEquals, "4", Input{CategoryID: uptr(4)}, true},
		{"weekday in", models.CriteriaDayOfWeekIn, "Mon,Wed", Input{Date: wednesday}, true},
		{"weekday out", models.CriteriaDayOfWeekIn, "Sat,Sun", Input{Date: wednesday}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := models.Rule{ID: 1, Enabled: true, CriteriaType: tt.crit, CriteriaValue: tt.val,
				ActionType: models.ActionFlagForReview}
			got := Match([]models.Rule{r}, tt.in, nil)
			assert.Equal(t, tt.want, got.FlagForReview)
		})
	}
}

func TestMatch_Deterministic(t *testing.T) {
	ruleSet := []models.Rule{
		{ID: 3, Priority: 5, Enabled: true, CriteriaType: models.CriteriaDescriptionContains,
			CriteriaValue: "a", ActionType: models.ActionAssignCategory, ActionPayload: "1"},
		{ID: 1, Priority: 5, Enabled: true, CriteriaType: models.CriteriaDescriptionContains,
			CriteriaValue: "a", ActionType: models.ActionAssignCategory, ActionPayload: "2"},
		{ID: 2, Priority: 1, Enabled: true, CriteriaType: models.CriteriaAmountGt,
			CriteriaValue: "10", ActionType: models.ActionFlagForReview},
	}
	in := expenseInput("a", 100)
	first := Match(ruleSet, in, nil)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Match(ruleSet, in, nil))
	}
}

func TestMatch_MalformedRuleSkipped(t *testing.T) {
	ruleSet := []models.Rule{
		{ID: 1, Priority: 1, Enabled: true,
			CriteriaType: models.CriteriaAmountGt, CriteriaValue: "not-a-number",
			ActionType: models.ActionBlock},
		{ID: 2, Priority: 2, Enabled: true,
			CriteriaType: models.CriteriaDescriptionContains, CriteriaValue: "x",
			ActionType: models.ActionAssignCategory, ActionPayload: "3"},
	}
	got := Match(ruleSet, expenseInput("x", 100), nil)
	assert.False(t, got.Blocked)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, uint(3), *got.CategoryID)
}

func TestValidate(t *testing.T) {
	valid := []models.Rule{
		{CriteriaType: models.CriteriaDescriptionContains, CriteriaValue: "uber",
			ActionType: models.ActionAssignCategory, ActionPayload: "3"},
		{CriteriaType: models.CriteriaDescriptionRegex, CriteriaValue: `U.er( trip)?`,
			ActionType: models.ActionBlock},
		{CriteriaType: models.CriteriaAmountBetween, CriteriaValue: "100:200",
			ActionType: models.ActionFlagForReview},
		{CriteriaType: models.CriteriaDayOfWeekIn, CriteriaValue: "Sat,Sun",
			ActionType: models.ActionFlagForReview},
	}
	for i := range valid {
		assert.NoError(t, Validate(&valid[i]), "rule %d", i)
	}

	invalid := []models.Rule{
		{CriteriaType: models.CriteriaDescriptionContains, CriteriaValue: "  ",
			ActionType: models.ActionBlock},
		{CriteriaType: models.CriteriaDescriptionRegex, CriteriaValue: `([`,
			ActionType: models.ActionBlock},
		{CriteriaType: models.CriteriaAmountGt, CriteriaValue: "12.5",
			ActionType: models.ActionBlock},
		{CriteriaType: models.CriteriaAmountBetween, CriteriaValue: "200:100",
			ActionType: models.ActionBlock},
		{CriteriaType: models.CriteriaAccountEquals, CriteriaValue: "0",
			ActionType: models.ActionBlock},
		{CriteriaType: models.CriteriaDayOfWeekIn, CriteriaValue: "Monday",
			ActionType: models.ActionBlock},
		{CriteriaType: "description_rhymes", CriteriaValue: "x",
			ActionType: models.ActionBlock},
		{CriteriaType: models.CriteriaDescriptionContains, CriteriaValue: "uber",
			ActionType: models.ActionAssignCategory, ActionPayload: ""},
		{CriteriaType: models.CriteriaDescriptionContains, CriteriaValue: "uber",
			ActionType: "explode"},
	}
	for i := range invalid {
		assert.Error(t, Validate(&invalid[i]), "rule %d", i)
	}
}
