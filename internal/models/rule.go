package models

import "time"

// RuleCriteria is the closed vocabulary of matching conditions.
type RuleCriteria string

const (
	CriteriaDescriptionContains RuleCriteria = "description_contains"
	CriteriaDescriptionRegex    RuleCriteria = "description_regex"
	CriteriaAmountGt            RuleCriteria = "amount_gt"
	CriteriaAmountLt            RuleCriteria = "amount_lt"
	CriteriaAmountBetween       RuleCriteria = "amount_between"
	CriteriaAccountEquals       RuleCriteria = "account_equals"
	CriteriaCategoryEquals      RuleCriteria = "category_equals"
	CriteriaDayOfWeekIn         RuleCriteria = "day_of_week_in"
)

// RuleAction is the closed vocabulary of effects a matching rule stages.
type RuleAction string

const (
	ActionAssignCategory RuleAction = "assign_category"
	ActionAssignGoal     RuleAction = "assign_goal"
	ActionFlagForReview  RuleAction = "flag_for_review"
	ActionBlock          RuleAction = "block"
)

// Rule is a user-defined automatic rule. Evaluation order is
// (priority ASC, id ASC); CriteriaValue is validated at save time
// against CriteriaType, never at evaluation time.
type Rule struct {
	ID            uint         `gorm:"primaryKey"`
	UserID        uint         `gorm:"index;not null"`
	Name          string       `gorm:"size:64;not null"`
	Priority      int          `gorm:"index;not null;default:100"`
	Enabled       bool         `gorm:"not null;default:true"`
	CriteriaType  RuleCriteria `gorm:"size:32;not null"`
	CriteriaValue string       `gorm:"size:256;not null"`
	ActionType    RuleAction   `gorm:"size:32;not null"`
	ActionPayload string       `gorm:"size:64"` // target id for assign_* actions
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
