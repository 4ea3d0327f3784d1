// Package rules evaluates user-defined automatic rules against a
// transaction. Matching is pure: it produces a staged action set and
// never touches the store; the pipeline commits the actions.
//
// Criteria values are validated when a rule is saved, not during
// evaluation. A rule row that is malformed anyway (edited out of band,
// stale reference) is skipped and logged, never fatal.
package rules

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/apperr"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/models"
)

// maxRegexLen bounds description_regex patterns so a rule cannot smuggle
// in a pathological expression.
const maxRegexLen = 256

// Input is the transaction snapshot rules are matched against.
// CategoryID is the category the request carried before any rule
// action runs, so chained category_equals rules see a stable value.
type Input struct {
	Description string
	AmountMinor int64
	AccountID   uint
	CategoryID  *uint
	Type        models.TransactionType
	Date        time.Time
}

// Actions is the staged outcome of one evaluation pass.
// First-writer-wins: a later rule never overrides an assignment an
// earlier rule staged. Block is terminal.
type Actions struct {
	CategoryID     *uint
	CategoryRuleID uint
	GoalID         *uint
	GoalRuleID     uint
	FlagForReview  bool
	FlagRuleID     uint
	Blocked        bool
	BlockRuleID    uint
}

// Match evaluates the user's rules against in. Rules must belong to a
// single user; disabled rules are ignored and the rest are evaluated
// in (priority ASC, id ASC) order.
func Match(ruleSet []models.Rule, in Input, log *slog.Logger) Actions {
	ordered := make([]models.Rule, 0, len(ruleSet))
	for _, r := range ruleSet {
		if r.Enabled {
			ordered = append(ordered, r)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})

	var out Actions
	for _, r := range ordered {
		matched, err := matches(r, in)
		if err != nil {
			if log != nil {
				log.Warn("skipping malformed rule",
					"rule_id", r.ID, "user_id", r.UserID, "err", err)
			}
			continue
		}
		if !matched {
			continue
		}
		if stage(&out, r, in, log) {
			break // block short-circuits
		}
	}
	return out
}

// stage applies r's action to the staged set; reports whether
// evaluation should stop.
func stage(out *Actions, r models.Rule, in Input, log *slog.Logger) bool {
	switch r.ActionType {
	case models.ActionAssignCategory:
		if out.CategoryID != nil {
			return false
		}
		id, err := parseID(r.ActionPayload)
		if err != nil {
			if log != nil {
				log.Warn("skipping rule with bad payload", "rule_id", r.ID, "err", err)
			}
			return false
		}
		out.CategoryID = &id
		out.CategoryRuleID = r.ID
	case models.ActionAssignGoal:
		if out.GoalID != nil || in.Type != models.TxSaving {
			return false
		}
		id, err := parseID(r.ActionPayload)
		if err != nil {
			if log != nil {
				log.Warn("skipping rule with bad payload", "rule_id", r.ID, "err", err)
			}
			return false
		}
		out.GoalID = &id
		out.GoalRuleID = r.ID
	case models.ActionFlagForReview:
		if !out.FlagForReview {
			out.FlagForReview = true
			out.FlagRuleID = r.ID
		}
	case models.ActionBlock:
		out.Blocked = true
		out.BlockRuleID = r.ID
		return true
	}
	return false
}

func matches(r models.Rule, in Input) (bool, error) {
	switch r.CriteriaType {
	case models.CriteriaDescriptionContains:
		return strings.Contains(strings.ToLower(in.Description), strings.ToLower(r.CriteriaValue)), nil
	case models.CriteriaDescriptionRegex:
		re, err := compileAnchored(r.CriteriaValue)
		if err != nil {
			return false, err
		}
		return re.MatchString(in.Description), nil
	case models.CriteriaAmountGt:
		n, err := parseMinor(r.CriteriaValue)
		if err != nil {
			return false, err
		}
		return in.AmountMinor > n, nil
	case models.CriteriaAmountLt:
		n, err := parseMinor(r.CriteriaValue)
		if err != nil {
			return false, err
		}
		return in.AmountMinor < n, nil
	case models.CriteriaAmountBetween:
		lo, hi, err := parseRange(r.CriteriaValue)
		if err != nil {
			return false, err
		}
		return in.AmountMinor >= lo && in.AmountMinor <= hi, nil
	case models.CriteriaAccountEquals:
		id, err := parseID(r.CriteriaValue)
		if err != nil {
			return false, err
		}
		return in.AccountID == id, nil
	case models.CriteriaCategoryEquals:
		id, err := parseID(r.CriteriaValue)
		if err != nil {
			return false, err
		}
		return in.CategoryID != nil && *in.CategoryID == id, nil
	case models.CriteriaDayOfWeekIn:
		days, err := parseDays(r.CriteriaValue)
		if err != nil {
			return false, err
		}
		return days[in.Date.Weekday()], nil
	}
	return false, fmt.Errorf("unknown criteria type %q", r.CriteriaType)
}

// Validate checks a rule's criteria value and action payload shape.
// Called when the rule is saved; reference ownership is the handler's
// concern, shape is ours.
func Validate(r *models.Rule) error {
	switch r.CriteriaType {
	case models.CriteriaDescriptionContains:
		if strings.TrimSpace(r.CriteriaValue) == "" {
			return apperr.New(apperr.KindValidation, "description_contains needs a non-empty value")
		}
	case models.CriteriaDescriptionRegex:
		if _, err := compileAnchored(r.CriteriaValue); err != nil {
			return apperr.New(apperr.KindValidation, "invalid regex: %v", err)
		}
	case models.CriteriaAmountGt, models.CriteriaAmountLt:
		if _, err := parseMinor(r.CriteriaValue); err != nil {
			return apperr.New(apperr.KindValidation, "invalid amount threshold: %v", err)
		}
	case models.CriteriaAmountBetween:
		if _, _, err := parseRange(r.CriteriaValue); err != nil {
			return apperr.New(apperr.KindValidation, "invalid amount range: %v", err)
		}
	case models.CriteriaAccountEquals, models.CriteriaCategoryEquals:
		if _, err := parseID(r.CriteriaValue); err != nil {
			return apperr.New(apperr.KindValidation, "invalid id: %v", err)
		}
	case models.CriteriaDayOfWeekIn:
		if _, err := parseDays(r.CriteriaValue); err != nil {
			return apperr.New(apperr.KindValidation, "invalid day list: %v", err)
		}
	default:
		return apperr.New(apperr.KindValidation, "unknown criteria type %q", r.CriteriaType)
	}

	switch r.ActionType {
	case models.ActionAssignCategory, models.ActionAssignGoal:
		if _, err := parseID(r.ActionPayload); err != nil {
			return apperr.New(apperr.KindValidation, "action payload must be an id: %v", err)
		}
	case models.ActionFlagForReview, models.ActionBlock:
		// no payload
	default:
		return apperr.New(apperr.KindValidation, "unknown action type %q", r.ActionType)
	}
	return nil
}

func compileAnchored(pattern string) (*regexp.Regexp, error) {
	if len(pattern) == 0 || len(pattern) > maxRegexLen {
		return nil, fmt.Errorf("pattern length must be 1..%d", maxRegexLen)
	}
	return regexp.Compile("^(?:" + pattern + ")$")
}

func parseMinor(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not an integer amount: %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("amount threshold must be non-negative: %d", n)
	}
	return n, nil
}

// parseRange parses "lo:hi" in minor units with lo < hi.
func parseRange(s string) (lo, hi int64, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("range must be lo:hi, got %q", s)
	}
	if lo, err = parseMinor(parts[0]); err != nil {
		return 0, 0, err
	}
	if hi, err = parseMinor(parts[1]); err != nil {
		return 0, 0, err
	}
	if lo >= hi {
		return 0, 0, fmt.Errorf("range bounds out of order: %d >= %d", lo, hi)
	}
	return lo, hi, nil
}

func parseID(s string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("not a valid id: %q", s)
	}
	return uint(n), nil
}

var dayNames = map[string]time.Weekday{
	"Mon": time.Monday, "Tue": time.Tuesday, "Wed": time.Wednesday,
	"Thu": time.Thursday, "Fri": time.Friday, "Sat": time.Saturday,
	"Sun": time.Sunday,
}

// parseDays parses a comma-joined subset of Mon..Sun.
func parseDays(s string) (map[time.Weekday]bool, error) {
	out := make(map[time.Weekday]bool)
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		d, ok := dayNames[tok]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", tok)
		}
		out[d] = true
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty day list")
	}
	return out, nil
}
