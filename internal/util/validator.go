package util

import (
	"fmt"
	"time"
)

// ValidateAmountMinor checks a monetary amount in minor units.
func ValidateAmountMinor(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", amount)
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(dateStr string) (time.Time, error) {
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format, want YYYY-MM-DD: %w", err)
	}
	return t, nil
}

// ParseOptionalDate parses a YYYY-MM-DD date, defaulting to now when
// empty.
func ParseOptionalDate(dateStr string) (time.Time, error) {
	if dateStr == "" {
		return time.Now(), nil
	}
	return ParseDate(dateStr)
}
