// Package money implements integer minor-unit arithmetic and explicit
// currency conversion. All balances and amounts in the system are
// signed integers in the minor unit of their currency (centavos for
// COP); floats never touch money.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is a closed set of supported currency codes.
type Currency string

const (
	COP Currency = "COP"
	USD Currency = "USD"
	EUR Currency = "EUR"
)

// ErrCurrencyMismatch reports a cross-currency operation attempted
// without an explicit rate.
type ErrCurrencyMismatch struct {
	A, B Currency
}

func (e *ErrCurrencyMismatch) Error() string {
	return fmt.Sprintf("currency mismatch: %s vs %s", e.A, e.B)
}

// ParseCurrency validates a currency code against the closed set.
func ParseCurrency(s string) (Currency, error) {
	switch Currency(s) {
	case COP, USD, EUR:
		return Currency(s), nil
	}
	return "", fmt.Errorf("unsupported currency %q", s)
}

// Amount is a monetary value in minor units.
type Amount struct {
	Minor    int64
	Currency Currency
}

// Add returns a+b, failing when the currencies differ.
func (a Amount) Add(b Amount) (Amount, error) {
	if a.Currency != b.Currency {
		return Amount{}, &ErrCurrencyMismatch{A: a.Currency, B: b.Currency}
	}
	return Amount{Minor: a.Minor + b.Minor, Currency: a.Currency}, nil
}

// Sub returns a-b, failing when the currencies differ.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.Currency != b.Currency {
		return Amount{}, &ErrCurrencyMismatch{A: a.Currency, B: b.Currency}
	}
	return Amount{Minor: a.Minor - b.Minor, Currency: a.Currency}, nil
}

// maxRateFractionalDigits is the precision exchange rates are supplied
// with; anything finer is rejected rather than silently truncated.
const maxRateFractionalDigits = 6

// ParseRate parses a positive exchange rate with at most six
// fractional digits.
func ParseRate(s string) (decimal.Decimal, error) {
	r, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid exchange rate %q: %w", s, err)
	}
	if !r.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("exchange rate must be positive, got %s", s)
	}
	if r.Exponent() < -maxRateFractionalDigits {
		return decimal.Decimal{}, fmt.Errorf("exchange rate %s has more than %d fractional digits", s, maxRateFractionalDigits)
	}
	return r, nil
}

// Convert converts sourceMinor units to the target currency:
// round_half_even(source x rate). The conversion is explicit; callers
// supply the rate, nothing here discovers one.
func Convert(sourceMinor int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(sourceMinor).Mul(rate).RoundBank(0).IntPart()
}
