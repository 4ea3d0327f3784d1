// Package installments builds amortization schedules for credit-card
// purchases. All schedule math runs in decimals and lands on integer
// minor units; the invariants are exact: principals sum to the
// financed amount and the final balance is zero, with any rounding
// residual absorbed by the last installment.
package installments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/apperr"
)

// Row is one installment of a schedule.
type Row struct {
	Index             int
	DueDate           time.Time
	PrincipalMinor    int64
	InterestMinor     int64
	BalanceAfterMinor int64
}

// Plan is a complete amortization schedule with its exact totals.
type Plan struct {
	NInstallments       int
	MonthlyRate         decimal.Decimal
	PrincipalMinor      int64
	TotalInterestMinor  int64
	TotalPrincipalMinor int64
	TotalAmountMinor    int64
	Schedule            []Row
}

// Build constructs the schedule for principalMinor financed over n
// monthly installments at monthlyRate (0 means interest-free), with
// the first installment due at firstDue.
func Build(principalMinor int64, n int, monthlyRate decimal.Decimal, firstDue time.Time) (*Plan, error) {
	if principalMinor <= 0 {
		return nil, apperr.New(apperr.KindValidation, "principal must be positive, got %d", principalMinor)
	}
	if n < 1 {
		return nil, apperr.New(apperr.KindValidation, "installment count must be >= 1, got %d", n)
	}
	if monthlyRate.IsNegative() {
		return nil, apperr.New(apperr.KindValidation, "monthly rate must be >= 0, got %s", monthlyRate)
	}

	plan := &Plan{
		NInstallments:       n,
		MonthlyRate:         monthlyRate,
		PrincipalMinor:      principalMinor,
		TotalPrincipalMinor: principalMinor,
		Schedule:            make([]Row, 0, n),
	}

	if monthlyRate.IsZero() {
		buildZeroRate(plan, firstDue)
	} else if err := buildAnnuity(plan, firstDue); err != nil {
		return nil, err
	}

	plan.TotalAmountMinor = plan.TotalPrincipalMinor + plan.TotalInterestMinor
	return plan, nil
}

// buildZeroRate splits the principal evenly; the last installment
// takes the division remainder.
func buildZeroRate(plan *Plan, firstDue time.Time) {
	p, n := plan.PrincipalMinor, int64(plan.NInstallments)
	base := p / n
	balance := p
	for k := 1; k <= plan.NInstallments; k++ {
		principal := base
		if k == plan.NInstallments {
			principal = balance
		}
		balance -= principal
		plan.Schedule = append(plan.Schedule, Row{
			Index:             k,
			DueDate:           addMonths(firstDue, k-1),
			PrincipalMinor:    principal,
			BalanceAfterMinor: balance,
		})
	}
}

// buildAnnuity computes the fixed-payment schedule
// M = P*i / (1 - (1+i)^-n), rounds M half-even to minor units once,
// then walks the balance down row by row. Interest per row is
// round_half_even(balance*i); the final row repays the remaining
// balance exactly, absorbing the accumulated rounding residual.
func buildAnnuity(plan *Plan, firstDue time.Time) error {
	i := plan.MonthlyRate
	p := decimal.NewFromInt(plan.PrincipalMinor)
	n := plan.NInstallments

	compound := decimal.NewFromInt(1).Add(i).Pow(decimal.NewFromInt(int64(n)))
	denom := decimal.NewFromInt(1).Sub(decimal.NewFromInt(1).DivRound(compound, 24))
	payment := p.Mul(i).DivRound(denom, 24).RoundBank(0).IntPart()

	balance := plan.PrincipalMinor
	for k := 1; k <= n; k++ {
		interest := decimal.NewFromInt(balance).Mul(i).RoundBank(0).IntPart()
		var principal int64
		if k < n {
			principal = payment - interest
		} else {
			principal = balance
		}
		if principal < 0 || interest < 0 {
			return apperr.New(apperr.KindValidation,
				"schedule degenerates at installment %d: principal %d, interest %d", k, principal, interest)
		}
		balance -= principal
		plan.TotalInterestMinor += interest
		plan.Schedule = append(plan.Schedule, Row{
			Index:             k,
			DueDate:           addMonths(firstDue, k-1),
			PrincipalMinor:    principal,
			InterestMinor:     interest,
			BalanceAfterMinor: balance,
		})
	}
	return nil
}

// addMonths steps d forward by months, clamping to the last valid day
// when the target month is shorter (Jan 31 -> Feb 28).
func addMonths(d time.Time, months int) time.Time {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, d.Location())
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day,
		d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), d.Location())
}
