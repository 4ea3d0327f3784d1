package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		in      string
		want    Currency
		wantErr bool
	}{
		{"COP", COP, false},
		{"USD", USD, false},
		{"EUR", EUR, false},
		{"GBP", "", true},
		{"cop", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCurrency(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestAddSub_SameCurrency(t *testing.T) {
	a := Amount{Minor: 1500, Currency: COP}
	b := Amount{Minor: 500, Currency: COP}

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), sum.Minor)

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), diff.Minor)
}

func TestAdd_CurrencyMismatch(t *testing.T) {
	a := Amount{Minor: 1500, Currency: COP}
	b := Amount{Minor: 500, Currency: USD}

	_, err := a.Add(b)
	require.Error(t, err)
	var mismatch *ErrCurrencyMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, COP, mismatch.A)
	assert.Equal(t, USD, mismatch.B)
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"0.000245", false},
		{"4100.5", false},
		{"1", false},
		{"0.0000001", true}, // seven fractional digits
		{"0", true},
		{"-1.5", true},
		{"abc", true},
	}
	for _, tt := range tests {
		_, err := ParseRate(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
		} else {
			assert.NoError(t, err, tt.in)
		}
	}
}

func TestConvert_HalfEven(t *testing.T) {
	// Halfway values round to the even neighbour.
	rate := decimal.RequireFromString("0.5")
	assert.Equal(t, int64(2), Convert(5, rate)) // 2.5 -> 2
	assert.Equal(t, int64(4), Convert(7, rate)) // 3.5 -> 4
	assert.Equal(t, int64(2), Convert(4, rate)) // exact

	assert.Equal(t, int64(0), Convert(100, decimal.RequireFromString("0.005")))
	assert.Equal(t, int64(2), Convert(300, decimal.RequireFromString("0.005")))
}

func TestConvert_RoundTripWithinOneMinorUnit(t *testing.T) {
	// round(round(P*r)/r) stays within +/-1 of P for rates >= 0.5,
	// where the forward rounding error cannot exceed one target unit.
	rates := []string{"4100.25", "1.089", "0.92", "0.5"}
	amounts := []int64{1, 99, 1550000, 98450000, 12000003}
	for _, rs := range rates {
		rate := decimal.RequireFromString(rs)
		inv := decimal.NewFromInt(1).DivRound(rate, 12)
		for _, p := range amounts {
			there := Convert(p, rate)
			back := Convert(there, inv)
			assert.InDelta(t, p, back, 1, "rate=%s p=%d", rs, p)
		}
	}
}
