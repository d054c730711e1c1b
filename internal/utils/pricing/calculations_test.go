package pricing_test

import (
	"testing"

	"github.com/enviopago/envio_backend/internal/utils/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name            string
		baseAmount      string
		commissionPct   string
		commissionFixed string
		exchangeRate    string
		wantCommission  string
		wantDeliverable string
	}{
		{
			name:       "remittance 100 USD at 2.5 pct to CUP",
			baseAmount: "100.00", commissionPct: "2.5", commissionFixed: "0", exchangeRate: "320.00",
			wantCommission: "2.50", wantDeliverable: "31200.00",
		},
		{
			name:       "remittance 50 USD at 3 pct to CUP",
			baseAmount: "50.00", commissionPct: "3.0", commissionFixed: "0", exchangeRate: "350.00",
			wantCommission: "1.50", wantDeliverable: "16975.00",
		},
		{
			name:       "fixed fee added after percentage rounding",
			baseAmount: "100.00", commissionPct: "2.5", commissionFixed: "1.25", exchangeRate: "1",
			wantCommission: "3.75", wantDeliverable: "96.25",
		},
		{
			name:       "half-up rounding on the commission",
			baseAmount: "10.01", commissionPct: "2.5", commissionFixed: "0", exchangeRate: "1",
			// 10.01 * 0.025 = 0.25025 -> 0.25
			wantCommission: "0.25", wantDeliverable: "9.76",
		},
		{
			name:       "half-up rounding on the deliverable",
			baseAmount: "100.00", commissionPct: "0", commissionFixed: "0", exchangeRate: "0.33335",
			// 100 * 0.33335 = 33.335 -> 33.34
			wantCommission: "0.00", wantDeliverable: "33.34",
		},
		{
			name:       "zero commission passes the base through",
			baseAmount: "75.00", commissionPct: "0", commissionFixed: "0", exchangeRate: "2",
			wantCommission: "0.00", wantDeliverable: "150.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := pricing.Calculate(d(tt.baseAmount), d(tt.commissionPct), d(tt.commissionFixed), d(tt.exchangeRate))
			assert.Truef(t, q.CommissionTotal.Equal(d(tt.wantCommission)),
				"commission: got %s want %s", q.CommissionTotal, tt.wantCommission)
			assert.Truef(t, q.DeliverableAmount.Equal(d(tt.wantDeliverable)),
				"deliverable: got %s want %s", q.DeliverableAmount, tt.wantDeliverable)
		})
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	// The snapshot is persisted once; repeated calculation must be
	// bit-identical, not merely numerically equal.
	first := pricing.Calculate(d("123.45"), d("2.75"), d("0.50"), d("317.123"))
	for i := 0; i < 100; i++ {
		again := pricing.Calculate(d("123.45"), d("2.75"), d("0.50"), d("317.123"))
		assert.Equal(t, first.CommissionTotal.String(), again.CommissionTotal.String())
		assert.Equal(t, first.DeliverableAmount.String(), again.DeliverableAmount.String())
	}
}

func TestTotalBaseAmount(t *testing.T) {
	total := pricing.TotalBaseAmount([]decimal.Decimal{d("10.00"), d("2.50"), d("0.25")})
	assert.True(t, total.Equal(d("12.75")))
	assert.True(t, pricing.TotalBaseAmount(nil).Equal(decimal.Zero))
}
