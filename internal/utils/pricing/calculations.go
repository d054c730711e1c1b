// Package pricing computes the monetary snapshot captured at transaction
// creation. All functions are pure and deterministic: identical inputs
// produce bit-identical results, so the persisted snapshot is always
// recomputable.
package pricing

import "github.com/shopspring/decimal"

// Quote is the result of a pricing calculation.
type Quote struct {
	CommissionTotal   decimal.Decimal
	DeliverableAmount decimal.Decimal
}

// Calculate computes the commission total and deliverable amount for a base
// amount:
//
//	commissionTotal   = round2(baseAmount * commissionPct / 100) + commissionFixed
//	deliverableAmount = round2((baseAmount - commissionTotal) * exchangeRate)
//
// Rounding is half-up to 2 decimal places, applied once at the end of each
// formula and never accumulated across repeated roundings.
func Calculate(baseAmount, commissionPct, commissionFixed, exchangeRate decimal.Decimal) Quote {
	hundred := decimal.NewFromInt(100)
	commissionTotal := baseAmount.Mul(commissionPct).Div(hundred).Round(2).Add(commissionFixed)
	deliverable := baseAmount.Sub(commissionTotal).Mul(exchangeRate).Round(2)
	return Quote{
		CommissionTotal:   commissionTotal,
		DeliverableAmount: deliverable,
	}
}

// TotalBaseAmount sums line item base amounts. Bundle expansion is the line
// item's responsibility; this just folds the contributions.
func TotalBaseAmount(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
