package core

import "github.com/shopspring/decimal"

// Balance aggregates every transaction in the ledger.
type Balance struct {
	Income  decimal.Decimal
	Outcome decimal.Decimal
	Total   decimal.Decimal
}

// NewBalance builds a Balance from the two sums, deriving Total.
func NewBalance(income, outcome decimal.Decimal) Balance {
	return Balance{
		Income:  income,
		Outcome: outcome,
		Total:   income.Sub(outcome),
	}
}

// ComputeBalance folds a list of transactions into a Balance.
func ComputeBalance(txs []Transaction) Balance {
	income, outcome := decimal.Zero, decimal.Zero
	for _, t := range txs {
		switch t.Type {
		case Income:
			income = income.Add(t.Value)
		case Outcome:
			outcome = outcome.Add(t.Value)
		}
	}
	return NewBalance(income, outcome)
}

// CanAfford reports whether an outcome of v leaves the balance non-negative.
func (b Balance) CanAfford(v decimal.Decimal) bool {
	return !v.GreaterThan(b.Total)
}
