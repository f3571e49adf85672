package domain

import "github.com/shopspring/decimal"

// Package is a paid referral package. Reference data, never mutated.
// A user buys at most one package, and the purchase cannot be undone.
type Package struct {
	ID            int64           `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Price         decimal.Decimal `db:"price" json:"price"`
	ReferralBonus decimal.Decimal `db:"referral_bonus" json:"referral_bonus"`
	EarningsLimit decimal.Decimal `db:"earnings_limit" json:"earnings_limit"`
}
