package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type StoreItemType string

const (
	ItemSkin               StoreItemType = "SKIN"
	ItemMultiplier         StoreItemType = "MULTIPLIER"
	ItemReferralLimitBoost StoreItemType = "REFERRAL_LIMIT_BOOST"
)

// StoreItem is catalogue reference data. Skins are purchasable strictly in
// ascending id order and carry a permanent click multiplier. Multipliers are
// temporary boosters (DurationHours set). Referral limit boosts raise the
// buyer's personal earnings limit by Bonus percent of the package limit.
type StoreItem struct {
	ID            int64           `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Type          StoreItemType   `db:"type" json:"type"`
	Price         decimal.Decimal `db:"price" json:"price"`
	Multiplier    *float64        `db:"multiplier" json:"multiplier,omitempty"`
	BonusPercent  *int            `db:"bonus" json:"bonus,omitempty"`
	DurationHours *int            `db:"duration" json:"duration,omitempty"`
}

// UserPurchase links a user to a bought store item. ExpiresAt is nil for
// permanent items (skins, limit boosts) and set for temporary boosters.
type UserPurchase struct {
	ID          int64      `db:"id" json:"id"`
	UserID      int64      `db:"user_id" json:"user_id"`
	ItemID      int64      `db:"item_id" json:"item_id"`
	Item        *StoreItem `db:"-" json:"item,omitempty"`
	PurchasedAt time.Time  `db:"purchased_at" json:"purchasedAt"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expiresAt,omitempty"`
}

// Expired reports whether the purchase has an expiry in the past.
func (p *UserPurchase) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && p.ExpiresAt.Before(now)
}
