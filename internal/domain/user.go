package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID                    int64           `db:"id" json:"id"`
	Login                 string          `db:"login" json:"login"`
	PasswordHash          string          `db:"password_hash" json:"-"`
	Balance               decimal.Decimal `db:"balance" json:"balance"`
	GameBalance           decimal.Decimal `db:"game_balance" json:"gameBalance"`
	PersonalEarningsLimit decimal.Decimal `db:"personal_earnings_limit" json:"personalEarningsLimit"`
	Level                 int             `db:"level" json:"level"`
	Clicks                int64           `db:"clicks" json:"clicks"`
	SkinID                int64           `db:"skin_id" json:"skinId"`
	ReferrerID            *int64          `db:"referrer_id" json:"referrerId,omitempty"`
	PackageID             *int64          `db:"package_id" json:"packageId,omitempty"`
	Role                  Role            `db:"role" json:"role"`
	IsBlocked             bool            `db:"is_blocked" json:"isBlocked"`
	CreatedAt             time.Time       `db:"created_at" json:"created_at"`
}
