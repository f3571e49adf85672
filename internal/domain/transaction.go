package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionDeposit         TransactionType = "deposit"
	TransactionWithdrawal      TransactionType = "withdrawal"
	TransactionReferralBonus   TransactionType = "referral_bonus"
	TransactionPackagePurchase TransactionType = "package_purchase"
)

type TransactionMethod string

const (
	// MethodTonkeeper is the only supported deposit method.
	MethodTonkeeper TransactionMethod = "tonkeeper"
	// MethodCard is the only supported withdrawal method.
	MethodCard TransactionMethod = "card"
)

type TransactionStatus string

const (
	StatusCreated  TransactionStatus = "created"
	StatusPending  TransactionStatus = "pending"
	StatusApproved TransactionStatus = "approved"
	StatusRejected TransactionStatus = "rejected"
)

// Transaction is a single entry in the money ledger. Status only moves
// forward (created -> pending -> approved/rejected); created and pending
// entries may be deleted, approved and rejected ones are permanent.
type Transaction struct {
	ID         int64             `db:"id" json:"id"`
	UserID     int64             `db:"user_id" json:"user_id"`
	Type       TransactionType   `db:"type" json:"type"`
	Amount     decimal.Decimal   `db:"amount" json:"amount"`
	Method     TransactionMethod `db:"method" json:"method,omitempty"`
	Status     TransactionStatus `db:"status" json:"status"`
	TonAmount  *decimal.Decimal  `db:"ton_amount" json:"ton_amount,omitempty"`
	Recipient  string            `db:"recipient" json:"recipient,omitempty"`
	ReferralID *int64            `db:"referral_id" json:"referral_id,omitempty"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
}
