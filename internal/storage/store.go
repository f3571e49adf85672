package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"clicker_webapp/internal/domain"
)

var (
	// ErrNotFound indicates the requested record does not exist, or is not
	// in the status the caller required.
	ErrNotFound = errors.New("record not found")

	// ErrLoginTaken indicates the login is already registered.
	ErrLoginTaken = errors.New("login already taken")
)

// UserFilter narrows an administrative user search. Every field is optional;
// zero values are ignored.
type UserFilter struct {
	Login      string
	Role       domain.Role
	MinBalance *decimal.Decimal
}

// TransactionFilter narrows an administrative transaction search. Every
// field is optional; zero values are ignored.
type TransactionFilter struct {
	UserID    *int64
	Status    domain.TransactionStatus
	MinAmount *decimal.Decimal
}

// ReferrerEarnings is one row of the top-referrers report.
type ReferrerEarnings struct {
	UserID int64           `json:"userId"`
	Login  string          `json:"login"`
	Total  decimal.Decimal `json:"totalEarnings"`
}

// AdminStats aggregates platform-wide totals for the admin dashboard.
type AdminStats struct {
	TotalUsers                int                `json:"totalUsers"`
	TotalApprovedDeposits     decimal.Decimal    `json:"totalApprovedDeposits"`
	TotalApprovedWithdrawals  decimal.Decimal    `json:"totalApprovedWithdrawals"`
	TotalUserBalance          decimal.Decimal    `json:"totalUserBalance"`
	PendingTransactions       int                `json:"pendingTransactions"`
	TotalStorePurchases       int                `json:"totalStorePurchases"`
	TotalSpentInStore         decimal.Decimal    `json:"totalSpentInStore"`
	UsersWithReferralsAndPkg  int                `json:"usersWithReferralsAndPackage"`
	TopReferrers              []ReferrerEarnings `json:"topReferrers"`
}

// Store is the durable ledger behind the game economy. Postgres backs it in
// production; the in-memory implementation backs unit tests.
//
// Atomic runs fn against a view of the store where every read and write
// forms a single atomic unit. Within that unit GetUserForUpdate serializes
// concurrent mutations of the same user (row lock on Postgres), so
// balance read-then-write sequences cannot race.
type Store interface {
	Atomic(ctx context.Context, fn func(Store) error) error

	// Users.
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetUserForUpdate(ctx context.Context, id int64) (*domain.User, error)
	GetUserByLogin(ctx context.Context, login string) (*domain.User, error)
	UpdateUser(ctx context.Context, u *domain.User) error
	ListUsers(ctx context.Context, f UserFilter) ([]domain.User, error)
	ListReferrals(ctx context.Context, referrerID int64) ([]domain.User, error)
	// CountReferrals returns the number of direct referrals of a user and
	// how many of them own a package.
	CountReferrals(ctx context.Context, referrerID int64) (total, withPackage int, err error)

	// Transactions.
	CreateTransaction(ctx context.Context, t *domain.Transaction) error
	// GetTransactionInStatus returns ErrNotFound when no transaction with
	// the given id exists in exactly the given status.
	GetTransactionInStatus(ctx context.Context, id int64, status domain.TransactionStatus) (*domain.Transaction, error)
	// GetUserTransaction looks up a transaction that belongs to userID and
	// matches type and status.
	GetUserTransaction(ctx context.Context, userID, id int64, typ domain.TransactionType, status domain.TransactionStatus) (*domain.Transaction, error)
	HasActiveDeposit(ctx context.Context, userID int64) (bool, error)
	// UpdateTransactionStatus moves a transaction from one status to
	// another. It returns ErrNotFound when the transaction does not exist
	// or is no longer in the from status, so concurrent finalizers cannot
	// both win.
	UpdateTransactionStatus(ctx context.Context, id int64, from, to domain.TransactionStatus) error
	// DeleteTransaction removes a transaction only while it is still in
	// the given status.
	DeleteTransaction(ctx context.Context, id int64, status domain.TransactionStatus) error
	ListUserTransactions(ctx context.Context, userID int64, typ domain.TransactionType) ([]domain.Transaction, error)
	SearchTransactions(ctx context.Context, f TransactionFilter) ([]domain.Transaction, error)
	// SumTransactions totals the amount of all transactions of the given
	// type owned by the user.
	SumTransactions(ctx context.Context, userID int64, typ domain.TransactionType) (decimal.Decimal, error)

	// Packages (reference data).
	GetPackage(ctx context.Context, id int64) (*domain.Package, error)
	ListPackages(ctx context.Context) ([]domain.Package, error)

	// Store items (reference data).
	GetStoreItem(ctx context.Context, id int64) (*domain.StoreItem, error)
	ListStoreItems(ctx context.Context) ([]domain.StoreItem, error)
	// ListSkins returns all SKIN items in ascending id order.
	ListSkins(ctx context.Context) ([]domain.StoreItem, error)

	// Purchases.
	CreatePurchase(ctx context.Context, p *domain.UserPurchase) error
	// HasPurchaseOfType reports whether the user ever bought an item of the
	// given type, expired or not.
	HasPurchaseOfType(ctx context.Context, userID int64, typ domain.StoreItemType) (bool, error)
	// ActivePurchaseOfType returns the user's non-expired purchase of the
	// given type, or nil when there is none.
	ActivePurchaseOfType(ctx context.Context, userID int64, typ domain.StoreItemType, now time.Time) (*domain.UserPurchase, error)
	// DeleteExpiredPurchases removes purchases whose expiry is before now
	// and returns how many were removed.
	DeleteExpiredPurchases(ctx context.Context, userID int64, now time.Time) (int, error)

	// AdminStats aggregates dashboard totals.
	AdminStats(ctx context.Context) (*AdminStats, error)
}
