package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"clicker_webapp/internal/db"
	"clicker_webapp/internal/domain"
)

// Integration-style test: runs only if DATABASE_URL env is set and the
// migrations have been applied.
func TestPostgresIntegration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	store := NewPostgres(pool)
	ctx := context.Background()

	login := fmt.Sprintf("it_%d", time.Now().UnixNano())
	user := &domain.User{
		Login:        login,
		PasswordHash: "x",
		Level:        1,
		SkinID:       1,
		Role:         domain.RoleUser,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("user id not returned")
	}

	// duplicate login, case-insensitive
	dup := &domain.User{Login: login, PasswordHash: "x", Level: 1, SkinID: 1, Role: domain.RoleUser}
	if err := store.CreateUser(ctx, dup); !errors.Is(err, ErrLoginTaken) {
		t.Fatalf("duplicate login: err = %v, want ErrLoginTaken", err)
	}

	// balance mutation under the row lock round-trips with decimals
	err := store.Atomic(ctx, func(st Store) error {
		u, err := st.GetUserForUpdate(ctx, user.ID)
		if err != nil {
			return err
		}
		u.Balance = decimal.RequireFromString("123.45")
		return st.UpdateUser(ctx, u)
	})
	if err != nil {
		t.Fatalf("atomic update: %v", err)
	}

	got, err := store.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !got.Balance.Equal(decimal.RequireFromString("123.45")) {
		t.Fatalf("balance = %s, want 123.45", got.Balance)
	}

	// transaction round-trip with nullable method and ton amount
	ton := decimal.RequireFromString("0.494020")
	tx := &domain.Transaction{
		UserID:    user.ID,
		Type:      domain.TransactionDeposit,
		Amount:    decimal.RequireFromString("1000.00"),
		Method:    domain.MethodTonkeeper,
		Status:    domain.StatusCreated,
		TonAmount: &ton,
	}
	if err := store.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	fetched, err := store.GetTransactionInStatus(ctx, tx.ID, domain.StatusCreated)
	if err != nil {
		t.Fatalf("fetch transaction: %v", err)
	}
	if fetched.TonAmount == nil || !fetched.TonAmount.Equal(ton) {
		t.Fatalf("ton amount = %v, want %s", fetched.TonAmount, ton)
	}
	if _, err := store.GetTransactionInStatus(ctx, tx.ID, domain.StatusPending); !errors.Is(err, ErrNotFound) {
		t.Fatalf("wrong status fetch: err = %v, want ErrNotFound", err)
	}

	// status transitions only fire from the expected status, so two
	// finalizers cannot both win
	if err := store.UpdateTransactionStatus(ctx, tx.ID, domain.StatusCreated, domain.StatusPending); err != nil {
		t.Fatalf("created -> pending: %v", err)
	}
	if err := store.UpdateTransactionStatus(ctx, tx.ID, domain.StatusCreated, domain.StatusPending); !errors.Is(err, ErrNotFound) {
		t.Fatalf("repeated transition: err = %v, want ErrNotFound", err)
	}
	if err := store.UpdateTransactionStatus(ctx, tx.ID, domain.StatusPending, domain.StatusApproved); err != nil {
		t.Fatalf("pending -> approved: %v", err)
	}
	if err := store.DeleteTransaction(ctx, tx.ID, domain.StatusPending); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete finalized: err = %v, want ErrNotFound", err)
	}

	// rollback on error leaves no trace
	boom := errors.New("boom")
	err = store.Atomic(ctx, func(st Store) error {
		u, err := st.GetUserForUpdate(ctx, user.ID)
		if err != nil {
			return err
		}
		u.Balance = decimal.Zero
		if err := st.UpdateUser(ctx, u); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("atomic err = %v, want boom", err)
	}
	got, _ = store.GetUser(ctx, user.ID)
	if !got.Balance.Equal(decimal.RequireFromString("123.45")) {
		t.Fatalf("balance after rollback = %s, want 123.45", got.Balance)
	}
}
