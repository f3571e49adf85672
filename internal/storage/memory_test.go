package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"clicker_webapp/internal/domain"
)

func seedPendingWithdrawal(t *testing.T, m *Memory) *domain.Transaction {
	t.Helper()
	ctx := context.Background()

	user := &domain.User{Login: "alice", PasswordHash: "x", Level: 1, SkinID: 1, Role: domain.RoleUser}
	if err := m.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	tx := &domain.Transaction{
		UserID: user.ID,
		Type:   domain.TransactionWithdrawal,
		Amount: decimal.NewFromInt(100),
		Method: domain.MethodCard,
		Status: domain.StatusPending,
	}
	if err := m.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return tx
}

func TestUpdateTransactionStatusGuard(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	tx := seedPendingWithdrawal(t, m)

	if err := m.UpdateTransactionStatus(ctx, tx.ID, domain.StatusPending, domain.StatusApproved); err != nil {
		t.Fatalf("first transition: %v", err)
	}

	// the row left pending, so a racing finalizer must lose
	if err := m.UpdateTransactionStatus(ctx, tx.ID, domain.StatusPending, domain.StatusRejected); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second transition: err = %v, want ErrNotFound", err)
	}

	got, err := m.GetTransactionInStatus(ctx, tx.ID, domain.StatusApproved)
	if err != nil {
		t.Fatalf("get approved: %v", err)
	}
	if got.Status != domain.StatusApproved {
		t.Fatalf("status = %s, want approved", got.Status)
	}
}

func TestDeleteTransactionStatusGuard(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	tx := seedPendingWithdrawal(t, m)

	if err := m.DeleteTransaction(ctx, tx.ID, domain.StatusCreated); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete with wrong status: err = %v, want ErrNotFound", err)
	}
	if _, err := m.GetTransactionInStatus(ctx, tx.ID, domain.StatusPending); err != nil {
		t.Fatalf("transaction gone after refused delete: %v", err)
	}

	if err := m.DeleteTransaction(ctx, tx.ID, domain.StatusPending); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.GetTransactionInStatus(ctx, tx.ID, domain.StatusPending); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted transaction: err = %v, want ErrNotFound", err)
	}
}
