package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"clicker_webapp/internal/domain"
	"clicker_webapp/internal/notify"
	"clicker_webapp/internal/storage"
)

func TestAdminSearchTransactions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.newUser(t, "alice", 1000)
	bob := env.newUser(t, "bob", 1000)

	env.transactions.RequestWithdrawal(ctx, alice.ID, decimal.NewFromInt(300), domain.MethodCard, "4111111111111111")
	env.transactions.RequestWithdrawal(ctx, bob.ID, decimal.NewFromInt(50), domain.MethodCard, "4111111111111111")
	env.transactions.CreateDeposit(ctx, bob.ID, decimal.NewFromInt(500), domain.MethodTonkeeper)

	byUser, err := env.admin.SearchTransactions(ctx, storage.TransactionFilter{UserID: &alice.ID})
	if err != nil {
		t.Fatalf("search by user: %v", err)
	}
	if len(byUser) != 1 || byUser[0].UserID != alice.ID {
		t.Fatalf("by user = %+v, want alice's withdrawal", byUser)
	}

	pending, err := env.admin.SearchTransactions(ctx, storage.TransactionFilter{Status: domain.StatusPending})
	if err != nil {
		t.Fatalf("search by status: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d entries, want 2", len(pending))
	}

	min := decimal.NewFromInt(100)
	large, err := env.admin.SearchTransactions(ctx, storage.TransactionFilter{MinAmount: &min})
	if err != nil {
		t.Fatalf("search by amount: %v", err)
	}
	if len(large) != 2 {
		t.Fatalf("large = %d entries, want withdrawal 300 and deposit 500", len(large))
	}
}

func TestAdminSearchUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.newUser(t, "alice", 1000)
	env.newUser(t, "alicia", 10)
	bob := env.newUser(t, "bob", 500)

	admin := domain.RoleAdmin
	if _, err := env.admin.UpdateUser(ctx, bob.ID, UpdateUserInput{Role: &admin}); err != nil {
		t.Fatalf("promote: %v", err)
	}

	byLogin, err := env.admin.SearchUsers(ctx, storage.UserFilter{Login: "alic"})
	if err != nil {
		t.Fatalf("search by login: %v", err)
	}
	if len(byLogin) != 2 {
		t.Fatalf("by login = %d, want 2", len(byLogin))
	}

	admins, err := env.admin.SearchUsers(ctx, storage.UserFilter{Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("search by role: %v", err)
	}
	if len(admins) != 1 || admins[0].ID != bob.ID {
		t.Fatalf("admins = %+v, want bob", admins)
	}

	min := decimal.NewFromInt(400)
	rich, err := env.admin.SearchUsers(ctx, storage.UserFilter{MinBalance: &min})
	if err != nil {
		t.Fatalf("search by balance: %v", err)
	}
	if len(rich) != 2 {
		t.Fatalf("rich = %d, want alice and bob", len(rich))
	}
}

func TestAdminUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.newUser(t, "alice", 0)
	env.newUser(t, "bob", 0)

	newLogin := "alice2"
	updated, err := env.admin.UpdateUser(ctx, user.ID, UpdateUserInput{Login: &newLogin})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if updated.Login != "alice2" {
		t.Fatalf("login = %s, want alice2", updated.Login)
	}

	events := env.events.ByName(notify.EventUserUpdate)
	if len(events) != 1 || events[0].UserID != user.ID {
		t.Fatalf("user_update events = %+v, want one for alice", events)
	}

	taken := "bob"
	if _, err := env.admin.UpdateUser(ctx, user.ID, UpdateUserInput{Login: &taken}); !errors.Is(err, ErrLoginInUse) {
		t.Fatalf("rename to taken login: err = %v, want ErrLoginInUse", err)
	}

	if _, err := env.admin.UpdateUser(ctx, 9999, UpdateUserInput{Login: &newLogin}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user: err = %v, want ErrUserNotFound", err)
	}
}

func TestAdminStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.newUser(t, "alice", 1000)
	env.transactions.RequestWithdrawal(ctx, alice.ID, decimal.NewFromInt(100), domain.MethodCard, "4111111111111111")

	stats, err := env.admin.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalUsers != 1 {
		t.Fatalf("total users = %d, want 1", stats.TotalUsers)
	}
	if stats.PendingTransactions != 1 {
		t.Fatalf("pending transactions = %d, want 1", stats.PendingTransactions)
	}
}
