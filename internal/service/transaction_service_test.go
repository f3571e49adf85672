package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"clicker_webapp/internal/domain"
	"clicker_webapp/internal/notify"
	"clicker_webapp/internal/rates"
)

func TestCreateDeposit(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "alice", 0)
	ctx := context.Background()

	receipt, err := env.transactions.CreateDeposit(ctx, user.ID, decimal.NewFromInt(1000), domain.MethodTonkeeper)
	if err != nil {
		t.Fatalf("create deposit: %v", err)
	}

	tx := receipt.Transaction
	if tx.Status != domain.StatusCreated {
		t.Fatalf("status = %s, want created", tx.Status)
	}
	mustEqual(t, tx.Amount, decimal.NewFromInt(1000), "amount")
	// 1000 / 250 = 4 TON
	if tx.TonAmount == nil {
		t.Fatal("ton amount not set")
	}
	mustEqual(t, *tx.TonAmount, decimal.NewFromInt(4), "ton amount")

	if !strings.HasPrefix(receipt.PaymentLink, "https://app.tonkeeper.com/transfer/"+testWallet) {
		t.Fatalf("unexpected payment link %q", receipt.PaymentLink)
	}

	// balance untouched until approval
	mustEqual(t, env.getUser(t, user.ID).Balance, decimal.Zero, "balance after create")
}

func TestCreateDepositValidation(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "alice", 0)
	ctx := context.Background()

	cases := []struct {
		name   string
		amount decimal.Decimal
		method domain.TransactionMethod
		want   error
	}{
		{"zero amount", decimal.Zero, domain.MethodTonkeeper, ErrInvalidAmount},
		{"negative amount", decimal.NewFromInt(-5), domain.MethodTonkeeper, ErrInvalidAmount},
		{"card deposits unsupported", decimal.NewFromInt(100), domain.MethodCard, ErrUnsupportedMethod},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.transactions.CreateDeposit(ctx, user.ID, tc.amount, tc.method); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCreateDepositDuplicate(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "alice", 0)
	ctx := context.Background()

	first, err := env.transactions.CreateDeposit(ctx, user.ID, decimal.NewFromInt(100), domain.MethodTonkeeper)
	if err != nil {
		t.Fatalf("first deposit: %v", err)
	}

	if _, err := env.transactions.CreateDeposit(ctx, user.ID, decimal.NewFromInt(200), domain.MethodTonkeeper); !errors.Is(err, ErrDuplicateActiveDeposit) {
		t.Fatalf("err = %v, want ErrDuplicateActiveDeposit", err)
	}

	// cancelling the stuck deposit unblocks the next one
	if err := env.transactions.CancelCreatedDeposit(ctx, user.ID, first.Transaction.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := env.transactions.CreateDeposit(ctx, user.ID, decimal.NewFromInt(200), domain.MethodTonkeeper); err != nil {
		t.Fatalf("deposit after cancel: %v", err)
	}
}

func TestCreateDepositConcurrentSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "alice", 0)
	ctx := context.Background()

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.transactions.CreateDeposit(ctx, user.ID, decimal.NewFromInt(100), domain.MethodTonkeeper)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrDuplicateActiveDeposit):
		default:
			t.Fatalf("unexpected err: %v", err)
		}
	}
	if created != 1 {
		t.Fatalf("created deposits = %d, want 1", created)
	}

	history, _ := env.transactions.History(ctx, user.ID, domain.TransactionDeposit)
	if len(history) != 1 {
		t.Fatalf("deposit history = %d entries, want 1", len(history))
	}
}

func TestCreateDepositRateUnavailable(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "alice", 0)

	broken := NewTransactionService(env.store, rates.Static{}, env.events, testWallet, "amd")
	if _, err := broken.CreateDeposit(context.Background(), user.ID, decimal.NewFromInt(100), domain.MethodTonkeeper); !errors.Is(err, rates.ErrUnavailable) {
		t.Fatalf("err = %v, want rates.ErrUnavailable", err)
	}
}

func TestDepositLifecycle(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "alice", 0)
	ctx := context.Background()

	receipt, err := env.transactions.CreateDeposit(ctx, user.ID, decimal.NewFromInt(500), domain.MethodTonkeeper)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	txID := receipt.Transaction.ID

	// approval requires the moderation queue, created is not enough
	if _, err := env.transactions.Approve(ctx, txID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("approve created: err = %v, want ErrNotFound", err)
	}

	if _, err := env.transactions.ConfirmDeposit(ctx, txID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	mustEqual(t, env.getUser(t, user.ID).Balance, decimal.Zero, "balance while pending")

	if _, err := env.transactions.Approve(ctx, txID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	mustEqual(t, env.getUser(t, user.ID).Balance, decimal.NewFromInt(500), "balance after approve")

	// finalization is terminal; a second approve must not double-credit
	if _, err := env.transactions.Approve(ctx, txID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second approve: err = %v, want ErrNotFound", err)
	}
	mustEqual(t, env.getUser(t, user.ID).Balance, decimal.NewFromInt(500), "balance after double approve")

	if got := env.events.ByName(notify.EventBalanceUpdate); len(got) != 1 {
		t.Fatalf("balance_update events = %d, want 1", len(got))
	}
}

func TestDepositReject(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "alice", 0)
	ctx := context.Background()

	receipt, _ := env.transactions.CreateDeposit(ctx, user.ID, decimal.NewFromInt(500), domain.MethodTonkeeper)
	env.transactions.ConfirmDeposit(ctx, receipt.Transaction.ID)

	tx, err := env.transactions.Reject(ctx, receipt.Transaction.ID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if tx.Status != domain.StatusRejected {
		t.Fatalf("status = %s, want rejected", tx.Status)
	}
	mustEqual(t, env.getUser(t, user.ID).Balance, decimal.Zero, "balance after rejected deposit")
}

func TestRequestWithdrawal(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "alice", 300)
	ctx := context.Background()

	tx, err := env.transactions.RequestWithdrawal(ctx, user.ID, decimal.NewFromInt(200), domain.MethodCard, "4111111111111111")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if tx.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending", tx.Status)
	}
	// amount reserved up front
	mustEqual(t, env.getUser(t, user.ID).Balance, decimal.NewFromInt(100), "balance after request")

	// reserved funds are gone for a second withdrawal
	if _, err := env.transactions.RequestWithdrawal(ctx, user.ID, decimal.NewFromInt(200), domain.MethodCard, "4111111111111111"); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
}

func TestRequestWithdrawalValidation(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "alice", 300)
	ctx := context.Background()

	if _, err := env.transactions.RequestWithdrawal(ctx, user.ID, decimal.NewFromInt(50), domain.MethodTonkeeper, "addr"); !errors.Is(err, ErrUnsupportedMethod) {
		t.Fatalf("tonkeeper withdrawal: err = %v, want ErrUnsupportedMethod", err)
	}
	if _, err := env.transactions.RequestWithdrawal(ctx, user.ID, decimal.NewFromInt(50), domain.MethodCard, ""); !errors.Is(err, ErrMissingRecipient) {
		t.Fatalf("no recipient: err = %v, want ErrMissingRecipient", err)
	}
	mustEqual(t, env.getUser(t, user.ID).Balance, decimal.NewFromInt(300), "balance after failed requests")
}

func TestWithdrawalRejectRefunds(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "alice", 300)
	ctx := context.Background()

	tx, _ := env.transactions.RequestWithdrawal(ctx, user.ID, decimal.NewFromInt(200), domain.MethodCard, "4111111111111111")

	if _, err := env.transactions.Reject(ctx, tx.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	mustEqual(t, env.getUser(t, user.ID).Balance, decimal.NewFromInt(300), "balance after reject refund")

	// already finalized
	if _, err := env.transactions.Reject(ctx, tx.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second reject: err = %v, want ErrNotFound", err)
	}
	mustEqual(t, env.getUser(t, user.ID).Balance, decimal.NewFromInt(300), "no double refund")
}

func TestWithdrawalApproveKeepsDebit(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "alice", 300)
	ctx := context.Background()

	tx, _ := env.transactions.RequestWithdrawal(ctx, user.ID, decimal.NewFromInt(200), domain.MethodCard, "4111111111111111")

	if _, err := env.transactions.Approve(ctx, tx.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	mustEqual(t, env.getUser(t, user.ID).Balance, decimal.NewFromInt(100), "balance after approved withdrawal")
}

func TestWithdrawalCancelRefundsAndDeletes(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "alice", 300)
	ctx := context.Background()

	tx, _ := env.transactions.RequestWithdrawal(ctx, user.ID, decimal.NewFromInt(200), domain.MethodCard, "4111111111111111")

	if err := env.transactions.CancelPending(ctx, tx.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	mustEqual(t, env.getUser(t, user.ID).Balance, decimal.NewFromInt(300), "balance after cancel refund")

	history, err := env.transactions.History(ctx, user.ID, "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("history has %d entries after cancel, want 0", len(history))
	}
}

func TestHistoryFilterByType(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "alice", 1000)
	ctx := context.Background()

	env.transactions.RequestWithdrawal(ctx, user.ID, decimal.NewFromInt(100), domain.MethodCard, "4111111111111111")
	env.transactions.CreateDeposit(ctx, user.ID, decimal.NewFromInt(50), domain.MethodTonkeeper)

	deposits, err := env.transactions.History(ctx, user.ID, domain.TransactionDeposit)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(deposits) != 1 || deposits[0].Type != domain.TransactionDeposit {
		t.Fatalf("deposit history = %+v, want one deposit", deposits)
	}

	all, _ := env.transactions.History(ctx, user.ID, "")
	if len(all) != 2 {
		t.Fatalf("full history = %d entries, want 2", len(all))
	}
}
