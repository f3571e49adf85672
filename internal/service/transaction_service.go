package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"clicker_webapp/internal/domain"
	"clicker_webapp/internal/notify"
	"clicker_webapp/internal/rates"
	"clicker_webapp/internal/storage"
)

// tonCoinID is the rate provider's identifier for Toncoin.
const tonCoinID = "the-open-network"

// TransactionService owns the deposit/withdrawal pipeline. Deposits are
// created first and credited only on admin approval; withdrawals reserve
// the amount immediately and refund it on rejection or cancellation.
type TransactionService struct {
	store    storage.Store
	rates    rates.Lookup
	notifier notify.Notifier
	wallet   string
	quote    string
}

func NewTransactionService(store storage.Store, rates rates.Lookup, notifier notify.Notifier, wallet, quote string) *TransactionService {
	return &TransactionService{store: store, rates: rates, notifier: notifier, wallet: wallet, quote: quote}
}

// DepositReceipt carries the created transaction and the payment link the
// user opens in their wallet.
type DepositReceipt struct {
	Transaction *domain.Transaction `json:"transaction"`
	PaymentLink string              `json:"payment_link"`
}

// CreateDeposit opens a CREATED deposit and builds a TonKeeper transfer
// link for the converted TON amount. At most one deposit may be awaiting
// payment per user.
func (s *TransactionService) CreateDeposit(ctx context.Context, userID int64, amount decimal.Decimal, method domain.TransactionMethod) (*DepositReceipt, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if method != domain.MethodTonkeeper {
		return nil, ErrUnsupportedMethod
	}

	if dup, err := s.store.HasActiveDeposit(ctx, userID); err != nil {
		return nil, err
	} else if dup {
		return nil, ErrDuplicateActiveDeposit
	}

	rate, err := s.rates.Rate(ctx, tonCoinID, s.quote)
	if err != nil {
		return nil, err
	}
	tonAmount := amount.Div(rate).Round(6)

	tx := &domain.Transaction{
		UserID:    userID,
		Type:      domain.TransactionDeposit,
		Amount:    amount.Round(2),
		Method:    domain.MethodTonkeeper,
		Status:    domain.StatusCreated,
		TonAmount: &tonAmount,
	}
	err = s.store.Atomic(ctx, func(st storage.Store) error {
		// Lock the user row so two concurrent requests cannot both pass
		// the duplicate check before either inserts.
		if _, err := st.GetUserForUpdate(ctx, userID); err != nil {
			return mapUserErr(err)
		}
		if dup, err := st.HasActiveDeposit(ctx, userID); err != nil {
			return err
		} else if dup {
			return ErrDuplicateActiveDeposit
		}
		return st.CreateTransaction(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	memo := fmt.Sprintf("dep-%d-%s", tx.ID, uuid.NewString()[:8])
	link := fmt.Sprintf("https://app.tonkeeper.com/transfer/%s?amount=%s&text=%s", s.wallet, tonAmount.String(), memo)
	return &DepositReceipt{Transaction: tx, PaymentLink: link}, nil
}

// CancelCreatedDeposit lets the user abandon their own deposit while it is
// still awaiting payment. No balance changed, so nothing to refund.
func (s *TransactionService) CancelCreatedDeposit(ctx context.Context, userID, txID int64) error {
	return s.store.Atomic(ctx, func(st storage.Store) error {
		tx, err := st.GetUserTransaction(ctx, userID, txID, domain.TransactionDeposit, domain.StatusCreated)
		if err != nil {
			return mapNotFound(err)
		}
		return st.DeleteTransaction(ctx, tx.ID, domain.StatusCreated)
	})
}

// ConfirmDeposit moves a CREATED deposit to PENDING once the user reports
// the transfer as sent. Funds are still not credited.
func (s *TransactionService) ConfirmDeposit(ctx context.Context, txID int64) (*domain.Transaction, error) {
	var tx *domain.Transaction
	err := s.store.Atomic(ctx, func(st storage.Store) error {
		var err error
		tx, err = st.GetTransactionInStatus(ctx, txID, domain.StatusCreated)
		if err != nil {
			return mapNotFound(err)
		}
		return st.UpdateTransactionStatus(ctx, tx.ID, domain.StatusCreated, domain.StatusPending)
	})
	if err != nil {
		return nil, err
	}
	tx.Status = domain.StatusPending
	s.notifier.Notify(tx.UserID, notify.EventTransactionUpdate, transactionUpdate(tx))
	return tx, nil
}

// RequestWithdrawal reserves the amount on the user's balance and opens a
// PENDING withdrawal for admin review.
func (s *TransactionService) RequestWithdrawal(ctx context.Context, userID int64, amount decimal.Decimal, method domain.TransactionMethod, recipient string) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if method != domain.MethodCard {
		return nil, ErrUnsupportedMethod
	}
	if recipient == "" {
		return nil, ErrMissingRecipient
	}

	tx := &domain.Transaction{
		UserID:    userID,
		Type:      domain.TransactionWithdrawal,
		Amount:    amount.Round(2),
		Method:    domain.MethodCard,
		Status:    domain.StatusPending,
		Recipient: recipient,
	}
	var newBalance decimal.Decimal
	err := s.store.Atomic(ctx, func(st storage.Store) error {
		user, err := st.GetUserForUpdate(ctx, userID)
		if err != nil {
			return mapUserErr(err)
		}
		if user.Balance.LessThan(tx.Amount) {
			return ErrInsufficientFunds
		}
		user.Balance = user.Balance.Sub(tx.Amount)
		if err := st.UpdateUser(ctx, user); err != nil {
			return err
		}
		newBalance = user.Balance
		return st.CreateTransaction(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(userID, notify.EventBalanceUpdate, map[string]any{"balance": newBalance})
	return tx, nil
}

// Approve finalizes a PENDING transaction. Deposits credit the balance
// here; withdrawals were already debited at request time. Approving a
// transaction that is not PENDING fails with ErrNotFound, which makes the
// operation safe to retry.
func (s *TransactionService) Approve(ctx context.Context, txID int64) (*domain.Transaction, error) {
	return s.finalize(ctx, txID, domain.StatusApproved)
}

// Reject declines a PENDING transaction. A rejected withdrawal refunds
// the reserved amount; a rejected deposit never credited anything.
func (s *TransactionService) Reject(ctx context.Context, txID int64) (*domain.Transaction, error) {
	return s.finalize(ctx, txID, domain.StatusRejected)
}

func (s *TransactionService) finalize(ctx context.Context, txID int64, status domain.TransactionStatus) (*domain.Transaction, error) {
	var (
		tx         *domain.Transaction
		newBalance *decimal.Decimal
	)
	err := s.store.Atomic(ctx, func(st storage.Store) error {
		var err error
		tx, err = st.GetTransactionInStatus(ctx, txID, domain.StatusPending)
		if err != nil {
			return mapNotFound(err)
		}

		credit := decimal.Zero
		switch {
		case tx.Type == domain.TransactionDeposit && status == domain.StatusApproved:
			credit = tx.Amount
		case tx.Type == domain.TransactionWithdrawal && status == domain.StatusRejected:
			credit = tx.Amount
		}
		if credit.IsPositive() {
			user, err := st.GetUserForUpdate(ctx, tx.UserID)
			if err != nil {
				return mapUserErr(err)
			}
			user.Balance = user.Balance.Add(credit)
			if err := st.UpdateUser(ctx, user); err != nil {
				return err
			}
			newBalance = &user.Balance
		}
		// The status guard makes a second finalizer lose the race: its
		// update matches no row and the whole transaction rolls back,
		// so the balance is credited exactly once.
		return st.UpdateTransactionStatus(ctx, tx.ID, domain.StatusPending, status)
	})
	if err != nil {
		return nil, err
	}

	tx.Status = status
	if newBalance != nil {
		s.notifier.Notify(tx.UserID, notify.EventBalanceUpdate, map[string]any{"balance": *newBalance})
	}
	s.notifier.Notify(tx.UserID, notify.EventTransactionUpdate, transactionUpdate(tx))
	return tx, nil
}

// CancelPending removes a PENDING transaction entirely. A cancelled
// withdrawal refunds the reserved amount before the record is deleted.
func (s *TransactionService) CancelPending(ctx context.Context, txID int64) error {
	var (
		userID     int64
		newBalance *decimal.Decimal
	)
	err := s.store.Atomic(ctx, func(st storage.Store) error {
		tx, err := st.GetTransactionInStatus(ctx, txID, domain.StatusPending)
		if err != nil {
			return mapNotFound(err)
		}
		userID = tx.UserID

		if tx.Type == domain.TransactionWithdrawal {
			user, err := st.GetUserForUpdate(ctx, tx.UserID)
			if err != nil {
				return mapUserErr(err)
			}
			user.Balance = user.Balance.Add(tx.Amount)
			if err := st.UpdateUser(ctx, user); err != nil {
				return err
			}
			newBalance = &user.Balance
		}
		return st.DeleteTransaction(ctx, tx.ID, domain.StatusPending)
	})
	if err != nil {
		return err
	}

	if newBalance != nil {
		s.notifier.Notify(userID, notify.EventBalanceUpdate, map[string]any{"balance": *newBalance})
	}
	return nil
}

// History lists the user's transactions, newest first. An empty typ
// returns all types.
func (s *TransactionService) History(ctx context.Context, userID int64, typ domain.TransactionType) ([]domain.Transaction, error) {
	return s.store.ListUserTransactions(ctx, userID, typ)
}

func transactionUpdate(tx *domain.Transaction) map[string]any {
	return map[string]any{"transactionId": tx.ID, "status": tx.Status}
}
