package service

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"clicker_webapp/internal/domain"
	"clicker_webapp/internal/notify"
	"clicker_webapp/internal/storage"
)

// PackageService sells earning packages. Buying one is a set-once
// operation that may trigger a referral bonus payout upstream.
type PackageService struct {
	store     storage.Store
	referrals *ReferralService
	notifier  notify.Notifier
}

func NewPackageService(store storage.Store, referrals *ReferralService, notifier notify.Notifier) *PackageService {
	return &PackageService{store: store, referrals: referrals, notifier: notifier}
}

func (s *PackageService) List(ctx context.Context) ([]domain.Package, error) {
	return s.store.ListPackages(ctx)
}

// Buy debits the package price from the main balance, assigns the package
// permanently and records an approved package_purchase transaction. If the
// buyer was referred, the referrer receives the package's referral bonus,
// subject to their earnings cap.
func (s *PackageService) Buy(ctx context.Context, userID, packageID int64) (*domain.Package, error) {
	var (
		pkg             *domain.Package
		buyerBalance    decimal.Decimal
		referrerID      int64
		referrerBalance decimal.Decimal
		bonusPaid       bool
	)
	err := s.store.Atomic(ctx, func(st storage.Store) error {
		probe, err := st.GetUser(ctx, userID)
		if err != nil {
			return mapUserErr(err)
		}

		// Lock buyer and referrer in id order to avoid deadlocks
		// between concurrent purchases in the same referral chain.
		ids := []int64{userID}
		if probe.ReferrerID != nil && *probe.ReferrerID != userID {
			ids = append(ids, *probe.ReferrerID)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		locked := make(map[int64]*domain.User, len(ids))
		for _, id := range ids {
			u, err := st.GetUserForUpdate(ctx, id)
			if err != nil {
				return mapUserErr(err)
			}
			locked[id] = u
		}
		buyer := locked[userID]

		if buyer.PackageID != nil {
			return ErrPackageAlreadyOwned
		}
		pkg, err = st.GetPackage(ctx, packageID)
		if err != nil {
			return mapNotFound(err)
		}
		if buyer.Balance.LessThan(pkg.Price) {
			return ErrInsufficientFunds
		}

		// Decide the referral bonus before touching any row. The memory
		// store cannot roll back, so every failure path must run before
		// the first write.
		var referrer *domain.User
		if buyer.ReferrerID != nil && *buyer.ReferrerID != buyer.ID {
			referrer = locked[*buyer.ReferrerID]
			bonusPaid, err = s.referrals.BonusDue(ctx, st, referrer, pkg.ReferralBonus)
			if err != nil {
				return err
			}
		}

		buyer.Balance = buyer.Balance.Sub(pkg.Price)
		buyer.PackageID = &pkg.ID
		if err := st.UpdateUser(ctx, buyer); err != nil {
			return err
		}
		buyerBalance = buyer.Balance

		purchase := &domain.Transaction{
			UserID: buyer.ID,
			Type:   domain.TransactionPackagePurchase,
			Amount: pkg.Price,
			Status: domain.StatusApproved,
		}
		if err := st.CreateTransaction(ctx, purchase); err != nil {
			return err
		}

		if bonusPaid {
			if err := s.referrals.PayBonus(ctx, st, referrer, pkg.ReferralBonus, buyer.ID); err != nil {
				return err
			}
			referrerID = referrer.ID
			referrerBalance = referrer.Balance
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(userID, notify.EventBalanceUpdate, map[string]any{"balance": buyerBalance})
	if bonusPaid {
		s.notifier.Notify(referrerID, notify.EventBalanceUpdate, map[string]any{"balance": referrerBalance})
	}
	return pkg, nil
}
