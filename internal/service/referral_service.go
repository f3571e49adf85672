package service

import (
	"context"

	"github.com/shopspring/decimal"

	"clicker_webapp/internal/domain"
	"clicker_webapp/internal/storage"
)

// ReferralService enforces the referral earnings cap. A referrer may keep
// receiving bonuses while their total earned is below cap; the bonus that
// crosses the cap is still paid in full.
type ReferralService struct {
	store storage.Store
}

func NewReferralService(store storage.Store) *ReferralService {
	return &ReferralService{store: store}
}

// Cap is the package earnings limit (0 without a package) plus the user's
// personal limit bought in the game store.
func (s *ReferralService) Cap(ctx context.Context, st storage.Store, user *domain.User) (decimal.Decimal, error) {
	cap := user.PersonalEarningsLimit
	if user.PackageID != nil {
		pkg, err := st.GetPackage(ctx, *user.PackageID)
		if err != nil {
			return decimal.Zero, err
		}
		cap = cap.Add(pkg.EarningsLimit)
	}
	return cap, nil
}

// Earned totals every referral bonus ever paid to the user.
func (s *ReferralService) Earned(ctx context.Context, st storage.Store, userID int64) (decimal.Decimal, error) {
	return st.SumTransactions(ctx, userID, domain.TransactionReferralBonus)
}

// BonusDue reports whether the referrer would receive a bonus of the given
// amount. It only reads, so callers can decide before their first write. A
// referrer without a package or already at their cap gets nothing; the
// bonus that crosses the cap is still due in full.
//
// Must run inside the caller's atomic unit with the referrer row already
// locked.
func (s *ReferralService) BonusDue(ctx context.Context, st storage.Store, referrer *domain.User, amount decimal.Decimal) (bool, error) {
	if referrer.PackageID == nil || !amount.IsPositive() {
		return false, nil
	}

	cap, err := s.Cap(ctx, st, referrer)
	if err != nil {
		return false, err
	}
	earned, err := s.Earned(ctx, st, referrer.ID)
	if err != nil {
		return false, err
	}
	return earned.LessThan(cap), nil
}

// PayBonus credits amount to the referrer and records a referral_bonus
// transaction tagged with the downstream user. The caller decides
// eligibility with BonusDue first.
func (s *ReferralService) PayBonus(ctx context.Context, st storage.Store, referrer *domain.User, amount decimal.Decimal, referralUserID int64) error {
	referrer.Balance = referrer.Balance.Add(amount)
	if err := st.UpdateUser(ctx, referrer); err != nil {
		return err
	}

	bonus := &domain.Transaction{
		UserID:     referrer.ID,
		Type:       domain.TransactionReferralBonus,
		Amount:     amount,
		Status:     domain.StatusApproved,
		ReferralID: &referralUserID,
	}
	return st.CreateTransaction(ctx, bonus)
}

// ReferralInfo is one direct referral in the user-facing listing.
type ReferralInfo struct {
	ID      int64  `json:"id"`
	Login   string `json:"login"`
	Package string `json:"package"`
}

// ReferralStats summarizes a user's referral program state.
type ReferralStats struct {
	TotalReferrals        int             `json:"total_referrals"`
	ReferralsWithPackages int             `json:"referrals_with_packages"`
	TotalEarnings         decimal.Decimal `json:"total_earnings"`
	EarningsLimit         decimal.Decimal `json:"earnings_limit"`
	RemainingLimit        decimal.Decimal `json:"remaining_limit"`
}

// ListReferrals returns the user's direct referrals with their package name.
func (s *ReferralService) ListReferrals(ctx context.Context, userID int64) ([]ReferralInfo, error) {
	referrals, err := s.store.ListReferrals(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := make([]ReferralInfo, 0, len(referrals))
	for _, r := range referrals {
		info := ReferralInfo{ID: r.ID, Login: r.Login, Package: "none"}
		if r.PackageID != nil {
			if pkg, err := s.store.GetPackage(ctx, *r.PackageID); err == nil {
				info.Package = pkg.Name
			}
		}
		res = append(res, info)
	}
	return res, nil
}

// Stats reports totals, earnings and remaining headroom for a referrer.
func (s *ReferralService) Stats(ctx context.Context, userID int64) (*ReferralStats, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, mapUserErr(err)
	}

	total, withPackages, err := s.store.CountReferrals(ctx, userID)
	if err != nil {
		return nil, err
	}
	earned, err := s.Earned(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	cap, err := s.Cap(ctx, s.store, user)
	if err != nil {
		return nil, err
	}

	remaining := cap.Sub(earned)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return &ReferralStats{
		TotalReferrals:        total,
		ReferralsWithPackages: withPackages,
		TotalEarnings:         earned,
		EarningsLimit:         cap,
		RemainingLimit:        remaining,
	}, nil
}
