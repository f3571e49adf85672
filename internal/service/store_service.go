package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"clicker_webapp/internal/domain"
	"clicker_webapp/internal/notify"
	"clicker_webapp/internal/storage"
)

// StoreService sells game-store items for game balance: click skins,
// timed click multipliers and referral limit boosts.
type StoreService struct {
	store    storage.Store
	notifier notify.Notifier
}

func NewStoreService(store storage.Store, notifier notify.Notifier) *StoreService {
	return &StoreService{store: store, notifier: notifier}
}

func (s *StoreService) ListItems(ctx context.Context) ([]domain.StoreItem, error) {
	return s.store.ListStoreItems(ctx)
}

// Buy purchases a store item with game balance. Skins must be bought in
// ascending order one step at a time; only one multiplier may be active;
// a limit boost requires a package and can be bought once ever.
func (s *StoreService) Buy(ctx context.Context, userID, itemID int64) (*domain.UserPurchase, error) {
	now := time.Now()
	var (
		purchase       *domain.UserPurchase
		newGameBalance decimal.Decimal
	)
	err := s.store.Atomic(ctx, func(st storage.Store) error {
		user, err := st.GetUserForUpdate(ctx, userID)
		if err != nil {
			return mapUserErr(err)
		}
		item, err := st.GetStoreItem(ctx, itemID)
		if err != nil {
			return mapNotFound(err)
		}
		if user.GameBalance.LessThan(item.Price) {
			return ErrInsufficientGameBalance
		}

		switch item.Type {
		case domain.ItemSkin:
			if err := checkSkinOrder(ctx, st, user.SkinID, item.ID); err != nil {
				return err
			}
			user.SkinID = item.ID

		case domain.ItemMultiplier:
			active, err := st.ActivePurchaseOfType(ctx, userID, domain.ItemMultiplier, now)
			if err != nil {
				return err
			}
			if active != nil {
				return ErrActiveMultiplier
			}

		case domain.ItemReferralLimitBoost:
			if user.PackageID == nil {
				return ErrNoActivePackage
			}
			owned, err := st.HasPurchaseOfType(ctx, userID, domain.ItemReferralLimitBoost)
			if err != nil {
				return err
			}
			if owned {
				return ErrBoostAlreadyOwned
			}
			pkg, err := st.GetPackage(ctx, *user.PackageID)
			if err != nil {
				return err
			}
			bonus := pkg.EarningsLimit.
				Mul(decimal.NewFromInt(int64(*item.BonusPercent))).
				Div(decimal.NewFromInt(100))
			user.PersonalEarningsLimit = user.PersonalEarningsLimit.Add(bonus).Round(2)
		}

		user.GameBalance = user.GameBalance.Sub(item.Price)
		if err := st.UpdateUser(ctx, user); err != nil {
			return err
		}
		newGameBalance = user.GameBalance

		purchase = &domain.UserPurchase{UserID: userID, ItemID: item.ID, PurchasedAt: now}
		if item.DurationHours != nil {
			expires := now.Add(time.Duration(*item.DurationHours) * time.Hour)
			purchase.ExpiresAt = &expires
		}
		return st.CreatePurchase(ctx, purchase)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(userID, notify.EventGameBalanceUpdate, map[string]any{"gameBalance": newGameBalance})
	return purchase, nil
}

// checkSkinOrder allows only the immediate successor of the current skin
// in the ascending-id skin list.
func checkSkinOrder(ctx context.Context, st storage.Store, currentSkinID, wantID int64) error {
	skins, err := st.ListSkins(ctx)
	if err != nil {
		return err
	}
	for i, skin := range skins {
		if skin.ID == currentSkinID {
			if i+1 < len(skins) && skins[i+1].ID == wantID {
				return nil
			}
			return ErrSkinOutOfOrder
		}
	}
	return ErrSkinOutOfOrder
}

// SweepExpired drops the user's expired timed purchases. Called when the
// user connects and before click-value computation.
func (s *StoreService) SweepExpired(ctx context.Context, userID int64) error {
	var removed int
	err := s.store.Atomic(ctx, func(st storage.Store) error {
		var err error
		removed, err = st.DeleteExpiredPurchases(ctx, userID, time.Now())
		return err
	})
	if err != nil {
		return err
	}
	if removed > 0 {
		s.notifier.Notify(userID, notify.EventBoosterExpired, map[string]any{"message": "booster expired"})
	}
	return nil
}
