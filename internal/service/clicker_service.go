package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"clicker_webapp/internal/domain"
	"clicker_webapp/internal/notify"
	"clicker_webapp/internal/storage"
)

// ClickGate throttles clicks per user. Allow reports whether a click may
// be applied right now.
type ClickGate interface {
	Allow(ctx context.Context, userID int64) bool
}

// ClickResult is what a single click produced.
type ClickResult struct {
	GameBalance decimal.Decimal `json:"gameBalance"`
	ClickValue  decimal.Decimal `json:"clickValue"`
	Level       int             `json:"level,omitempty"`
	LeveledUp   bool            `json:"leveledUp,omitempty"`
	Throttled   bool            `json:"throttled,omitempty"`
}

// ClickerService applies clicks: it accrues game balance by the combined
// skin and booster multiplier and advances the level when the click
// threshold is reached.
type ClickerService struct {
	store    storage.Store
	notifier notify.Notifier
	gate     ClickGate
}

func NewClickerService(store storage.Store, notifier notify.Notifier, gate ClickGate) *ClickerService {
	return &ClickerService{store: store, notifier: notifier, gate: gate}
}

// ClicksForLevel is the cumulative click count required to leave level.
func ClicksForLevel(level int) int64 {
	return int64(math.Floor(100 * math.Pow(1.3, float64(level-1))))
}

// Click applies one click for the user. Clicks arriving inside the
// cooldown window are dropped, not queued. An unknown user gets a neutral
// result instead of an error so a stale connection cannot fail the feed.
func (s *ClickerService) Click(ctx context.Context, userID int64) (*ClickResult, error) {
	if s.gate != nil && !s.gate.Allow(ctx, userID) {
		return &ClickResult{ClickValue: decimal.Zero, Throttled: true}, nil
	}

	now := time.Now()
	var (
		res        *ClickResult
		levelBonus decimal.Decimal
	)
	err := s.store.Atomic(ctx, func(st storage.Store) error {
		user, err := st.GetUserForUpdate(ctx, userID)
		if errors.Is(err, storage.ErrNotFound) {
			res = &ClickResult{GameBalance: decimal.Zero, ClickValue: decimal.NewFromInt(1)}
			return nil
		}
		if err != nil {
			return err
		}

		value := clickValue(ctx, st, user, now)

		user.Clicks++
		user.GameBalance = user.GameBalance.Add(value).Round(2)

		leveledUp := false
		if user.Clicks >= ClicksForLevel(user.Level) {
			user.Level++
			levelBonus = decimal.NewFromInt(int64(user.Level-1) * 10)
			user.GameBalance = user.GameBalance.Add(levelBonus)
			leveledUp = true
		}
		if err := st.UpdateUser(ctx, user); err != nil {
			return err
		}

		res = &ClickResult{
			GameBalance: user.GameBalance,
			ClickValue:  value,
			Level:       user.Level,
			LeveledUp:   leveledUp,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.LeveledUp {
		s.notifier.Notify(userID, notify.EventLevelUp, map[string]any{
			"level":       res.Level,
			"gameBalance": res.GameBalance,
			"bonus":       levelBonus,
		})
	}
	return res, nil
}

// clickValue is 1 times the equipped skin multiplier times the active
// booster multiplier. Lookup failures fall back to the neutral factor so
// a broken catalog row cannot block clicking.
func clickValue(ctx context.Context, st storage.Store, user *domain.User, now time.Time) decimal.Decimal {
	skinMult := 1.0
	if skin, err := st.GetStoreItem(ctx, user.SkinID); err == nil && skin.Type == domain.ItemSkin && skin.Multiplier != nil {
		skinMult = *skin.Multiplier
	}

	boosterMult := 1.0
	if active, err := st.ActivePurchaseOfType(ctx, user.ID, domain.ItemMultiplier, now); err == nil && active != nil {
		if active.Item != nil && active.Item.Multiplier != nil {
			boosterMult = *active.Item.Multiplier
		}
	}

	return decimal.NewFromFloat(skinMult).Mul(decimal.NewFromFloat(boosterMult))
}
