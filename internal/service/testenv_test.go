package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"clicker_webapp/internal/domain"
	"clicker_webapp/internal/notify"
	"clicker_webapp/internal/rates"
	"clicker_webapp/internal/storage"
)

const testWallet = "UQTestWallet"

// testEnv bundles an in-memory store with captured notifications and a
// fixed exchange rate, plus every service wired the way main does it.
type testEnv struct {
	store  *storage.Memory
	events *notify.Capture

	auth         *AuthService
	transactions *TransactionService
	packages     *PackageService
	gameStore    *StoreService
	clicker      *ClickerService
	referrals    *ReferralService
	admin        *AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := storage.NewMemory()
	events := &notify.Capture{}

	referrals := NewReferralService(store)
	env := &testEnv{
		store:        store,
		events:       events,
		auth:         NewAuthService(store, events, NewJWTManager("test-secret")),
		transactions: NewTransactionService(store, rates.Static{Value: decimal.NewFromInt(250)}, events, testWallet, "amd"),
		packages:     NewPackageService(store, referrals, events),
		gameStore:    NewStoreService(store, events),
		clicker:      NewClickerService(store, events, nil),
		referrals:    referrals,
		admin:        NewAdminService(store, events),
	}
	env.seedCatalog()
	return env
}

// seedCatalog loads the reference data the game depends on: four skins in
// ascending order, two timed multipliers, two limit boosts and a package.
func (e *testEnv) seedCatalog() {
	mult := func(v float64) *float64 { return &v }
	bonus := func(v int) *int { return &v }
	hours := func(v int) *int { return &v }

	storage.SeedStoreItem(e.store, domain.StoreItem{ID: 1, Name: "Classic", Type: domain.ItemSkin, Price: decimal.NewFromInt(100), Multiplier: mult(1.2)})
	storage.SeedStoreItem(e.store, domain.StoreItem{ID: 2, Name: "Bronze", Type: domain.ItemSkin, Price: decimal.NewFromInt(250), Multiplier: mult(1.7)})
	storage.SeedStoreItem(e.store, domain.StoreItem{ID: 3, Name: "Silver", Type: domain.ItemSkin, Price: decimal.NewFromInt(500), Multiplier: mult(2.0)})
	storage.SeedStoreItem(e.store, domain.StoreItem{ID: 4, Name: "Gold", Type: domain.ItemSkin, Price: decimal.NewFromInt(1000), Multiplier: mult(3.0)})
	storage.SeedStoreItem(e.store, domain.StoreItem{ID: 5, Name: "Boost x2 (12h)", Type: domain.ItemMultiplier, Price: decimal.NewFromInt(500), Multiplier: mult(2.0), DurationHours: hours(12)})
	storage.SeedStoreItem(e.store, domain.StoreItem{ID: 6, Name: "Limit Boost +10%", Type: domain.ItemReferralLimitBoost, Price: decimal.NewFromInt(800), BonusPercent: bonus(10)})
	storage.SeedStoreItem(e.store, domain.StoreItem{ID: 7, Name: "Limit Boost +20%", Type: domain.ItemReferralLimitBoost, Price: decimal.NewFromInt(1400), BonusPercent: bonus(20)})

	storage.SeedPackage(e.store, domain.Package{ID: 1, Name: "Standard", Price: decimal.NewFromInt(200), ReferralBonus: decimal.NewFromInt(50), EarningsLimit: decimal.NewFromInt(500)})
	storage.SeedPackage(e.store, domain.Package{ID: 2, Name: "Premium", Price: decimal.NewFromInt(500), ReferralBonus: decimal.NewFromInt(150), EarningsLimit: decimal.NewFromInt(1500)})
}

// newUser creates an account directly in the store with the given main
// balance.
func (e *testEnv) newUser(t *testing.T, login string, balance int64) *domain.User {
	t.Helper()
	u := &domain.User{
		Login:        login,
		PasswordHash: "x",
		Balance:      decimal.NewFromInt(balance),
		Level:        1,
		SkinID:       1,
		Role:         domain.RoleUser,
	}
	if err := e.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", login, err)
	}
	return u
}

func (e *testEnv) getUser(t *testing.T, id int64) *domain.User {
	t.Helper()
	u, err := e.store.GetUser(context.Background(), id)
	if err != nil {
		t.Fatalf("get user %d: %v", id, err)
	}
	return u
}

func (e *testEnv) setGameBalance(t *testing.T, userID int64, amount int64) {
	t.Helper()
	u := e.getUser(t, userID)
	u.GameBalance = decimal.NewFromInt(amount)
	if err := e.store.UpdateUser(context.Background(), u); err != nil {
		t.Fatalf("set game balance: %v", err)
	}
}

func mustEqual(t *testing.T, got, want decimal.Decimal, what string) {
	t.Helper()
	if !got.Equal(want) {
		t.Fatalf("%s: got %s, want %s", what, got, want)
	}
}
