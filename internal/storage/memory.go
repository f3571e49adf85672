package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"clicker_webapp/internal/domain"
)

// Memory is an in-memory Store used by unit tests. Atomic sections are
// serialized by a single mutex; there is no rollback, so callers must run
// all validations before the first write, which is how every service in
// this repository is written.
type Memory struct {
	mu   sync.Mutex
	txMu sync.Mutex

	userSeq     int64
	txSeq       int64
	pkgSeq      int64
	itemSeq     int64
	purchaseSeq int64

	users     map[int64]*domain.User
	logins    map[string]int64
	txs       map[int64]*domain.Transaction
	packages  map[int64]*domain.Package
	items     map[int64]*domain.StoreItem
	purchases map[int64]*domain.UserPurchase
}

func NewMemory() *Memory {
	return &Memory{
		users:     make(map[int64]*domain.User),
		logins:    make(map[string]int64),
		txs:       make(map[int64]*domain.Transaction),
		packages:  make(map[int64]*domain.Package),
		items:     make(map[int64]*domain.StoreItem),
		purchases: make(map[int64]*domain.UserPurchase),
	}
}

func (m *Memory) Atomic(_ context.Context, fn func(Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(&memoryTx{m})
}

// memoryTx is the view passed to Atomic callbacks. Nested Atomic calls run
// in place because the outer section already holds the lock.
type memoryTx struct{ *Memory }

func (t *memoryTx) Atomic(_ context.Context, fn func(Store) error) error {
	return fn(t)
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func copyTransaction(t *domain.Transaction) *domain.Transaction {
	c := *t
	return &c
}

func (m *Memory) CreateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(u.Login)
	if _, ok := m.logins[key]; ok {
		return ErrLoginTaken
	}

	m.userSeq++
	u.ID = m.userSeq
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	m.users[u.ID] = copyUser(u)
	m.logins[key] = u.ID
	return nil
}

func (m *Memory) GetUser(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (m *Memory) GetUserForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	// Serialization is provided by the Atomic mutex.
	return m.GetUser(ctx, id)
}

func (m *Memory) GetUserByLogin(_ context.Context, login string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.logins[strings.ToLower(login)]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(m.users[id]), nil
}

func (m *Memory) UpdateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	if old.Login != u.Login {
		key := strings.ToLower(u.Login)
		if other, taken := m.logins[key]; taken && other != u.ID {
			return ErrLoginTaken
		}
		delete(m.logins, strings.ToLower(old.Login))
		m.logins[key] = u.ID
	}
	m.users[u.ID] = copyUser(u)
	return nil
}

func (m *Memory) ListUsers(_ context.Context, f UserFilter) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []domain.User
	for _, u := range m.sortedUsers() {
		if f.Login != "" && !strings.Contains(strings.ToLower(u.Login), strings.ToLower(f.Login)) {
			continue
		}
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.MinBalance != nil && u.Balance.LessThan(*f.MinBalance) {
			continue
		}
		res = append(res, *u)
	}
	return res, nil
}

func (m *Memory) ListReferrals(_ context.Context, referrerID int64) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []domain.User
	for _, u := range m.sortedUsers() {
		if u.ReferrerID != nil && *u.ReferrerID == referrerID {
			res = append(res, *u)
		}
	}
	return res, nil
}

func (m *Memory) CountReferrals(_ context.Context, referrerID int64) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total, withPackage := 0, 0
	for _, u := range m.users {
		if u.ReferrerID == nil || *u.ReferrerID != referrerID {
			continue
		}
		total++
		if u.PackageID != nil {
			withPackage++
		}
	}
	return total, withPackage, nil
}

func (m *Memory) sortedUsers() []*domain.User {
	ids := make([]int64, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	res := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		res = append(res, m.users[id])
	}
	return res
}

func (m *Memory) CreateTransaction(_ context.Context, t *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.txSeq++
	t.ID = m.txSeq
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	m.txs[t.ID] = copyTransaction(t)
	return nil
}

func (m *Memory) GetTransactionInStatus(_ context.Context, id int64, status domain.TransactionStatus) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.txs[id]
	if !ok || t.Status != status {
		return nil, ErrNotFound
	}
	return copyTransaction(t), nil
}

func (m *Memory) GetUserTransaction(_ context.Context, userID, id int64, typ domain.TransactionType, status domain.TransactionStatus) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.txs[id]
	if !ok || t.UserID != userID || t.Type != typ || t.Status != status {
		return nil, ErrNotFound
	}
	return copyTransaction(t), nil
}

func (m *Memory) HasActiveDeposit(_ context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.txs {
		if t.UserID == userID && t.Type == domain.TransactionDeposit && t.Status == domain.StatusCreated {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) UpdateTransactionStatus(_ context.Context, id int64, from, to domain.TransactionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.txs[id]
	if !ok || t.Status != from {
		return ErrNotFound
	}
	t.Status = to
	return nil
}

func (m *Memory) DeleteTransaction(_ context.Context, id int64, status domain.TransactionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.txs[id]
	if !ok || t.Status != status {
		return ErrNotFound
	}
	delete(m.txs, id)
	return nil
}

func (m *Memory) ListUserTransactions(_ context.Context, userID int64, typ domain.TransactionType) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []domain.Transaction
	for _, t := range m.sortedTransactions() {
		if t.UserID != userID {
			continue
		}
		if typ != "" && t.Type != typ {
			continue
		}
		res = append(res, *t)
	}
	// Newest first, matching the Postgres ORDER BY created_at DESC.
	sort.SliceStable(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (m *Memory) SearchTransactions(_ context.Context, f TransactionFilter) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []domain.Transaction
	for _, t := range m.sortedTransactions() {
		if f.UserID != nil && t.UserID != *f.UserID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.MinAmount != nil && !t.Amount.GreaterThan(*f.MinAmount) {
			continue
		}
		res = append(res, *t)
	}
	return res, nil
}

func (m *Memory) SumTransactions(_ context.Context, userID int64, typ domain.TransactionType) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sum := decimal.Zero
	for _, t := range m.txs {
		if t.UserID == userID && t.Type == typ {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

func (m *Memory) sortedTransactions() []*domain.Transaction {
	ids := make([]int64, 0, len(m.txs))
	for id := range m.txs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	res := make([]*domain.Transaction, 0, len(ids))
	for _, id := range ids {
		res = append(res, m.txs[id])
	}
	return res
}

func (m *Memory) GetPackage(_ context.Context, id int64) (*domain.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.packages[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *p
	return &c, nil
}

func (m *Memory) ListPackages(_ context.Context) ([]domain.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.packages))
	for id := range m.packages {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	res := make([]domain.Package, 0, len(ids))
	for _, id := range ids {
		res = append(res, *m.packages[id])
	}
	return res, nil
}

func (m *Memory) GetStoreItem(_ context.Context, id int64) (*domain.StoreItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *it
	return &c, nil
}

func (m *Memory) ListStoreItems(_ context.Context) ([]domain.StoreItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.itemsOfType(""), nil
}

func (m *Memory) ListSkins(_ context.Context) ([]domain.StoreItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.itemsOfType(domain.ItemSkin), nil
}

func (m *Memory) itemsOfType(typ domain.StoreItemType) []domain.StoreItem {
	ids := make([]int64, 0, len(m.items))
	for id, it := range m.items {
		if typ == "" || it.Type == typ {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	res := make([]domain.StoreItem, 0, len(ids))
	for _, id := range ids {
		res = append(res, *m.items[id])
	}
	return res
}

func (m *Memory) CreatePurchase(_ context.Context, p *domain.UserPurchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[p.ItemID]; !ok {
		return ErrNotFound
	}
	m.purchaseSeq++
	p.ID = m.purchaseSeq
	if p.PurchasedAt.IsZero() {
		p.PurchasedAt = time.Now()
	}
	c := *p
	c.Item = nil
	m.purchases[p.ID] = &c
	return nil
}

func (m *Memory) HasPurchaseOfType(_ context.Context, userID int64, typ domain.StoreItemType) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.purchases {
		if p.UserID == userID && m.items[p.ItemID].Type == typ {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) ActivePurchaseOfType(_ context.Context, userID int64, typ domain.StoreItemType, now time.Time) (*domain.UserPurchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.purchases {
		item := m.items[p.ItemID]
		if p.UserID != userID || item.Type != typ || p.Expired(now) {
			continue
		}
		c := *p
		ci := *item
		c.Item = &ci
		return &c, nil
	}
	return nil, nil
}

func (m *Memory) DeleteExpiredPurchases(_ context.Context, userID int64, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, p := range m.purchases {
		if p.UserID == userID && p.Expired(now) {
			delete(m.purchases, id)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) AdminStats(_ context.Context) (*AdminStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &AdminStats{
		TotalApprovedDeposits:    decimal.Zero,
		TotalApprovedWithdrawals: decimal.Zero,
		TotalUserBalance:         decimal.Zero,
		TotalSpentInStore:        decimal.Zero,
	}

	earnings := make(map[int64]decimal.Decimal)
	for _, t := range m.txs {
		switch {
		case t.Type == domain.TransactionDeposit && t.Status == domain.StatusApproved:
			stats.TotalApprovedDeposits = stats.TotalApprovedDeposits.Add(t.Amount)
		case t.Type == domain.TransactionWithdrawal && t.Status == domain.StatusApproved:
			stats.TotalApprovedWithdrawals = stats.TotalApprovedWithdrawals.Add(t.Amount)
		}
		if t.Status == domain.StatusPending {
			stats.PendingTransactions++
		}
		if t.Type == domain.TransactionReferralBonus {
			earnings[t.UserID] = earnings[t.UserID].Add(t.Amount)
		}
	}

	for _, u := range m.users {
		stats.TotalUsers++
		stats.TotalUserBalance = stats.TotalUserBalance.Add(u.Balance)
		if u.ReferrerID != nil && u.PackageID != nil {
			stats.UsersWithReferralsAndPkg++
		}
	}

	for _, p := range m.purchases {
		stats.TotalStorePurchases++
		stats.TotalSpentInStore = stats.TotalSpentInStore.Add(m.items[p.ItemID].Price)
	}

	for id, total := range earnings {
		login := ""
		if u, ok := m.users[id]; ok {
			login = u.Login
		}
		stats.TopReferrers = append(stats.TopReferrers, ReferrerEarnings{UserID: id, Login: login, Total: total})
	}
	sort.Slice(stats.TopReferrers, func(i, j int) bool {
		return stats.TopReferrers[i].Total.GreaterThan(stats.TopReferrers[j].Total)
	})
	if len(stats.TopReferrers) > 10 {
		stats.TopReferrers = stats.TopReferrers[:10]
	}

	return stats, nil
}
