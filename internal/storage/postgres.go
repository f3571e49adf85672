package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"clicker_webapp/internal/domain"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres implements Store on top of pgx. Inside Atomic all statements run
// on one database transaction and GetUserForUpdate takes a row lock, which
// serializes concurrent mutations of the same user.
type Postgres struct {
	pool *pgxpool.Pool
	q    querier
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, q: pool}
}

func (s *Postgres) Atomic(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		// Already inside a transaction.
		return fn(s)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&Postgres{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const userColumns = `id, login, password_hash, balance, game_balance, personal_earnings_limit,
		level, clicks, skin_id, referrer_id, package_id, role, is_blocked, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Login, &u.PasswordHash, &u.Balance, &u.GameBalance, &u.PersonalEarningsLimit,
		&u.Level, &u.Clicks, &u.SkinID, &u.ReferrerID, &u.PackageID, &u.Role, &u.IsBlocked, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Postgres) CreateUser(ctx context.Context, u *domain.User) error {
	err := s.q.QueryRow(ctx, `
		INSERT INTO users (login, password_hash, balance, game_balance, personal_earnings_limit,
		                   level, clicks, skin_id, referrer_id, package_id, role, is_blocked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`, u.Login, u.PasswordHash, u.Balance, u.GameBalance, u.PersonalEarningsLimit,
		u.Level, u.Clicks, u.SkinID, u.ReferrerID, u.PackageID, u.Role, u.IsBlocked,
	).Scan(&u.ID, &u.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrLoginTaken
	}
	return err
}

func (s *Postgres) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(s.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Postgres) GetUserForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(s.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
}

func (s *Postgres) GetUserByLogin(ctx context.Context, login string) (*domain.User, error) {
	return scanUser(s.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(login) = lower($1)`, login))
}

func (s *Postgres) UpdateUser(ctx context.Context, u *domain.User) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE users
		SET login = $2, password_hash = $3, balance = $4, game_balance = $5,
		    personal_earnings_limit = $6, level = $7, clicks = $8, skin_id = $9,
		    referrer_id = $10, package_id = $11, role = $12, is_blocked = $13
		WHERE id = $1
	`, u.ID, u.Login, u.PasswordHash, u.Balance, u.GameBalance,
		u.PersonalEarningsLimit, u.Level, u.Clicks, u.SkinID,
		u.ReferrerID, u.PackageID, u.Role, u.IsBlocked)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrLoginTaken
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) ListUsers(ctx context.Context, f UserFilter) ([]domain.User, error) {
	// Optional filters collapse to always-true predicates when unset.
	rows, err := s.q.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE ($1 = '' OR login ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR role = $2)
		  AND ($3::numeric IS NULL OR balance >= $3)
		ORDER BY id
	`, f.Login, string(f.Role), f.MinBalance)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (s *Postgres) ListReferrals(ctx context.Context, referrerID int64) ([]domain.User, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+userColumns+` FROM users WHERE referrer_id = $1 ORDER BY id
	`, referrerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func scanUsers(rows pgx.Rows) ([]domain.User, error) {
	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	return res, rows.Err()
}

func (s *Postgres) CountReferrals(ctx context.Context, referrerID int64) (int, int, error) {
	var total, withPackage int
	err := s.q.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(package_id) FROM users WHERE referrer_id = $1
	`, referrerID).Scan(&total, &withPackage)
	return total, withPackage, err
}

const txColumns = `id, user_id, type, amount, COALESCE(method, ''), status, ton_amount,
		COALESCE(recipient, ''), referral_id, created_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(
		&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Method, &t.Status, &t.TonAmount,
		&t.Recipient, &t.ReferralID, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *Postgres) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	return s.q.QueryRow(ctx, `
		INSERT INTO transactions (user_id, type, amount, method, status, ton_amount, recipient, referral_id)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), $8)
		RETURNING id, created_at
	`, t.UserID, t.Type, t.Amount, string(t.Method), t.Status, t.TonAmount, t.Recipient, t.ReferralID,
	).Scan(&t.ID, &t.CreatedAt)
}

func (s *Postgres) GetTransactionInStatus(ctx context.Context, id int64, status domain.TransactionStatus) (*domain.Transaction, error) {
	return scanTransaction(s.q.QueryRow(ctx, `
		SELECT `+txColumns+` FROM transactions WHERE id = $1 AND status = $2
	`, id, status))
}

func (s *Postgres) GetUserTransaction(ctx context.Context, userID, id int64, typ domain.TransactionType, status domain.TransactionStatus) (*domain.Transaction, error) {
	return scanTransaction(s.q.QueryRow(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE id = $1 AND user_id = $2 AND type = $3 AND status = $4
	`, id, userID, typ, status))
}

func (s *Postgres) HasActiveDeposit(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM transactions
			WHERE user_id = $1 AND type = $2 AND status = $3
		)
	`, userID, domain.TransactionDeposit, domain.StatusCreated).Scan(&exists)
	return exists, err
}

func (s *Postgres) UpdateTransactionStatus(ctx context.Context, id int64, from, to domain.TransactionStatus) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE transactions SET status = $3 WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) DeleteTransaction(ctx context.Context, id int64, status domain.TransactionStatus) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND status = $2`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) ListUserTransactions(ctx context.Context, userID int64, typ domain.TransactionType) ([]domain.Transaction, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE user_id = $1 AND ($2 = '' OR type = $2)
		ORDER BY created_at DESC
	`, userID, string(typ))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (s *Postgres) SearchTransactions(ctx context.Context, f TransactionFilter) ([]domain.Transaction, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE ($1::bigint IS NULL OR user_id = $1)
		  AND ($2 = '' OR status = $2)
		  AND ($3::numeric IS NULL OR amount > $3)
		ORDER BY created_at DESC
	`, f.UserID, string(f.Status), f.MinAmount)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func scanTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var res []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *t)
	}
	return res, rows.Err()
}

func (s *Postgres) SumTransactions(ctx context.Context, userID int64, typ domain.TransactionType) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := s.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE user_id = $1 AND type = $2
	`, userID, typ).Scan(&sum)
	return sum, err
}

func (s *Postgres) GetPackage(ctx context.Context, id int64) (*domain.Package, error) {
	var p domain.Package
	err := s.q.QueryRow(ctx, `
		SELECT id, name, price, referral_bonus, earnings_limit FROM packages WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Price, &p.ReferralBonus, &p.EarningsLimit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Postgres) ListPackages(ctx context.Context) ([]domain.Package, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, name, price, referral_bonus, earnings_limit FROM packages ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Package
	for rows.Next() {
		var p domain.Package
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.ReferralBonus, &p.EarningsLimit); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

const itemColumns = `id, name, type, price, multiplier, bonus, duration`

func scanStoreItem(row pgx.Row) (*domain.StoreItem, error) {
	var it domain.StoreItem
	err := row.Scan(&it.ID, &it.Name, &it.Type, &it.Price, &it.Multiplier, &it.BonusPercent, &it.DurationHours)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

func (s *Postgres) GetStoreItem(ctx context.Context, id int64) (*domain.StoreItem, error) {
	return scanStoreItem(s.q.QueryRow(ctx, `SELECT `+itemColumns+` FROM store_items WHERE id = $1`, id))
}

func (s *Postgres) ListStoreItems(ctx context.Context) ([]domain.StoreItem, error) {
	return s.listItems(ctx, `SELECT `+itemColumns+` FROM store_items ORDER BY id`)
}

func (s *Postgres) ListSkins(ctx context.Context) ([]domain.StoreItem, error) {
	return s.listItems(ctx, `SELECT `+itemColumns+` FROM store_items WHERE type = 'SKIN' ORDER BY id`)
}

func (s *Postgres) listItems(ctx context.Context, sql string) ([]domain.StoreItem, error) {
	rows, err := s.q.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.StoreItem
	for rows.Next() {
		it, err := scanStoreItem(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *it)
	}
	return res, rows.Err()
}

func (s *Postgres) CreatePurchase(ctx context.Context, p *domain.UserPurchase) error {
	return s.q.QueryRow(ctx, `
		INSERT INTO user_purchases (user_id, item_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, purchased_at
	`, p.UserID, p.ItemID, p.ExpiresAt).Scan(&p.ID, &p.PurchasedAt)
}

func (s *Postgres) HasPurchaseOfType(ctx context.Context, userID int64, typ domain.StoreItemType) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM user_purchases p
			JOIN store_items i ON i.id = p.item_id
			WHERE p.user_id = $1 AND i.type = $2
		)
	`, userID, typ).Scan(&exists)
	return exists, err
}

func (s *Postgres) ActivePurchaseOfType(ctx context.Context, userID int64, typ domain.StoreItemType, now time.Time) (*domain.UserPurchase, error) {
	row := s.q.QueryRow(ctx, `
		SELECT p.id, p.user_id, p.item_id, p.purchased_at, p.expires_at, `+prefixedItemColumns("i")+`
		FROM user_purchases p
		JOIN store_items i ON i.id = p.item_id
		WHERE p.user_id = $1 AND i.type = $2 AND p.expires_at > $3
		ORDER BY p.expires_at DESC
		LIMIT 1
	`, userID, typ, now)

	var (
		p  domain.UserPurchase
		it domain.StoreItem
	)
	err := row.Scan(
		&p.ID, &p.UserID, &p.ItemID, &p.PurchasedAt, &p.ExpiresAt,
		&it.ID, &it.Name, &it.Type, &it.Price, &it.Multiplier, &it.BonusPercent, &it.DurationHours,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.Item = &it
	return &p, nil
}

func prefixedItemColumns(alias string) string {
	return alias + `.id, ` + alias + `.name, ` + alias + `.type, ` + alias + `.price, ` +
		alias + `.multiplier, ` + alias + `.bonus, ` + alias + `.duration`
}

func (s *Postgres) DeleteExpiredPurchases(ctx context.Context, userID int64, now time.Time) (int, error) {
	tag, err := s.q.Exec(ctx, `
		DELETE FROM user_purchases WHERE user_id = $1 AND expires_at < $2
	`, userID, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Postgres) AdminStats(ctx context.Context) (*AdminStats, error) {
	stats := &AdminStats{}

	err := s.q.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'deposit' AND status = 'approved'), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'withdrawal' AND status = 'approved'), 0),
			COUNT(*) FILTER (WHERE status = 'pending')
		FROM transactions
	`).Scan(&stats.TotalApprovedDeposits, &stats.TotalApprovedWithdrawals, &stats.PendingTransactions)
	if err != nil {
		return nil, err
	}

	if err := s.q.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(balance), 0),
		       COUNT(*) FILTER (WHERE referrer_id IS NOT NULL AND package_id IS NOT NULL)
		FROM users
	`).Scan(&stats.TotalUsers, &stats.TotalUserBalance, &stats.UsersWithReferralsAndPkg); err != nil {
		return nil, err
	}

	if err := s.q.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(i.price), 0)
		FROM user_purchases p
		JOIN store_items i ON i.id = p.item_id
	`).Scan(&stats.TotalStorePurchases, &stats.TotalSpentInStore); err != nil {
		return nil, err
	}

	rows, err := s.q.Query(ctx, `
		SELECT t.user_id, u.login, SUM(t.amount) AS total
		FROM transactions t
		JOIN users u ON u.id = t.user_id
		WHERE t.type = 'referral_bonus'
		GROUP BY t.user_id, u.login
		ORDER BY total DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var r ReferrerEarnings
		if err := rows.Scan(&r.UserID, &r.Login, &r.Total); err != nil {
			return nil, err
		}
		stats.TopReferrers = append(stats.TopReferrers, r)
	}
	return stats, rows.Err()
}
