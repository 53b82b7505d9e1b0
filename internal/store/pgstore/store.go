// Package pgstore implements the ledger store on PostgreSQL.
package pgstore

import (
	"context"
	"time"

	"monety/internal/invest"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	maxAttempts   = 8
	firstBackoff  = 75 * time.Millisecond
	maxBackoff    = 1200 * time.Millisecond
	userColumns   = `id, email, password_hash, balance, total_earned, total_withdrawn, invite_code, invited_by, created_at`
	investColumns = `id, user_id, product_id, product_name, amount, daily_return, total_return, duration_days, days_remaining, status, commissions_settled, last_payout_date, created_at`
	txColumns     = `id, user_id, type, amount, fee, status, description, created_at`
)

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

var (
	_ invest.Store = (*Store)(nil)
	_ invest.Tx    = (*pgTx)(nil)
)

// WithinTx runs fn in a serializable transaction and retries serialization
// failures and deadlocks with backoff.
func (s *Store) WithinTx(ctx context.Context, fn func(tx invest.Tx) error) error {
	retryDelay := firstBackoff
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := s.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			return invest.ErrTxConflict
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return err
		}
		if retryDelay < maxBackoff {
			retryDelay *= 2
		}
	}
	return invest.ErrTxConflict
}

func (s *Store) attempt(ctx context.Context, fn func(tx invest.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx)
	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(err, "commit")
	}
	return nil
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// mapError turns constraint violations into domain errors and wraps
// everything else with the failing step.
func mapError(err error, step string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			switch pgErr.ConstraintName {
			case "users_email_key":
				return invest.ErrEmailTaken
			case "users_invite_code_key":
				return invest.ErrInviteCodeTaken
			case "checkins_user_date_key":
				return invest.ErrAlreadyCheckedInToday
			case "roulette_spins_user_date_key":
				return invest.ErrAlreadySpunToday
			case "idempotency_keys_pkey":
				return invest.ErrDuplicateRequest
			}
		case "23514":
			if pgErr.ConstraintName == "users_balance_check" {
				return invest.ErrInsufficientBalance
			}
		case "40001", "40P01":
			return err
		}
	}
	return errors.Wrap(err, step)
}

// civilDay reads a DATE column back as midnight in the civil zone.
func civilDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, invest.CivilZone)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (invest.User, error) {
	var u invest.User
	var invitedBy *string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Balance, &u.TotalEarned, &u.TotalWithdrawn, &u.InviteCode, &invitedBy, &u.CreatedAt)
	if err != nil {
		return invest.User{}, err
	}
	if invitedBy != nil {
		u.InvitedBy = *invitedBy
	}
	return u, nil
}

func scanInvestment(row rowScanner) (invest.Investment, error) {
	var inv invest.Investment
	var status string
	err := row.Scan(&inv.ID, &inv.UserID, &inv.ProductID, &inv.ProductName, &inv.Amount, &inv.DailyReturn, &inv.TotalReturn,
		&inv.DurationDays, &inv.DaysRemaining, &status, &inv.CommissionsSettled, &inv.LastPayoutDate, &inv.CreatedAt)
	if err != nil {
		return invest.Investment{}, err
	}
	inv.Status = invest.InvestmentStatus(status)
	inv.LastPayoutDate = civilDay(inv.LastPayoutDate)
	return inv, nil
}

func scanTransaction(row rowScanner) (invest.Transaction, error) {
	var t invest.Transaction
	var typ, status string
	if err := row.Scan(&t.ID, &t.UserID, &typ, &t.Amount, &t.Fee, &status, &t.Description, &t.CreatedAt); err != nil {
		return invest.Transaction{}, err
	}
	t.Type = invest.TxType(typ)
	t.Status = invest.TxStatus(status)
	return t, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (invest.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM monety.users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return invest.User{}, invest.ErrUserNotFound
	}
	return u, mapError(err, "select user")
}

func (s *Store) UserByEmail(ctx context.Context, email string) (invest.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM monety.users WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return invest.User{}, invest.ErrUserNotFound
	}
	return u, mapError(err, "select user by email")
}

func (s *Store) ListActiveProducts(ctx context.Context) ([]invest.Product, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, price, daily_return, duration_days, total_return, image_url, tier, active, created_at
		FROM monety.products
		WHERE active
		ORDER BY price ASC, id ASC
	`)
	if err != nil {
		return nil, mapError(err, "list products")
	}
	defer rows.Close()
	out := []invest.Product{}
	for rows.Next() {
		var p invest.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.DailyReturn, &p.DurationDays, &p.TotalReturn, &p.ImageURL, &p.Tier, &p.Active, &p.CreatedAt); err != nil {
			return nil, mapError(err, "scan product")
		}
		out = append(out, p)
	}
	return out, mapError(rows.Err(), "list products")
}

func (s *Store) CountProducts(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT COUNT(1) FROM monety.products`).Scan(&n)
	return n, mapError(err, "count products")
}

func (s *Store) queryInvestments(ctx context.Context, step, sql string, args ...any) ([]invest.Investment, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, step)
	}
	defer rows.Close()
	out := []invest.Investment{}
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, mapError(err, step)
		}
		out = append(out, inv)
	}
	return out, mapError(rows.Err(), step)
}

func (s *Store) ListActiveInvestments(ctx context.Context, userID string) ([]invest.Investment, error) {
	return s.queryInvestments(ctx, "list investments", `
		SELECT `+investColumns+`
		FROM monety.investments
		WHERE user_id = $1 AND status = 'active'
		ORDER BY created_at DESC
	`, userID)
}

func (s *Store) UnsettledInvestments(ctx context.Context, createdBefore time.Time, limit int) ([]invest.Investment, error) {
	return s.queryInvestments(ctx, "list unsettled investments", `
		SELECT `+investColumns+`
		FROM monety.investments
		WHERE NOT commissions_settled AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`, createdBefore, limit)
}

func (s *Store) DueInvestments(ctx context.Context, day time.Time, limit int) ([]invest.Investment, error) {
	return s.queryInvestments(ctx, "list due investments", `
		SELECT `+investColumns+`
		FROM monety.investments
		WHERE status = 'active' AND days_remaining > 0 AND last_payout_date < $1
		ORDER BY created_at ASC
		LIMIT $2
	`, invest.CivilDate(day), limit)
}

func (s *Store) ListTransactions(ctx context.Context, userID string, limit int) ([]invest.Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+txColumns+`
		FROM monety.transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, mapError(err, "list transactions")
	}
	defer rows.Close()
	out := []invest.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, mapError(err, "scan transaction")
		}
		out = append(out, t)
	}
	return out, mapError(rows.Err(), "list transactions")
}

func (s *Store) LastCheckin(ctx context.Context, userID string) (invest.Checkin, bool, error) {
	var c invest.Checkin
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, day_number, reward, checkin_date, created_at
		FROM monety.checkins
		WHERE user_id = $1
		ORDER BY checkin_date DESC
		LIMIT 1
	`, userID).Scan(&c.ID, &c.UserID, &c.DayNumber, &c.Reward, &c.CheckinDate, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return invest.Checkin{}, false, nil
	}
	if err != nil {
		return invest.Checkin{}, false, mapError(err, "select last checkin")
	}
	c.CheckinDate = civilDay(c.CheckinDate)
	return c, true, nil
}

func (s *Store) HasSpin(ctx context.Context, userID string, day time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM monety.roulette_spins WHERE user_id = $1 AND spin_date = $2)
	`, userID, invest.CivilDate(day)).Scan(&exists)
	return exists, mapError(err, "select spin")
}

func (s *Store) SumTransactions(ctx context.Context, userID string, types []invest.TxType, from, to time.Time) (decimal.Decimal, error) {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	var total decimal.Decimal
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM monety.transactions
		WHERE user_id = $1
		  AND status = 'completed'
		  AND type = ANY($2)
		  AND created_at >= $3 AND created_at < $4
	`, userID, names, from, to).Scan(&total)
	return total, mapError(err, "sum transactions")
}

func (s *Store) CountInvitesBetween(ctx context.Context, inviterID string, from, to time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(1)
		FROM monety.users
		WHERE invited_by = $1 AND created_at >= $2 AND created_at < $3
	`, inviterID, from, to).Scan(&n)
	return n, mapError(err, "count invites")
}

func (s *Store) DirectInvitees(ctx context.Context, userID string) ([]invest.Member, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, email, created_at
		FROM monety.users
		WHERE invited_by = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, mapError(err, "list invitees")
	}
	defer rows.Close()
	out := []invest.Member{}
	for rows.Next() {
		var m invest.Member
		if err := rows.Scan(&m.ID, &m.Email, &m.CreatedAt); err != nil {
			return nil, mapError(err, "scan invitee")
		}
		out = append(out, m)
	}
	return out, mapError(rows.Err(), "list invitees")
}

func (s *Store) CommissionTotal(ctx context.Context, userID string, level int) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM monety.commissions
		WHERE user_id = $1 AND level = $2
	`, userID, level).Scan(&total)
	return total, mapError(err, "sum commissions")
}
