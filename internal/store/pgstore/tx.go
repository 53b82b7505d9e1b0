package pgstore

import (
	"context"
	"strings"

	"monety/internal/invest"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockUser(ctx context.Context, id string) (invest.User, error) {
	u, err := scanUser(t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM monety.users WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return invest.User{}, invest.ErrUserNotFound
	}
	return u, mapError(err, "lock user")
}

func (t *pgTx) InviterOf(ctx context.Context, userID string) (string, bool, error) {
	var invitedBy *string
	err := t.tx.QueryRow(ctx, `SELECT invited_by FROM monety.users WHERE id = $1`, userID).Scan(&invitedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, invest.ErrUserNotFound
	}
	if err != nil {
		return "", false, mapError(err, "select inviter")
	}
	if invitedBy == nil {
		return "", false, nil
	}
	return *invitedBy, true, nil
}

func (t *pgTx) UserIDByInviteCode(ctx context.Context, code string) (string, error) {
	var id string
	err := t.tx.QueryRow(ctx, `SELECT id FROM monety.users WHERE invite_code = $1`, code).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", invest.ErrInviteCodeNotFound
	}
	return id, mapError(err, "select invite code")
}

func (t *pgTx) InsertUser(ctx context.Context, u invest.User) error {
	var invitedBy *string
	if u.InvitedBy != "" {
		invitedBy = &u.InvitedBy
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO monety.users (id, email, password_hash, balance, total_earned, total_withdrawn, invite_code, invited_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, u.ID, u.Email, u.PasswordHash, u.Balance, u.TotalEarned, u.TotalWithdrawn, u.InviteCode, invitedBy, u.CreatedAt)
	return mapError(err, "insert user")
}

func (t *pgTx) ApplyBalance(ctx context.Context, userID string, d invest.BalanceDelta) (invest.User, error) {
	u, err := scanUser(t.tx.QueryRow(ctx, `
		UPDATE monety.users
		SET balance = balance + $2,
		    total_earned = total_earned + $3,
		    total_withdrawn = total_withdrawn + $4
		WHERE id = $1
		RETURNING `+userColumns,
		userID, d.Balance, d.Earned, d.Withdrawn))
	if errors.Is(err, pgx.ErrNoRows) {
		return invest.User{}, invest.ErrUserNotFound
	}
	return u, mapError(err, "apply balance")
}

func (t *pgTx) InsertTransaction(ctx context.Context, tr invest.Transaction) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO monety.transactions (id, user_id, type, amount, fee, status, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, tr.ID, tr.UserID, string(tr.Type), tr.Amount, tr.Fee, string(tr.Status), tr.Description, tr.CreatedAt)
	return mapError(err, "insert transaction")
}

func (t *pgTx) ProductByID(ctx context.Context, id string) (invest.Product, error) {
	var p invest.Product
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, price, daily_return, duration_days, total_return, image_url, tier, active, created_at
		FROM monety.products
		WHERE id = $1
	`, strings.TrimSpace(id)).Scan(&p.ID, &p.Name, &p.Price, &p.DailyReturn, &p.DurationDays, &p.TotalReturn, &p.ImageURL, &p.Tier, &p.Active, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return invest.Product{}, invest.ErrProductNotFound
	}
	return p, mapError(err, "select product")
}

func (t *pgTx) InsertProduct(ctx context.Context, p invest.Product) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO monety.products (id, name, price, daily_return, duration_days, total_return, image_url, tier, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, p.ID, p.Name, p.Price, p.DailyReturn, p.DurationDays, p.TotalReturn, p.ImageURL, p.Tier, p.Active, p.CreatedAt)
	return mapError(err, "insert product")
}

func (t *pgTx) InsertInvestment(ctx context.Context, inv invest.Investment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO monety.investments (`+investColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, inv.ID, inv.UserID, inv.ProductID, inv.ProductName, inv.Amount, inv.DailyReturn, inv.TotalReturn,
		inv.DurationDays, inv.DaysRemaining, string(inv.Status), inv.CommissionsSettled, inv.LastPayoutDate, inv.CreatedAt)
	return mapError(err, "insert investment")
}

func (t *pgTx) LockInvestment(ctx context.Context, id string) (invest.Investment, error) {
	inv, err := scanInvestment(t.tx.QueryRow(ctx, `SELECT `+investColumns+` FROM monety.investments WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return invest.Investment{}, invest.ErrInvestmentNotFound
	}
	return inv, mapError(err, "lock investment")
}

func (t *pgTx) UpdateInvestment(ctx context.Context, inv invest.Investment) error {
	cmd, err := t.tx.Exec(ctx, `
		UPDATE monety.investments
		SET days_remaining = $2, status = $3, commissions_settled = $4, last_payout_date = $5
		WHERE id = $1
	`, inv.ID, inv.DaysRemaining, string(inv.Status), inv.CommissionsSettled, inv.LastPayoutDate)
	if err != nil {
		return mapError(err, "update investment")
	}
	if cmd.RowsAffected() == 0 {
		return invest.ErrInvestmentNotFound
	}
	return nil
}

func (t *pgTx) InsertCommission(ctx context.Context, c invest.Commission) (bool, error) {
	cmd, err := t.tx.Exec(ctx, `
		INSERT INTO monety.commissions (id, user_id, from_user_id, investment_id, level, amount, percentage, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (investment_id, level) DO NOTHING
	`, c.ID, c.UserID, c.FromUserID, c.InvestmentID, c.Level, c.Amount, c.Percentage, c.CreatedAt)
	if err != nil {
		return false, mapError(err, "insert commission")
	}
	return cmd.RowsAffected() == 1, nil
}

func (t *pgTx) LastCheckinDay(ctx context.Context, userID string) (int, error) {
	var day int
	err := t.tx.QueryRow(ctx, `
		SELECT day_number
		FROM monety.checkins
		WHERE user_id = $1
		ORDER BY checkin_date DESC
		LIMIT 1
	`, userID).Scan(&day)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return day, mapError(err, "select last checkin day")
}

func (t *pgTx) InsertCheckin(ctx context.Context, c invest.Checkin) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO monety.checkins (id, user_id, day_number, reward, checkin_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.UserID, c.DayNumber, c.Reward, invest.CivilDate(c.CheckinDate), c.CreatedAt)
	return mapError(err, "insert checkin")
}

func (t *pgTx) InsertRouletteSpin(ctx context.Context, s invest.RouletteSpin) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO monety.roulette_spins (id, user_id, prize, spin_date, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.UserID, s.Prize, invest.CivilDate(s.SpinDate), s.CreatedAt)
	return mapError(err, "insert roulette spin")
}

func (t *pgTx) ClaimIdempotency(ctx context.Context, userID, key, action string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return invest.Validation("idempotency key is required")
	}
	cmd, err := t.tx.Exec(ctx, `
		INSERT INTO monety.idempotency_keys (user_id, key, action, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, key) DO NOTHING
	`, userID, key, action)
	if err != nil {
		return mapError(err, "claim idempotency key")
	}
	if cmd.RowsAffected() == 0 {
		return invest.ErrDuplicateRequest
	}
	return nil
}
