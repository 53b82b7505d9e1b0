package memstore

import (
	"context"
	"fmt"

	"monety/internal/invest"
)

var (
	_ invest.Store = (*Store)(nil)
	_ invest.Tx    = (*memTx)(nil)
)

type memTx struct {
	st *state
}

func (t *memTx) LockUser(_ context.Context, id string) (invest.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return invest.User{}, invest.ErrUserNotFound
	}
	return u, nil
}

func (t *memTx) InviterOf(_ context.Context, userID string) (string, bool, error) {
	u, ok := t.st.users[userID]
	if !ok {
		return "", false, invest.ErrUserNotFound
	}
	if u.InvitedBy == "" {
		return "", false, nil
	}
	return u.InvitedBy, true, nil
}

func (t *memTx) UserIDByInviteCode(_ context.Context, code string) (string, error) {
	id, ok := t.st.codes[code]
	if !ok {
		return "", invest.ErrInviteCodeNotFound
	}
	return id, nil
}

func (t *memTx) InsertUser(_ context.Context, u invest.User) error {
	if _, ok := t.st.emails[u.Email]; ok {
		return invest.ErrEmailTaken
	}
	if _, ok := t.st.codes[u.InviteCode]; ok {
		return invest.ErrInviteCodeTaken
	}
	if u.InvitedBy == u.ID {
		return invest.Validation("a user cannot invite themselves")
	}
	t.st.users[u.ID] = u
	t.st.emails[u.Email] = u.ID
	t.st.codes[u.InviteCode] = u.ID
	return nil
}

func (t *memTx) ApplyBalance(_ context.Context, userID string, d invest.BalanceDelta) (invest.User, error) {
	u, ok := t.st.users[userID]
	if !ok {
		return invest.User{}, invest.ErrUserNotFound
	}
	next := u.Balance.Add(d.Balance)
	if next.IsNegative() {
		return invest.User{}, invest.ErrInsufficientBalance
	}
	u.Balance = next
	u.TotalEarned = u.TotalEarned.Add(d.Earned)
	u.TotalWithdrawn = u.TotalWithdrawn.Add(d.Withdrawn)
	t.st.users[userID] = u
	return u, nil
}

func (t *memTx) InsertTransaction(_ context.Context, tr invest.Transaction) error {
	t.st.txs = append(t.st.txs, tr)
	return nil
}

func (t *memTx) ProductByID(_ context.Context, id string) (invest.Product, error) {
	p, ok := t.st.products[id]
	if !ok {
		return invest.Product{}, invest.ErrProductNotFound
	}
	return p, nil
}

func (t *memTx) InsertProduct(_ context.Context, p invest.Product) error {
	if _, ok := t.st.products[p.ID]; ok {
		return fmt.Errorf("product %s already exists", p.ID)
	}
	t.st.products[p.ID] = p
	return nil
}

func (t *memTx) InsertInvestment(_ context.Context, inv invest.Investment) error {
	t.st.investments[inv.ID] = inv
	t.st.invOrder = append(t.st.invOrder, inv.ID)
	return nil
}

func (t *memTx) LockInvestment(_ context.Context, id string) (invest.Investment, error) {
	inv, ok := t.st.investments[id]
	if !ok {
		return invest.Investment{}, invest.ErrInvestmentNotFound
	}
	return inv, nil
}

func (t *memTx) UpdateInvestment(_ context.Context, inv invest.Investment) error {
	if _, ok := t.st.investments[inv.ID]; !ok {
		return invest.ErrInvestmentNotFound
	}
	t.st.investments[inv.ID] = inv
	return nil
}

func (t *memTx) InsertCommission(_ context.Context, c invest.Commission) (bool, error) {
	key := fmt.Sprintf("%s/%d", c.InvestmentID, c.Level)
	if _, ok := t.st.commKeys[key]; ok {
		return false, nil
	}
	t.st.commKeys[key] = struct{}{}
	t.st.commissions = append(t.st.commissions, c)
	return true, nil
}

func (t *memTx) LastCheckinDay(_ context.Context, userID string) (int, error) {
	c, ok := lastCheckin(t.st, userID)
	if !ok {
		return 0, nil
	}
	return c.DayNumber, nil
}

func (t *memTx) InsertCheckin(_ context.Context, c invest.Checkin) error {
	key := dayKey(c.UserID, c.CheckinDate)
	if _, ok := t.st.checkinKeys[key]; ok {
		return invest.ErrAlreadyCheckedInToday
	}
	t.st.checkinKeys[key] = struct{}{}
	t.st.checkins = append(t.st.checkins, c)
	return nil
}

func (t *memTx) InsertRouletteSpin(_ context.Context, s invest.RouletteSpin) error {
	key := dayKey(s.UserID, s.SpinDate)
	if _, ok := t.st.spinKeys[key]; ok {
		return invest.ErrAlreadySpunToday
	}
	t.st.spinKeys[key] = struct{}{}
	t.st.spins = append(t.st.spins, s)
	return nil
}

func (t *memTx) ClaimIdempotency(_ context.Context, userID, key, action string) error {
	k := userID + "/" + key
	if _, ok := t.st.idem[k]; ok {
		return invest.ErrDuplicateRequest
	}
	t.st.idem[k] = action
	return nil
}
