// Package memstore keeps the whole ledger in process memory. It backs the
// test suite and the MONETY_STORE=memory dev mode.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"monety/internal/invest"

	"github.com/shopspring/decimal"
)

type state struct {
	users       map[string]invest.User
	emails      map[string]string
	codes       map[string]string
	products    map[string]invest.Product
	investments map[string]invest.Investment
	invOrder    []string
	txs         []invest.Transaction
	commissions []invest.Commission
	commKeys    map[string]struct{}
	checkins    []invest.Checkin
	checkinKeys map[string]struct{}
	spins       []invest.RouletteSpin
	spinKeys    map[string]struct{}
	idem        map[string]string
}

func newState() *state {
	return &state{
		users:       map[string]invest.User{},
		emails:      map[string]string{},
		codes:       map[string]string{},
		products:    map[string]invest.Product{},
		investments: map[string]invest.Investment{},
		commKeys:    map[string]struct{}{},
		checkinKeys: map[string]struct{}{},
		spinKeys:    map[string]struct{}{},
		idem:        map[string]string{},
	}
}

func (s *state) clone() *state {
	c := &state{
		users:       make(map[string]invest.User, len(s.users)),
		emails:      make(map[string]string, len(s.emails)),
		codes:       make(map[string]string, len(s.codes)),
		products:    make(map[string]invest.Product, len(s.products)),
		investments: make(map[string]invest.Investment, len(s.investments)),
		invOrder:    append([]string(nil), s.invOrder...),
		txs:         append([]invest.Transaction(nil), s.txs...),
		commissions: append([]invest.Commission(nil), s.commissions...),
		commKeys:    make(map[string]struct{}, len(s.commKeys)),
		checkins:    append([]invest.Checkin(nil), s.checkins...),
		checkinKeys: make(map[string]struct{}, len(s.checkinKeys)),
		spins:       append([]invest.RouletteSpin(nil), s.spins...),
		spinKeys:    make(map[string]struct{}, len(s.spinKeys)),
		idem:        make(map[string]string, len(s.idem)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.emails {
		c.emails[k] = v
	}
	for k, v := range s.codes {
		c.codes[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.investments {
		c.investments[k] = v
	}
	for k := range s.commKeys {
		c.commKeys[k] = struct{}{}
	}
	for k := range s.checkinKeys {
		c.checkinKeys[k] = struct{}{}
	}
	for k := range s.spinKeys {
		c.spinKeys[k] = struct{}{}
	}
	for k, v := range s.idem {
		c.idem[k] = v
	}
	return c
}

// Store serialises transactions under one lock. A transaction works on a
// copy of the state that replaces the live state only when fn succeeds.
type Store struct {
	mu sync.RWMutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx invest.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(&memTx{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func dayKey(id string, day time.Time) string {
	return id + "/" + invest.CivilDate(day).Format("2006-01-02")
}

func (s *Store) UserByID(_ context.Context, id string) (invest.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.st.users[id]
	if !ok {
		return invest.User{}, invest.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (invest.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.st.emails[email]
	if !ok {
		return invest.User{}, invest.ErrUserNotFound
	}
	return s.st.users[id], nil
}

func (s *Store) ListActiveProducts(_ context.Context) ([]invest.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]invest.Product, 0, len(s.st.products))
	for _, p := range s.st.products {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Price.Equal(out[j].Price) {
			return out[i].ID < out[j].ID
		}
		return out[i].Price.LessThan(out[j].Price)
	})
	return out, nil
}

func (s *Store) CountProducts(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.st.products), nil
}

func (s *Store) ListActiveInvestments(_ context.Context, userID string) ([]invest.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []invest.Investment{}
	for i := len(s.st.invOrder) - 1; i >= 0; i-- {
		inv := s.st.investments[s.st.invOrder[i]]
		if inv.UserID == userID && inv.Status == invest.InvestmentActive {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (s *Store) ListTransactions(_ context.Context, userID string, limit int) ([]invest.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []invest.Transaction{}
	for i := len(s.st.txs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.st.txs[i].UserID == userID {
			out = append(out, s.st.txs[i])
		}
	}
	return out, nil
}

func (s *Store) LastCheckin(_ context.Context, userID string) (invest.Checkin, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := lastCheckin(s.st, userID)
	return c, ok, nil
}

func lastCheckin(st *state, userID string) (invest.Checkin, bool) {
	var last invest.Checkin
	found := false
	for _, c := range st.checkins {
		if c.UserID != userID {
			continue
		}
		if !found || !c.CheckinDate.Before(last.CheckinDate) {
			last = c
			found = true
		}
	}
	return last, found
}

func (s *Store) HasSpin(_ context.Context, userID string, day time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.st.spinKeys[dayKey(userID, day)]
	return ok, nil
}

func (s *Store) SumTransactions(_ context.Context, userID string, types []invest.TxType, from, to time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[invest.TxType]struct{}, len(types))
	for _, t := range types {
		wanted[t] = struct{}{}
	}
	total := decimal.Zero
	for _, t := range s.st.txs {
		if t.UserID != userID || t.Status != invest.StatusCompleted {
			continue
		}
		if _, ok := wanted[t.Type]; !ok {
			continue
		}
		if t.CreatedAt.Before(from) || !t.CreatedAt.Before(to) {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total, nil
}

func (s *Store) CountInvitesBetween(_ context.Context, inviterID string, from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.st.users {
		if u.InvitedBy == inviterID && !u.CreatedAt.Before(from) && u.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (s *Store) DirectInvitees(_ context.Context, userID string) ([]invest.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []invest.Member{}
	for _, u := range s.st.users {
		if u.InvitedBy == userID {
			out = append(out, invest.Member{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Email < out[j].Email
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CommissionTotal(_ context.Context, userID string, level int) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, c := range s.st.commissions {
		if c.UserID == userID && c.Level == level {
			total = total.Add(c.Amount)
		}
	}
	return total, nil
}

func (s *Store) UnsettledInvestments(_ context.Context, createdBefore time.Time, limit int) ([]invest.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []invest.Investment{}
	for _, id := range s.st.invOrder {
		inv := s.st.investments[id]
		if !inv.CommissionsSettled && inv.CreatedAt.Before(createdBefore) {
			out = append(out, inv)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Store) DueInvestments(_ context.Context, day time.Time, limit int) ([]invest.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	day = invest.CivilDate(day)
	out := []invest.Investment{}
	for _, id := range s.st.invOrder {
		inv := s.st.investments[id]
		if inv.Status == invest.InvestmentActive && inv.DaysRemaining > 0 && inv.LastPayoutDate.Before(day) {
			out = append(out, inv)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// Transactions returns every recorded transaction of userID in insertion
// order.
func (s *Store) Transactions(userID string) []invest.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []invest.Transaction{}
	for _, t := range s.st.txs {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

func (s *Store) Commissions() []invest.Commission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]invest.Commission(nil), s.st.commissions...)
}
