package invest_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"monety/internal/invest"
	"monety/internal/store/memstore"

	"github.com/shopspring/decimal"
)

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hash:" + p, nil }

func (plainHasher) Compare(hash, p string) error {
	if hash != "hash:"+p {
		return errors.New("password mismatch")
	}
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func civil(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, invest.CivilZone)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type harness struct {
	svc   *invest.Service
	store *memstore.Store
	clock *fakeClock
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, memstore.New(), nil)
}

// newHarnessWith builds a service over backing, optionally wrapped by wrap.
func newHarnessWith(t *testing.T, backing *memstore.Store, wrap func(*memstore.Store) invest.Store, opts ...invest.Option) *harness {
	t.Helper()
	clock := &fakeClock{t: civil(2026, time.March, 10, 10, 0)}
	var store invest.Store = backing
	if wrap != nil {
		store = wrap(backing)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := invest.NewService(store, plainHasher{}, logger, append([]invest.Option{invest.WithClock(clock.Now)}, opts...)...)
	if err := svc.SeedProducts(context.Background()); err != nil {
		t.Fatalf("seed products: %v", err)
	}
	return &harness{svc: svc, store: backing, clock: clock}
}

func (h *harness) register(t *testing.T, email, inviteCode string) invest.User {
	t.Helper()
	u, err := h.svc.Register(context.Background(), invest.RegisterInput{
		Email:      email,
		Password:   "secret123",
		InviteCode: inviteCode,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u
}

// fund credits principal through the ledger so the transaction history stays
// consistent with the balance.
func (h *harness) fund(t *testing.T, userID string, amount decimal.Decimal) {
	t.Helper()
	err := h.store.WithinTx(context.Background(), func(tx invest.Tx) error {
		l := invest.NewLedger(tx, h.clock.Now())
		if _, err := l.Deposit(context.Background(), userID, amount); err != nil {
			return err
		}
		_, err := l.Record(context.Background(), userID, invest.TxDeposit, amount, decimal.Zero, invest.StatusCompleted, "test funding")
		return err
	})
	if err != nil {
		t.Fatalf("fund %s: %v", userID, err)
	}
}

func (h *harness) user(t *testing.T, id string) invest.User {
	t.Helper()
	u, err := h.store.UserByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load user %s: %v", id, err)
	}
	return u
}

func assertMoney(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s: got %s want %s", label, got.StringFixed(2), want)
	}
}

func assertBalanceReconstructs(t *testing.T, h *harness, userID string) {
	t.Helper()
	u := h.user(t, userID)
	got := invest.ReconstructBalance(h.store.Transactions(userID))
	if !got.Equal(u.Balance) {
		t.Fatalf("reconstructed balance %s != stored %s", got.StringFixed(2), u.Balance.StringFixed(2))
	}
	if u.Balance.IsNegative() {
		t.Fatalf("negative balance %s", u.Balance)
	}
}
