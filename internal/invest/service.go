package invest

import (
	"context"
	"log/slog"
	mathrand "math/rand"
	"sync"
	"time"

	"monety/internal/pix"

	"github.com/shopspring/decimal"
)

// PasswordHasher is the credential collaborator used by Register and Login.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type Service struct {
	store  Store
	log    *slog.Logger
	hasher PasswordHasher
	notify Notifier
	now    Clock
	pix    pix.Merchant

	payoutBatch int

	mu   sync.Mutex
	rand *mathrand.Rand
}

type Option func(*Service)

func WithClock(c Clock) Option {
	return func(s *Service) { s.now = c }
}

func WithRandSource(src mathrand.Source) Option {
	return func(s *Service) { s.rand = mathrand.New(src) }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

func WithPixMerchant(m pix.Merchant) Option {
	return func(s *Service) { s.pix = m }
}

// WithPayoutBatchSize bounds how many due investments one payout query
// returns.
func WithPayoutBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.payoutBatch = n
		}
	}
}

func NewService(store Store, hasher PasswordHasher, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:  store,
		log:    logger,
		hasher: hasher,
		notify: nopNotifier{},
		now:    time.Now,
		pix:    pix.DefaultMerchant,

		payoutBatch: defaultPayoutBatch,
		rand:   mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) nextFloat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64()
}

func (s *Service) publish(ctx context.Context, events []BalanceEvent) {
	for _, ev := range events {
		s.notify.Publish(ctx, ev)
	}
}

// update runs fn in a store transaction with a fresh Ledger and publishes the
// ledger's events once the transaction commits.
func (s *Service) update(ctx context.Context, fn func(tx Tx, l *Ledger) error) error {
	now := s.now()
	var events []BalanceEvent
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		l := NewLedger(tx, now)
		if err := fn(tx, l); err != nil {
			return err
		}
		events = l.Events()
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events)
	return nil
}

type catalogEntry struct {
	ID    string
	Tier  string
	Price int64
}

var defaultCatalog = []catalogEntry{
	{"minerador-bronze", "Bronze", 30},
	{"minerador-prata", "Prata", 50},
	{"minerador-ouro", "Ouro", 100},
	{"minerador-platina", "Platina", 250},
	{"minerador-diamante", "Diamante", 500},
	{"minerador-esmeralda", "Esmeralda", 1000},
	{"minerador-elite", "Elite", 2500},
}

const (
	catalogDurationDays = 60
	catalogDailyRatePct = 20
)

// SeedProducts installs the default catalog when no product exists yet.
func (s *Service) SeedProducts(ctx context.Context) error {
	count, err := s.store.CountProducts(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	now := s.now()
	err = s.store.WithinTx(ctx, func(tx Tx) error {
		for _, row := range defaultCatalog {
			price := decimal.NewFromInt(row.Price)
			daily := CommissionAmount(price, decimal.NewFromInt(catalogDailyRatePct))
			p := Product{
				ID:           row.ID,
				Name:         "Minerador " + row.Tier,
				Price:        price,
				DailyReturn:  daily,
				DurationDays: catalogDurationDays,
				TotalReturn:  daily.Mul(decimal.NewFromInt(catalogDurationDays)),
				Tier:         row.Tier,
				Active:       true,
				CreatedAt:    now,
			}
			if err := tx.InsertProduct(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("product catalog seeded", "products", len(defaultCatalog))
	return nil
}

func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	return s.store.ListActiveProducts(ctx)
}
