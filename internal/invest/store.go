package invest

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the persistence contract. Reads run outside a transaction;
// every balance mutation runs inside WithinTx.
type Store interface {
	Reader
	// WithinTx runs fn in one serializable transaction. fn may run more than
	// once when the backend retries a conflict, so it must not have side
	// effects outside tx.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

type Reader interface {
	UserByID(ctx context.Context, id string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	ListActiveProducts(ctx context.Context) ([]Product, error)
	ListActiveInvestments(ctx context.Context, userID string) ([]Investment, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, error)
	LastCheckin(ctx context.Context, userID string) (Checkin, bool, error)
	HasSpin(ctx context.Context, userID string, day time.Time) (bool, error)
	// SumTransactions totals completed transactions of the given types.
	SumTransactions(ctx context.Context, userID string, types []TxType, from, to time.Time) (decimal.Decimal, error)
	CountInvitesBetween(ctx context.Context, inviterID string, from, to time.Time) (int, error)
	DirectInvitees(ctx context.Context, userID string) ([]Member, error)
	CommissionTotal(ctx context.Context, userID string, level int) (decimal.Decimal, error)
	UnsettledInvestments(ctx context.Context, createdBefore time.Time, limit int) ([]Investment, error)
	// DueInvestments lists active investments last paid before day.
	DueInvestments(ctx context.Context, day time.Time, limit int) ([]Investment, error)
	CountProducts(ctx context.Context) (int, error)
}

// Tx is the set of operations allowed inside one store transaction.
type Tx interface {
	// LockUser reads the user row and holds it until the transaction ends.
	LockUser(ctx context.Context, id string) (User, error)
	InviterOf(ctx context.Context, userID string) (string, bool, error)
	UserIDByInviteCode(ctx context.Context, code string) (string, error)
	InsertUser(ctx context.Context, u User) error
	ApplyBalance(ctx context.Context, userID string, d BalanceDelta) (User, error)
	InsertTransaction(ctx context.Context, t Transaction) error

	ProductByID(ctx context.Context, id string) (Product, error)
	InsertProduct(ctx context.Context, p Product) error

	InsertInvestment(ctx context.Context, inv Investment) error
	LockInvestment(ctx context.Context, id string) (Investment, error)
	UpdateInvestment(ctx context.Context, inv Investment) error

	// InsertCommission reports false when a commission for the same
	// investment and level already exists.
	InsertCommission(ctx context.Context, c Commission) (bool, error)

	LastCheckinDay(ctx context.Context, userID string) (int, error)
	InsertCheckin(ctx context.Context, c Checkin) error
	InsertRouletteSpin(ctx context.Context, s RouletteSpin) error

	ClaimIdempotency(ctx context.Context, userID, key, action string) error
}
