package invest

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger applies balance mutations inside one store transaction. Callers pair
// every Credit, Deposit or Debit with exactly one Record.
type Ledger struct {
	tx       Tx
	now      time.Time
	balances map[string]decimal.Decimal
	events   []BalanceEvent
}

func NewLedger(tx Tx, now time.Time) *Ledger {
	return &Ledger{tx: tx, now: now, balances: map[string]decimal.Decimal{}}
}

// Credit adds an earning: balance and total_earned both grow.
func (l *Ledger) Credit(ctx context.Context, userID string, amount decimal.Decimal) (User, error) {
	if !amount.IsPositive() {
		return User{}, Validation("credit amount must be > 0")
	}
	u, err := l.tx.ApplyBalance(ctx, userID, BalanceDelta{Balance: amount, Earned: amount})
	if err != nil {
		return User{}, err
	}
	l.balances[userID] = u.Balance
	return u, nil
}

// Deposit adds principal: balance grows, total_earned does not.
func (l *Ledger) Deposit(ctx context.Context, userID string, amount decimal.Decimal) (User, error) {
	if !amount.IsPositive() {
		return User{}, Validation("deposit amount must be > 0")
	}
	u, err := l.tx.ApplyBalance(ctx, userID, BalanceDelta{Balance: amount})
	if err != nil {
		return User{}, err
	}
	l.balances[userID] = u.Balance
	return u, nil
}

// Debit removes amount from the balance and adds withdrawn to
// total_withdrawn. The balance is checked under the row lock.
func (l *Ledger) Debit(ctx context.Context, userID string, amount, withdrawn decimal.Decimal) (User, error) {
	if !amount.IsPositive() {
		return User{}, Validation("debit amount must be > 0")
	}
	u, err := l.tx.LockUser(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if u.Balance.LessThan(amount) {
		return User{}, ErrInsufficientBalance
	}
	u, err = l.tx.ApplyBalance(ctx, userID, BalanceDelta{Balance: amount.Neg(), Withdrawn: withdrawn})
	if err != nil {
		return User{}, err
	}
	l.balances[userID] = u.Balance
	return u, nil
}

func (l *Ledger) Record(ctx context.Context, userID string, typ TxType, amount, fee decimal.Decimal, status TxStatus, description string) (Transaction, error) {
	t := Transaction{
		ID:          newID(),
		UserID:      userID,
		Type:        typ,
		Amount:      amount,
		Fee:         fee,
		Status:      status,
		Description: description,
		CreatedAt:   l.now,
	}
	if err := l.tx.InsertTransaction(ctx, t); err != nil {
		return Transaction{}, err
	}
	l.events = append(l.events, BalanceEvent{
		UserID:        userID,
		TransactionID: t.ID,
		Type:          typ,
		Amount:        amount,
		Balance:       l.balances[userID],
		At:            l.now,
	})
	return t, nil
}

// Events returns what was recorded so far. Publish them only after commit.
func (l *Ledger) Events() []BalanceEvent {
	return l.events
}

type BalanceEvent struct {
	UserID        string          `json:"user_id"`
	TransactionID string          `json:"transaction_id"`
	Type          TxType          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"balance"`
	At            time.Time       `json:"at"`
}

// Notifier receives balance events after their transaction commits.
type Notifier interface {
	Publish(ctx context.Context, ev BalanceEvent)
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, BalanceEvent) {}

type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) Publish(ctx context.Context, ev BalanceEvent) {
	n.Log.InfoContext(ctx, "balance changed",
		"user_id", ev.UserID,
		"type", string(ev.Type),
		"amount", ev.Amount.StringFixed(2),
		"balance", ev.Balance.StringFixed(2),
		"transaction_id", ev.TransactionID,
	)
}

// ReconstructBalance replays a user's transactions. Pending withdrawals have
// already left the balance; failed rows never touched it.
func ReconstructBalance(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		switch t.Type {
		case TxWithdrawal:
			if t.Status != StatusFailed {
				total = total.Sub(t.Amount).Sub(t.Fee)
			}
		case TxInvestment:
			if t.Status == StatusCompleted {
				total = total.Sub(t.Amount)
			}
		default:
			if t.Status == StatusCompleted {
				total = total.Add(t.Amount)
			}
		}
	}
	return total
}
