package invest

import (
	"context"

	"monety/internal/pix"
)

// Deposit credits a simulated PIX deposit. Deposits are principal and do not
// count toward total_earned.
func (s *Service) Deposit(ctx context.Context, in DepositInput) (DepositResult, error) {
	if err := validatePositive(in.Amount); err != nil {
		return DepositResult{}, err
	}
	if in.Amount.LessThan(MinDeposit) {
		return DepositResult{}, ErrBelowMinimumDeposit
	}

	var out DepositResult
	err := s.update(ctx, func(tx Tx, l *Ledger) error {
		if in.IdempotencyKey != "" {
			if err := tx.ClaimIdempotency(ctx, in.UserID, in.IdempotencyKey, "deposit"); err != nil {
				return err
			}
		}
		if _, err := tx.LockUser(ctx, in.UserID); err != nil {
			return err
		}
		u, err := l.Deposit(ctx, in.UserID, in.Amount)
		if err != nil {
			return err
		}
		t, err := l.Record(ctx, in.UserID, TxDeposit, in.Amount, zero, StatusCompleted, "Depósito via PIX")
		if err != nil {
			return err
		}
		out = DepositResult{TransactionID: t.ID, Amount: in.Amount, Balance: u.Balance}
		return nil
	})
	if err != nil {
		return DepositResult{}, err
	}
	code, err := pix.Payload(s.pix, in.Amount, out.TransactionID)
	if err != nil {
		s.log.Warn("pix payload failed", "transaction_id", out.TransactionID, "err", err)
	}
	out.PixCode = code
	s.log.Info("deposit credited", "user_id", in.UserID, "transaction_id", out.TransactionID, "amount", out.Amount.StringFixed(2))
	return out, nil
}
