package invest

import (
	"context"
	"fmt"
	"strings"
)

var pixKeyTypes = map[string]struct{}{
	"cpf":    {},
	"cnpj":   {},
	"email":  {},
	"phone":  {},
	"random": {},
}

// Withdraw debits amount plus the 10% fee and leaves a pending withdrawal.
// total_withdrawn grows by the net amount only.
func (s *Service) Withdraw(ctx context.Context, in WithdrawInput) (WithdrawalResult, error) {
	now := s.now()
	if !WithdrawalWindowOpen(now) {
		return WithdrawalResult{}, ErrOutsideWithdrawalWindow
	}
	if in.Amount.LessThan(MinWithdrawal) {
		return WithdrawalResult{}, ErrBelowMinimum
	}
	if err := validatePositive(in.Amount); err != nil {
		return WithdrawalResult{}, err
	}
	key := strings.TrimSpace(in.PixKey)
	if key == "" {
		return WithdrawalResult{}, Validation("pix_key is required")
	}
	keyType := strings.ToLower(strings.TrimSpace(in.PixKeyType))
	if _, ok := pixKeyTypes[keyType]; !ok {
		return WithdrawalResult{}, Validation("pix_key_type must be one of cpf, cnpj, email, phone, random")
	}

	fee := WithdrawalFee(in.Amount)
	total := in.Amount.Add(fee)
	out := WithdrawalResult{Amount: in.Amount, Fee: fee, Total: total, Status: StatusPending}
	err := s.update(ctx, func(tx Tx, l *Ledger) error {
		if in.IdempotencyKey != "" {
			if err := tx.ClaimIdempotency(ctx, in.UserID, in.IdempotencyKey, "withdrawal"); err != nil {
				return err
			}
		}
		u, err := l.Debit(ctx, in.UserID, total, in.Amount)
		if err != nil {
			return err
		}
		t, err := l.Record(ctx, in.UserID, TxWithdrawal, in.Amount, fee, StatusPending, fmt.Sprintf("Saque via PIX (%s: %s)", keyType, key))
		if err != nil {
			return err
		}
		out.TransactionID = t.ID
		out.Balance = u.Balance
		return nil
	})
	if err != nil {
		return WithdrawalResult{}, err
	}
	s.log.Info("withdrawal requested",
		"user_id", in.UserID,
		"transaction_id", out.TransactionID,
		"amount", out.Amount.StringFixed(2),
		"fee", out.Fee.StringFixed(2),
	)
	return out, nil
}
