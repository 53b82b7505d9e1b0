package invest

import (
	"context"
	"strings"
)

// Purchase buys a product with the user's balance and then pays the
// referral cascade. The purchase commits before the cascade starts: a
// *CascadeError comes back together with a valid result.
func (s *Service) Purchase(ctx context.Context, in PurchaseInput) (PurchaseResult, error) {
	productID := strings.TrimSpace(in.ProductID)
	if productID == "" {
		return PurchaseResult{}, Validation("product_id is required")
	}

	var out PurchaseResult
	err := s.update(ctx, func(tx Tx, l *Ledger) error {
		if in.IdempotencyKey != "" {
			if err := tx.ClaimIdempotency(ctx, in.UserID, in.IdempotencyKey, "purchase"); err != nil {
				return err
			}
		}
		p, err := tx.ProductByID(ctx, productID)
		if err != nil {
			return err
		}
		if !p.Active {
			return ErrProductNotFound
		}
		u, err := l.Debit(ctx, in.UserID, p.Price, zero)
		if err != nil {
			return err
		}
		inv := Investment{
			ID:             newID(),
			UserID:         in.UserID,
			ProductID:      p.ID,
			ProductName:    p.Name,
			Amount:         p.Price,
			DailyReturn:    p.DailyReturn,
			TotalReturn:    p.TotalReturn,
			DurationDays:   p.DurationDays,
			DaysRemaining:  p.DurationDays,
			Status:         InvestmentActive,
			LastPayoutDate: CivilDate(l.now),
			CreatedAt:      l.now,
		}
		if err := tx.InsertInvestment(ctx, inv); err != nil {
			return err
		}
		if _, err := l.Record(ctx, in.UserID, TxInvestment, p.Price, zero, StatusCompleted, "Investimento em "+p.Name); err != nil {
			return err
		}
		out.Investment = inv
		out.Balance = u.Balance
		return nil
	})
	if err != nil {
		return PurchaseResult{}, err
	}
	s.log.Info("investment purchased",
		"user_id", in.UserID,
		"investment_id", out.Investment.ID,
		"product_id", out.Investment.ProductID,
		"amount", out.Investment.Amount.StringFixed(2),
	)

	paid, err := s.runCascade(ctx, out.Investment)
	out.Commissions = paid
	if err != nil {
		s.log.Error("commission cascade incomplete", "investment_id", out.Investment.ID, "levels_paid", len(paid), "err", err)
		return out, err
	}
	out.Investment.CommissionsSettled = true
	return out, nil
}

func (s *Service) ListInvestments(ctx context.Context, userID string) ([]Investment, error) {
	return s.store.ListActiveInvestments(ctx, userID)
}
