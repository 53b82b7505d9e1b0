package invest

import (
	"context"
	"fmt"
	"time"
)

// runCascade pays up to three referrer levels for inv. Each level commits in
// its own transaction; a level whose commission row already exists is
// skipped, so a cascade interrupted by a failure can be run again.
func (s *Service) runCascade(ctx context.Context, inv Investment) ([]Commission, error) {
	var paid []Commission
	current := inv.UserID
	for _, rate := range CommissionRates {
		var (
			referrer string
			found    bool
			credited bool
			c        Commission
		)
		err := s.update(ctx, func(tx Tx, l *Ledger) error {
			credited = false
			ref, ok, err := tx.InviterOf(ctx, current)
			if err != nil {
				return err
			}
			referrer, found = ref, ok
			if !ok {
				return markSettled(ctx, tx, inv.ID)
			}
			if _, err := tx.LockUser(ctx, ref); err != nil {
				return err
			}
			c = Commission{
				ID:           newID(),
				UserID:       ref,
				FromUserID:   inv.UserID,
				InvestmentID: inv.ID,
				Level:        rate.Level,
				Amount:       CommissionAmount(inv.Amount, rate.Percent),
				Percentage:   rate.Percent,
				CreatedAt:    l.now,
			}
			inserted, err := tx.InsertCommission(ctx, c)
			if err != nil {
				return err
			}
			if inserted && c.Amount.IsPositive() {
				if _, err := l.Credit(ctx, ref, c.Amount); err != nil {
					return err
				}
				desc := fmt.Sprintf("Comissão nível %d - %s%%", rate.Level, rate.Percent.String())
				if _, err := l.Record(ctx, ref, TxCommission, c.Amount, zero, StatusCompleted, desc); err != nil {
					return err
				}
				credited = true
			}
			if rate.Level == MaxReferralDepth {
				return markSettled(ctx, tx, inv.ID)
			}
			return nil
		})
		if err != nil {
			return paid, &CascadeError{InvestmentID: inv.ID, Level: rate.Level, Err: err}
		}
		if !found {
			break
		}
		if credited {
			paid = append(paid, c)
		}
		current = referrer
	}
	return paid, nil
}

func markSettled(ctx context.Context, tx Tx, investmentID string) error {
	inv, err := tx.LockInvestment(ctx, investmentID)
	if err != nil {
		return err
	}
	if inv.CommissionsSettled {
		return nil
	}
	inv.CommissionsSettled = true
	return tx.UpdateInvestment(ctx, inv)
}

const settleBatchSize = 200

// SettleCommissions resumes cascades for investments created before
// createdBefore that never finished settling.
func (s *Service) SettleCommissions(ctx context.Context, createdBefore time.Time) (SettleReport, error) {
	var report SettleReport
	pending, err := s.store.UnsettledInvestments(ctx, createdBefore, settleBatchSize)
	if err != nil {
		return report, err
	}
	for _, inv := range pending {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		paid, err := s.runCascade(ctx, inv)
		if err != nil {
			report.Failed++
			s.log.Error("commission settlement failed", "investment_id", inv.ID, "err", err)
			continue
		}
		report.Settled++
		s.log.Info("commissions settled", "investment_id", inv.ID, "levels_paid", len(paid))
	}
	return report, nil
}
