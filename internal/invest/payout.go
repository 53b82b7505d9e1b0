package invest

import (
	"context"
	"fmt"
)

const defaultPayoutBatch = 500

// RunDailyPayout credits one daily return to every active investment not yet
// paid for today's civil date. Each investment settles in its own
// transaction and a failure does not stop the run.
func (s *Service) RunDailyPayout(ctx context.Context) (PayoutReport, error) {
	day := CivilDate(s.now())
	report := PayoutReport{Day: day, Total: zero}
	// failed investments stay due; the limit grows so they never crowd out
	// the rest of the batch
	failed := map[string]struct{}{}
	for {
		limit := s.payoutBatch + len(failed)
		due, err := s.store.DueInvestments(ctx, day, limit)
		if err != nil {
			return report, err
		}
		attempted := 0
		for _, inv := range due {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			if _, ok := failed[inv.ID]; ok {
				continue
			}
			attempted++
			paid, completed, err := s.payInvestment(ctx, inv.ID)
			if err != nil {
				failed[inv.ID] = struct{}{}
				report.Failed++
				s.log.Error("daily payout failed", "investment_id", inv.ID, "err", err)
				continue
			}
			if paid {
				report.Paid++
				report.Total = report.Total.Add(inv.DailyReturn)
			}
			if completed {
				report.Completed++
			}
		}
		if len(due) < limit || attempted == 0 {
			break
		}
	}
	s.log.Info("daily payout complete",
		"day", day.Format("2006-01-02"),
		"paid", report.Paid,
		"completed", report.Completed,
		"failed", report.Failed,
		"total", report.Total.StringFixed(2),
	)
	return report, nil
}

func (s *Service) payInvestment(ctx context.Context, investmentID string) (paid, completed bool, err error) {
	err = s.update(ctx, func(tx Tx, l *Ledger) error {
		paid, completed = false, false
		day := CivilDate(l.now)
		inv, err := tx.LockInvestment(ctx, investmentID)
		if err != nil {
			return err
		}
		if inv.Status != InvestmentActive || inv.DaysRemaining <= 0 || !inv.LastPayoutDate.Before(day) {
			return nil
		}
		if _, err := tx.LockUser(ctx, inv.UserID); err != nil {
			return err
		}
		if _, err := l.Credit(ctx, inv.UserID, inv.DailyReturn); err != nil {
			return err
		}
		desc := fmt.Sprintf("Rendimento diário - %s", inv.ProductName)
		if _, err := l.Record(ctx, inv.UserID, TxDailyPayout, inv.DailyReturn, zero, StatusCompleted, desc); err != nil {
			return err
		}
		inv.DaysRemaining--
		inv.LastPayoutDate = day
		if inv.DaysRemaining == 0 {
			inv.Status = InvestmentCompleted
			completed = true
		}
		paid = true
		return tx.UpdateInvestment(ctx, inv)
	})
	return paid, completed, err
}
