package invest

import "context"

// TodayStats sums today's completed earnings and counts today's invitees,
// both over the current civil day.
func (s *Service) TodayStats(ctx context.Context, userID string) (TodayStats, error) {
	from, to := CivilDayBounds(s.now())
	earned, err := s.store.SumTransactions(ctx, userID, EarningTypes, from, to)
	if err != nil {
		return TodayStats{}, err
	}
	invites, err := s.store.CountInvitesBetween(ctx, userID, from, to)
	if err != nil {
		return TodayStats{}, err
	}
	return TodayStats{TodayEarnings: earned, NewInvites: invites}, nil
}

func (s *Service) ListTransactions(ctx context.Context, userID string) ([]Transaction, error) {
	return s.store.ListTransactions(ctx, userID, TransactionHistoryLimit)
}
