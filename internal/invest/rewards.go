package invest

import (
	"context"
	"fmt"
)

// Checkin grants today's reward in the 7-day cycle. The (user, civil date)
// pair is unique at the store, so concurrent calls yield one winner.
func (s *Service) Checkin(ctx context.Context, userID string) (CheckinResult, error) {
	var out CheckinResult
	err := s.update(ctx, func(tx Tx, l *Ledger) error {
		if _, err := tx.LockUser(ctx, userID); err != nil {
			return err
		}
		last, err := tx.LastCheckinDay(ctx, userID)
		if err != nil {
			return err
		}
		day := NextCheckinDay(last)
		reward := CheckinReward(day)
		if err := tx.InsertCheckin(ctx, Checkin{
			ID:          newID(),
			UserID:      userID,
			DayNumber:   day,
			Reward:      reward,
			CheckinDate: CivilDate(l.now),
			CreatedAt:   l.now,
		}); err != nil {
			return err
		}
		u, err := l.Credit(ctx, userID, reward)
		if err != nil {
			return err
		}
		if _, err := l.Record(ctx, userID, TxCheckin, reward, zero, StatusCompleted, fmt.Sprintf("Check-in dia %d", day)); err != nil {
			return err
		}
		out = CheckinResult{DayNumber: day, Reward: reward, Balance: u.Balance}
		return nil
	})
	if err != nil {
		return CheckinResult{}, err
	}
	s.log.Info("checkin", "user_id", userID, "day", out.DayNumber, "reward", out.Reward.StringFixed(2))
	return out, nil
}

// CheckinStatus reports the last completed day (0 before the first
// check-in) and whether today is already taken.
func (s *Service) CheckinStatus(ctx context.Context, userID string) (CheckinStatus, error) {
	last, ok, err := s.store.LastCheckin(ctx, userID)
	if err != nil {
		return CheckinStatus{}, err
	}
	if !ok {
		return CheckinStatus{}, nil
	}
	return CheckinStatus{
		CurrentDay:     last.DayNumber,
		CheckedInToday: last.CheckinDate.Equal(CivilDate(s.now())),
	}, nil
}

// Spin draws one roulette prize per user per civil day.
func (s *Service) Spin(ctx context.Context, userID string) (SpinResult, error) {
	prize := DrawPrize(RouletteTable, s.nextFloat())
	var out SpinResult
	err := s.update(ctx, func(tx Tx, l *Ledger) error {
		if _, err := tx.LockUser(ctx, userID); err != nil {
			return err
		}
		if err := tx.InsertRouletteSpin(ctx, RouletteSpin{
			ID:        newID(),
			UserID:    userID,
			Prize:     prize,
			SpinDate:  CivilDate(l.now),
			CreatedAt: l.now,
		}); err != nil {
			return err
		}
		u, err := l.Credit(ctx, userID, prize)
		if err != nil {
			return err
		}
		if _, err := l.Record(ctx, userID, TxRoulette, prize, zero, StatusCompleted, "Prêmio da roleta"); err != nil {
			return err
		}
		out = SpinResult{Prize: prize, Balance: u.Balance}
		return nil
	})
	if err != nil {
		return SpinResult{}, err
	}
	s.log.Info("roulette spin", "user_id", userID, "prize", out.Prize.StringFixed(2))
	return out, nil
}

func (s *Service) RouletteStatus(ctx context.Context, userID string) (RouletteStatus, error) {
	spun, err := s.store.HasSpin(ctx, userID, CivilDate(s.now()))
	if err != nil {
		return RouletteStatus{}, err
	}
	if spun {
		return RouletteStatus{CanSpin: false, SpinsRemaining: 0}, nil
	}
	return RouletteStatus{CanSpin: true, SpinsRemaining: 1}, nil
}
