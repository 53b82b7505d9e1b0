package invest

import "time"

// CivilZone is the single zone used for every date-gated rule: check-in and
// spin days, today's stats, payout days and the withdrawal window.
var CivilZone = time.FixedZone("BRT", -3*60*60)

const (
	WithdrawalOpenHour  = 9
	WithdrawalCloseHour = 17
)

type Clock func() time.Time

// CivilTime is t as seen on the civil wall clock.
func CivilTime(t time.Time) time.Time {
	return t.In(CivilZone)
}

// CivilDate truncates t to midnight of its civil day. The result carries
// CivilZone and compares with Equal across calls.
func CivilDate(t time.Time) time.Time {
	c := CivilTime(t)
	return time.Date(c.Year(), c.Month(), c.Day(), 0, 0, 0, 0, CivilZone)
}

// CivilDayBounds returns [start, end) of t's civil day.
func CivilDayBounds(t time.Time) (time.Time, time.Time) {
	start := CivilDate(t)
	return start, start.AddDate(0, 0, 1)
}

func WithdrawalWindowOpen(t time.Time) bool {
	h := CivilTime(t).Hour()
	return h >= WithdrawalOpenHour && h < WithdrawalCloseHour
}
