package invest

import (
	"crypto/rand"
	"math/big"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	InviteCodePrefix = "MP"
	inviteCodeChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	inviteCodeLen    = 6

	MinPasswordLen = 6

	TransactionHistoryLimit = 50
	MaxReferralDepth        = 3
)

var (
	MinWithdrawal     = decimal.NewFromInt(35)
	MinDeposit        = decimal.NewFromInt(30)
	WithdrawalFeeRate = decimal.RequireFromString("0.10")

	zero    = decimal.Zero
	hundred = decimal.NewFromInt(100)
)

func newID() string {
	return uuid.NewString()
}

// CheckinRewards is indexed by day number minus one.
var CheckinRewards = [7]decimal.Decimal{
	decimal.NewFromInt(1),
	decimal.NewFromInt(2),
	decimal.NewFromInt(3),
	decimal.NewFromInt(5),
	decimal.NewFromInt(8),
	decimal.NewFromInt(13),
	decimal.NewFromInt(20),
}

type CommissionRate struct {
	Level   int
	Percent decimal.Decimal
}

var CommissionRates = []CommissionRate{
	{Level: 1, Percent: decimal.NewFromInt(20)},
	{Level: 2, Percent: decimal.NewFromInt(5)},
	{Level: 3, Percent: decimal.NewFromInt(1)},
}

// RoundMoney rounds to cents, half away from zero.
func RoundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// CommissionAmount is gross * percent / 100 rounded to cents.
func CommissionAmount(gross, percent decimal.Decimal) decimal.Decimal {
	return RoundMoney(gross.Mul(percent).Div(hundred))
}

// WithdrawalFee is the surcharge added on top of a withdrawal request,
// rounded up to the next cent so amount+fee never drops below amount*1.10.
func WithdrawalFee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(WithdrawalFeeRate).RoundCeil(2)
}

// NextCheckinDay returns the day that follows last in the 7-day cycle.
// A user with no history (last == 0) starts at day 1.
func NextCheckinDay(last int) int {
	if last < 0 {
		last = 0
	}
	return last%7 + 1
}

func CheckinReward(day int) decimal.Decimal {
	if day < 1 || day > len(CheckinRewards) {
		return decimal.Zero
	}
	return CheckinRewards[day-1]
}

func GenerateInviteCode() (string, error) {
	buf := make([]byte, inviteCodeLen)
	max := big.NewInt(int64(len(inviteCodeChars)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = inviteCodeChars[n.Int64()]
	}
	return InviteCodePrefix + string(buf), nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validateCredentials(email, password string) error {
	if email == "" {
		return Validation("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return Validation("email is invalid")
	}
	if len(password) < MinPasswordLen {
		return Validation("password must be at least 6 characters")
	}
	return nil
}

func validatePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return Validation("amount must be > 0")
	}
	if amount.Exponent() < -2 && !amount.Equal(RoundMoney(amount)) {
		return Validation("amount must have at most 2 decimal places")
	}
	return nil
}
