package invest

import (
	"time"

	"github.com/shopspring/decimal"
)

type TxType string

const (
	TxDeposit     TxType = "deposit"
	TxWithdrawal  TxType = "withdrawal"
	TxInvestment  TxType = "investment"
	TxCommission  TxType = "commission"
	TxCheckin     TxType = "checkin"
	TxRoulette    TxType = "roulette"
	TxDailyPayout TxType = "daily_payout"
)

// EarningTypes are the credits that count toward today's earnings.
var EarningTypes = []TxType{TxCommission, TxCheckin, TxRoulette, TxDailyPayout}

type TxStatus string

const (
	StatusPending   TxStatus = "pending"
	StatusCompleted TxStatus = "completed"
	StatusFailed    TxStatus = "failed"
)

type InvestmentStatus string

const (
	InvestmentActive    InvestmentStatus = "active"
	InvestmentCompleted InvestmentStatus = "completed"
)

type User struct {
	ID             string          `json:"id"`
	Email          string          `json:"email"`
	PasswordHash   string          `json:"-"`
	Balance        decimal.Decimal `json:"balance"`
	TotalEarned    decimal.Decimal `json:"total_earned"`
	TotalWithdrawn decimal.Decimal `json:"total_withdrawn"`
	InviteCode     string          `json:"invite_code"`
	InvitedBy      string          `json:"invited_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	DailyReturn  decimal.Decimal `json:"daily_return"`
	DurationDays int             `json:"duration_days"`
	TotalReturn  decimal.Decimal `json:"total_return"`
	ImageURL     string          `json:"image_url,omitempty"`
	Tier         string          `json:"tier"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
}

type Investment struct {
	ID                 string           `json:"id"`
	UserID             string           `json:"user_id"`
	ProductID          string           `json:"product_id"`
	ProductName        string           `json:"product_name"`
	Amount             decimal.Decimal  `json:"amount"`
	DailyReturn        decimal.Decimal  `json:"daily_return"`
	TotalReturn        decimal.Decimal  `json:"total_return"`
	DurationDays       int              `json:"duration_days"`
	DaysRemaining      int              `json:"days_remaining"`
	Status             InvestmentStatus `json:"status"`
	CommissionsSettled bool             `json:"commissions_settled"`
	LastPayoutDate     time.Time        `json:"last_payout_date"`
	CreatedAt          time.Time        `json:"created_at"`
}

type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Type        TxType          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Fee         decimal.Decimal `json:"fee"`
	Status      TxStatus        `json:"status"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Commission struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	FromUserID   string          `json:"from_user_id"`
	InvestmentID string          `json:"investment_id"`
	Level        int             `json:"level"`
	Amount       decimal.Decimal `json:"amount"`
	Percentage   decimal.Decimal `json:"percentage"`
	CreatedAt    time.Time       `json:"created_at"`
}

type Checkin struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	DayNumber   int             `json:"day_number"`
	Reward      decimal.Decimal `json:"reward"`
	CheckinDate time.Time       `json:"checkin_date"`
	CreatedAt   time.Time       `json:"created_at"`
}

type RouletteSpin struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Prize     decimal.Decimal `json:"prize"`
	SpinDate  time.Time       `json:"spin_date"`
	CreatedAt time.Time       `json:"created_at"`
}

type Member struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// BalanceDelta is applied atomically to a user row.
type BalanceDelta struct {
	Balance   decimal.Decimal
	Earned    decimal.Decimal
	Withdrawn decimal.Decimal
}

type RegisterInput struct {
	Email      string
	Password   string
	InviteCode string
}

type PurchaseInput struct {
	UserID         string
	ProductID      string
	IdempotencyKey string
}

type WithdrawInput struct {
	UserID         string
	Amount         decimal.Decimal
	PixKey         string
	PixKeyType     string
	IdempotencyKey string
}

type DepositInput struct {
	UserID         string
	Amount         decimal.Decimal
	IdempotencyKey string
}

type Profile struct {
	ID             string          `json:"id"`
	Email          string          `json:"email"`
	InviteCode     string          `json:"invite_code"`
	Balance        decimal.Decimal `json:"balance"`
	TotalEarned    decimal.Decimal `json:"total_earned"`
	TotalWithdrawn decimal.Decimal `json:"total_withdrawn"`
	CreatedAt      time.Time       `json:"created_at"`
}

type PurchaseResult struct {
	Investment  Investment      `json:"investment"`
	Balance     decimal.Decimal `json:"balance"`
	Commissions []Commission    `json:"commissions"`
}

type CheckinResult struct {
	DayNumber int             `json:"day_number"`
	Reward    decimal.Decimal `json:"reward"`
	Balance   decimal.Decimal `json:"balance"`
}

type CheckinStatus struct {
	CurrentDay     int  `json:"current_day"`
	CheckedInToday bool `json:"checked_in_today"`
}

type SpinResult struct {
	Prize   decimal.Decimal `json:"prize"`
	Balance decimal.Decimal `json:"balance"`
}

type RouletteStatus struct {
	CanSpin        bool `json:"can_spin"`
	SpinsRemaining int  `json:"spins_remaining"`
}

type WithdrawalResult struct {
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
	Total         decimal.Decimal `json:"total"`
	Status        TxStatus        `json:"status"`
	Balance       decimal.Decimal `json:"balance"`
}

type DepositResult struct {
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"balance"`
	PixCode       string          `json:"pix_code"`
}

type TodayStats struct {
	TodayEarnings decimal.Decimal `json:"today_earnings"`
	NewInvites    int             `json:"new_invites"`
}

type TeamLevel struct {
	Count       int             `json:"count"`
	TotalEarned decimal.Decimal `json:"total_earned"`
	Members     []Member        `json:"members"`
}

type Team struct {
	Level1 TeamLevel `json:"level1"`
	Level2 TeamLevel `json:"level2"`
	Level3 TeamLevel `json:"level3"`
}

type PayoutReport struct {
	Day       time.Time       `json:"day"`
	Paid      int             `json:"paid"`
	Completed int             `json:"completed"`
	Failed    int             `json:"failed"`
	Total     decimal.Decimal `json:"total"`
}

type SettleReport struct {
	Settled int `json:"settled"`
	Failed  int `json:"failed"`
}
