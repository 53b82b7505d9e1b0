package invest

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindWindowClosed      Kind = "window_closed"
	KindDependency        Kind = "dependency"
	KindUnauthenticated   Kind = "unauthenticated"
)

// Error is a domain failure with a stable code. Two errors match under
// errors.Is when their codes match, so wrapped sentinels still compare.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrProductNotFound         = newError(KindNotFound, "product_not_found", "product not found")
	ErrUserNotFound            = newError(KindNotFound, "user_not_found", "user not found")
	ErrInvestmentNotFound      = newError(KindNotFound, "investment_not_found", "investment not found")
	ErrInviteCodeNotFound      = newError(KindNotFound, "invite_code_not_found", "invalid invite code")
	ErrInsufficientBalance     = newError(KindInsufficientFunds, "insufficient_balance", "insufficient balance")
	ErrAlreadyCheckedInToday   = newError(KindConflict, "already_checked_in_today", "already checked in today")
	ErrAlreadySpunToday        = newError(KindConflict, "already_spun_today", "already spun the roulette today")
	ErrEmailTaken              = newError(KindConflict, "email_taken", "email already registered")
	ErrInviteCodeTaken         = newError(KindConflict, "invite_code_taken", "invite code already in use")
	ErrDuplicateRequest        = newError(KindConflict, "duplicate_request", "duplicate idempotency key")
	ErrOutsideWithdrawalWindow = newError(KindWindowClosed, "outside_withdrawal_window", "withdrawals are only allowed between 09:00 and 17:00 (UTC-3)")
	ErrBelowMinimum            = newError(KindValidation, "below_minimum", "amount is below the minimum withdrawal")
	ErrBelowMinimumDeposit     = newError(KindValidation, "below_minimum_deposit", "amount is below the minimum deposit")
	ErrInvalidCredentials      = newError(KindUnauthenticated, "invalid_credentials", "invalid email or password")
	ErrTxConflict              = newError(KindDependency, "tx_conflict", "transaction conflict, retry")
)

// Validation builds a validation error for a single bad field.
func Validation(msg string) *Error {
	return newError(KindValidation, "invalid_input", msg)
}

// Dependency marks err as a storage or collaborator failure.
func Dependency(msg string, err error) *Error {
	return &Error{Kind: KindDependency, Code: "dependency_failure", Message: msg, Err: err}
}

// KindOf reports the taxonomy kind of err. Errors from outside the domain
// count as dependency failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ce *CascadeError
	if errors.As(err, &ce) {
		return KindDependency
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindDependency
}

// CodeOf reports the stable code of err, or "internal" for foreign errors.
func CodeOf(err error) string {
	var ce *CascadeError
	if errors.As(err, &ce) {
		return "commission_cascade_incomplete"
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "internal"
}

// CascadeError reports a commission cascade that stopped at Level. Levels
// below it were paid; the purchase itself is committed.
type CascadeError struct {
	InvestmentID string
	Level        int
	Err          error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("commission cascade for investment %s stopped at level %d: %v", e.InvestmentID, e.Level, e.Err)
}

func (e *CascadeError) Unwrap() error { return e.Err }
