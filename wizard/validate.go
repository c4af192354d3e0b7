package wizard

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	pinPattern   = regexp.MustCompile(`^[0-9]{4}$`)
)

const (
	MsgFullNameRequired = "Full name is required"
	MsgInvalidEmail     = "Please enter a valid email address"
	MsgPasswordShort    = "Password must be at least 8 characters"
	MsgPasswordMismatch = "Passwords do not match"
	MsgPasswordRequired = "Password is required"
	MsgInvalidPIN       = "PIN must be exactly 4 digits"
	MsgPINMismatch      = "PINs do not match"
	MsgInvalidAmount    = "Please enter a valid amount"
	MsgSelectNetwork    = "Please select a network"
	MsgSelectPlan       = "Please select an investment plan"
	MsgAddressRequired  = "Wallet address is required"
)

type Limit int

const (
	BelowMinimum Limit = iota
	AboveMaximum
	AboveBalance
)

// InsufficientBalanceError rejects an amount outside a plan's bounds or above what the
// user can spend. The backend remains the authority.
type InsufficientBalanceError struct {
	Reason Limit
	Amount decimal.Decimal
	Limit  decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	switch e.Reason {
	case BelowMinimum:
		return fmt.Sprintf("Minimum amount for this plan is $%s", e.Limit.StringFixed(2))
	case AboveMaximum:
		return fmt.Sprintf("Maximum amount for this plan is $%s", e.Limit.StringFixed(2))
	default:
		return fmt.Sprintf("Insufficient balance. Available: $%s", e.Limit.StringFixed(2))
	}
}

func (e *InsufficientBalanceError) UserMessage() string {
	return e.Error()
}

// CheckAmount applies minimum ≤ amount ≤ maximum and amount ≤ balance, in that order. A
// zero maximum means no upper bound.
func CheckAmount(amount, minimum, maximum, balance decimal.Decimal) error {
	switch {
	case amount.LessThan(minimum):
		return &InsufficientBalanceError{Reason: BelowMinimum, Amount: amount, Limit: minimum}
	case maximum.IsPositive() && amount.GreaterThan(maximum):
		return &InsufficientBalanceError{Reason: AboveMaximum, Amount: amount, Limit: maximum}
	case amount.GreaterThan(balance):
		return &InsufficientBalanceError{Reason: AboveBalance, Amount: amount, Limit: balance}
	}
	return nil
}

// ParseAmount reads a money field. Thousands separators and a leading $ are accepted.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func validEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

func validPIN(s string) bool {
	return pinPattern.MatchString(s)
}
