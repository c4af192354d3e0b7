package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrUnexpectedShape = errors.New("unexpected response shape")

type User struct {
	ID            int64           `json:"id"`
	Email         string          `json:"email"`
	FullName      string          `json:"full_name"`
	Balance       decimal.Decimal `json:"balance"`
	WalletAddress string          `json:"wallet_address"`
	ReferralCode  string          `json:"referral_code"`
	IsVerified    bool            `json:"is_verified"`
	IsActive      bool            `json:"is_active"`
}

// ProfilePatch carries the fields of a partial profile update; nil fields are left alone.
type ProfilePatch struct {
	FullName      *string `json:"full_name,omitempty"`
	Email         *string `json:"email,omitempty"`
	WalletAddress *string `json:"wallet_address,omitempty"`
}

// Apply shallow-merges the patch into u.
func (p ProfilePatch) Apply(u *User) {
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.WalletAddress != nil {
		u.WalletAddress = *p.WalletAddress
	}
}

func (p ProfilePatch) IsEmpty() bool {
	return p.FullName == nil && p.Email == nil && p.WalletAddress == nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user"`
}

func (r *LoginResponse) validate() error {
	if r.Access == "" || r.User == nil {
		return fmt.Errorf("%w: login response needs access and user", ErrUnexpectedShape)
	}
	return nil
}

type RegisterRequest struct {
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	ReferralCode   string `json:"referral_code,omitempty"`
	TransactionPIN string `json:"transaction_pin"`
}

type Registration struct {
	Message string `json:"message"`
	User    *User  `json:"user,omitempty"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// TokenPair is the answer to a refresh; Refresh is only set when the backend rotates it.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

func (t *TokenPair) validate() error {
	if t.Access == "" {
		return fmt.Errorf("%w: refresh response has no access token", ErrUnexpectedShape)
	}
	return nil
}

type Balance struct {
	Balance decimal.Decimal `json:"balance"`
}

// Tier is the product line of a plan.
type Tier string

const (
	TierStarter Tier = "starter"
	TierPro     Tier = "pro"
)

func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch v := Tier(strings.ToLower(strings.TrimSpace(s))); v {
	case TierStarter, TierPro:
		*t = v
		return nil
	}
	return fmt.Errorf("%w: unknown plan tier %q", ErrUnexpectedShape, s)
}

// Level is the grade within a tier.
type Level string

const (
	LevelSilver   Level = "silver"
	LevelGold     Level = "gold"
	LevelPlatinum Level = "platinum"
)

func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch v := Level(strings.ToLower(strings.TrimSpace(s))); v {
	case LevelSilver, LevelGold, LevelPlatinum:
		*l = v
		return nil
	}
	return fmt.Errorf("%w: unknown plan level %q", ErrUnexpectedShape, s)
}

type Plan struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Tier         Tier            `json:"tier"`
	Level        Level           `json:"level"`
	DailyROI     decimal.Decimal `json:"daily_roi"`
	MinDeposit   decimal.Decimal `json:"min_deposit"`
	MaxDeposit   decimal.Decimal `json:"max_deposit"`
	DurationDays int             `json:"duration_days"`
}

// Title is the display name, falling back to "Tier Level".
func (p Plan) Title() string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("%s %s", capitalize(string(p.Tier)), capitalize(string(p.Level)))
}

func (p *Plan) validate() error {
	switch {
	case p.ID == 0:
		return fmt.Errorf("%w: plan without id", ErrUnexpectedShape)
	case p.Tier == "" || p.Level == "":
		return fmt.Errorf("%w: plan %d has no tier or level", ErrUnexpectedShape, p.ID)
	case !p.DailyROI.IsPositive():
		return fmt.Errorf("%w: plan %d daily roi must be positive", ErrUnexpectedShape, p.ID)
	case !p.MinDeposit.IsPositive() || p.MaxDeposit.LessThan(p.MinDeposit):
		return fmt.Errorf("%w: plan %d deposit bounds %s..%s", ErrUnexpectedShape, p.ID, p.MinDeposit, p.MaxDeposit)
	case p.DurationDays <= 0:
		return fmt.Errorf("%w: plan %d duration must be positive", ErrUnexpectedShape, p.ID)
	}
	return nil
}

type InvestmentStatus string

const (
	InvestmentOngoing   InvestmentStatus = "ongoing"
	InvestmentHalfway   InvestmentStatus = "halfway"
	InvestmentCompleted InvestmentStatus = "completed"
	InvestmentCancelled InvestmentStatus = "cancelled"
)

func (s *InvestmentStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := InvestmentStatus(strings.ToLower(strings.TrimSpace(raw))); v {
	case InvestmentOngoing, InvestmentHalfway, InvestmentCompleted, InvestmentCancelled:
		*s = v
		return nil
	}
	return fmt.Errorf("%w: unknown investment status %q", ErrUnexpectedShape, raw)
}

// Active reports whether the investment is still accruing.
func (s InvestmentStatus) Active() bool {
	return s == InvestmentOngoing || s == InvestmentHalfway
}

type CreateInvestmentRequest struct {
	PlanID   int64           `json:"plan_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type Investment struct {
	ID        int64            `json:"id"`
	PlanID    int64            `json:"plan"`
	PlanName  string           `json:"plan_name"`
	Amount    decimal.Decimal  `json:"amount"`
	Currency  string           `json:"currency"`
	Status    InvestmentStatus `json:"status"`
	StartDate Timestamp        `json:"start_date"`
	EndDate   Timestamp        `json:"end_date"`
	Returns   decimal.Decimal  `json:"returns"`
}

func (i *Investment) validate() error {
	if i.ID == 0 || i.Status == "" {
		return fmt.Errorf("%w: investment needs id and status", ErrUnexpectedShape)
	}
	return nil
}

type CreateDepositRequest struct {
	User          int64           `json:"user"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	WalletAddress string          `json:"wallet_address"`
	WalletNetwork string          `json:"wallet_network"`
	Description   string          `json:"description"`
}

type Deposit struct {
	ID            int64           `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	WalletAddress string          `json:"wallet_address"`
	WalletNetwork string          `json:"wallet_network"`
	Status        string          `json:"status"`
	CreatedAt     Timestamp       `json:"created_at"`
}

func (d *Deposit) validate() error {
	if d.ID == 0 {
		return fmt.Errorf("%w: deposit without id", ErrUnexpectedShape)
	}
	return nil
}

type CreateWithdrawalRequest struct {
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	WithdrawalAddress string          `json:"withdrawal_address"`
	WithdrawalNetwork string          `json:"withdrawal_network"`
	WithdrawalMethod  string          `json:"withdrawal_method"`
	TransactionPIN    string          `json:"transaction_pin"`
}

type Withdrawal struct {
	ID                int64           `json:"id"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	WithdrawalAddress string          `json:"withdrawal_address"`
	WithdrawalNetwork string          `json:"withdrawal_network"`
	Status            string          `json:"status"`
	CreatedAt         Timestamp       `json:"created_at"`
}

func (w *Withdrawal) validate() error {
	if w.ID == 0 {
		return fmt.Errorf("%w: withdrawal without id", ErrUnexpectedShape)
	}
	return nil
}

type Transaction struct {
	ID          int64           `json:"id"`
	Type        string          `json:"transaction_type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	Description string          `json:"description"`
	CreatedAt   Timestamp       `json:"created_at"`
}

// Timestamp accepts RFC 3339 date-times and bare dates.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("%w: bad timestamp %q", ErrUnexpectedShape, s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
