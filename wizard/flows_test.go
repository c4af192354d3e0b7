package wizard

import (
	"context"
	"errors"
	"testing"

	"coinvest/api"
	"coinvest/auth"
	"coinvest/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticUser struct {
	user *api.User
}

func (s staticUser) User() *api.User { return s.user }

type fakeAPI struct {
	registered  []api.RegisterRequest
	deposits    []api.CreateDepositRequest
	investments []api.CreateInvestmentRequest
	withdrawals []api.CreateWithdrawalRequest
	err         error
}

func (f *fakeAPI) Register(ctx context.Context, req api.RegisterRequest) (*api.Registration, error) {
	f.registered = append(f.registered, req)
	if f.err != nil {
		return nil, f.err
	}
	return &api.Registration{Message: "Registration successful"}, nil
}

func (f *fakeAPI) CreateDeposit(ctx context.Context, req api.CreateDepositRequest) (*api.Deposit, error) {
	f.deposits = append(f.deposits, req)
	if f.err != nil {
		return nil, f.err
	}
	return &api.Deposit{ID: 91, Amount: req.Amount, WalletNetwork: req.WalletNetwork, Status: "pending"}, nil
}

func (f *fakeAPI) CreateInvestment(ctx context.Context, req api.CreateInvestmentRequest) (*api.Investment, error) {
	f.investments = append(f.investments, req)
	if f.err != nil {
		return nil, f.err
	}
	return &api.Investment{ID: 12, PlanID: req.PlanID, Amount: req.Amount, Status: api.InvestmentOngoing}, nil
}

func (f *fakeAPI) CreateWithdrawal(ctx context.Context, req api.CreateWithdrawalRequest) (*api.Withdrawal, error) {
	f.withdrawals = append(f.withdrawals, req)
	if f.err != nil {
		return nil, f.err
	}
	return &api.Withdrawal{ID: 33, Amount: req.Amount, Status: "pending"}, nil
}

type fakeLogin struct {
	result auth.LoginResult
	calls  int
}

func (f *fakeLogin) Login(ctx context.Context, email, password string) auth.LoginResult {
	f.calls++
	return f.result
}

var testNetworks = []config.Network{
	{Name: "Bitcoin", Symbol: "BTC", Address: "bc1qdeposit"},
	{Name: "Ethereum", Symbol: "ETH", Address: "0xdeposit"},
}

func testPlans() []api.Plan {
	return []api.Plan{
		{ID: 1, Name: "Starter Silver", Tier: api.TierStarter, Level: api.LevelSilver, DailyROI: decimal.NewFromInt(5),
			MinDeposit: decimal.NewFromInt(100), MaxDeposit: decimal.NewFromInt(1000), DurationDays: 7},
	}
}

func user(balance int64) staticUser {
	return staticUser{user: &api.User{ID: 5, Balance: decimal.NewFromInt(balance)}}
}

func TestSignupValidation(t *testing.T) {
	details := validateSignupDetails(map[string]string{FieldFullName: "  ", FieldEmail: "not-an-email"})
	assert.Equal(t, MsgFullNameRequired, details[FieldFullName])
	assert.Equal(t, MsgInvalidEmail, details[FieldEmail])

	assert.Empty(t, validateSignupDetails(map[string]string{FieldFullName: "Ada", FieldEmail: "ada@example.com"}))
	assert.NotEmpty(t, validateSignupDetails(map[string]string{FieldFullName: "Ada", FieldEmail: "ada@example"}))

	pw := validateSignupPassword(map[string]string{FieldPassword: "short", FieldConfirmPassword: "shorter"})
	assert.Equal(t, MsgPasswordShort, pw[FieldPassword])
	assert.Equal(t, MsgPasswordMismatch, pw[FieldConfirmPassword])
	assert.Empty(t, validateSignupPassword(map[string]string{FieldPassword: "12345678", FieldConfirmPassword: "12345678"}))

	for _, bad := range []string{"123", "12345", "12a4", ""} {
		assert.Equal(t, MsgInvalidPIN, validateSignupPIN(map[string]string{FieldPIN: bad, FieldConfirmPIN: bad})[FieldPIN], bad)
	}
	assert.Equal(t, MsgPINMismatch, validateSignupPIN(map[string]string{FieldPIN: "1234", FieldConfirmPIN: "4321"})[FieldConfirmPIN])
}

func TestSignupFlow(t *testing.T) {
	fake := &fakeAPI{}
	w := mustNew(t, SignupFlow(fake))
	ctx := context.Background()

	require.NoError(t, w.Update(FieldFullName, "Ada Lovelace"))
	require.NoError(t, w.Update(FieldEmail, "ada@example.com"))
	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Update(FieldPassword, "password1"))
	require.NoError(t, w.Update(FieldConfirmPassword, "password1"))
	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Next(ctx), "referral code is optional")
	require.NoError(t, w.Update(FieldPIN, "1234"))
	require.NoError(t, w.Update(FieldConfirmPIN, "1234"))
	require.NoError(t, w.Next(ctx))

	assert.Equal(t, Succeeded, w.Status())
	require.Len(t, fake.registered, 1)
	assert.Equal(t, api.RegisterRequest{
		FullName:       "Ada Lovelace",
		Email:          "ada@example.com",
		Password:       "password1",
		TransactionPIN: "1234",
	}, fake.registered[0])
	assert.Contains(t, w.InfoLines(), "Registration successful")
}

func TestDepositMinimum(t *testing.T) {
	flow := DepositFlow(DepositOptions{MinDeposit: decimal.NewFromInt(50), Currency: "USD", Networks: testNetworks}, user(0), &fakeAPI{})
	validate := flow.Steps[0].Validate

	assert.Equal(t, "Minimum deposit amount is $50.00", validate(map[string]string{FieldAmount: "49.99"})[FieldAmount])
	assert.Empty(t, validate(map[string]string{FieldAmount: "50.00"}))
	assert.Empty(t, validate(map[string]string{FieldAmount: "$1,250"}))
	assert.Equal(t, MsgInvalidAmount, validate(map[string]string{FieldAmount: "fifty"})[FieldAmount])
}

func TestDepositFlow(t *testing.T) {
	fake := &fakeAPI{}
	w := mustNew(t, DepositFlow(DepositOptions{MinDeposit: decimal.NewFromInt(50), Currency: "USD", Networks: testNetworks}, user(0), fake))
	ctx := context.Background()

	require.NoError(t, w.Update(FieldAmount, "75"))
	require.NoError(t, w.Next(ctx))
	assert.Equal(t, 2, w.Step())

	assert.ErrorIs(t, w.Select(ctx, FieldNetwork, "Dogecoin"), ErrStepInvalid)
	assert.Equal(t, 2, w.Step())

	require.NoError(t, w.Select(ctx, FieldNetwork, "Bitcoin"))
	assert.Equal(t, 3, w.Step())
	assert.True(t, w.IsSubmitStep())
	assert.Contains(t, w.InfoLines(), "bc1qdeposit")
	assert.Empty(t, fake.deposits)

	require.NoError(t, w.Next(ctx))

	assert.Equal(t, Succeeded, w.Status())
	assert.Equal(t, 4, w.Step())
	require.Len(t, fake.deposits, 1)
	assert.Equal(t, int64(5), fake.deposits[0].User)
	assert.Equal(t, "bc1qdeposit", fake.deposits[0].WalletAddress)
	assert.Equal(t, "Bitcoin", fake.deposits[0].WalletNetwork)
	assert.True(t, fake.deposits[0].Amount.Equal(decimal.NewFromInt(75)))
	assert.Contains(t, w.InfoLines(), "Deposit #91 received")
}

func TestDepositSignedOut(t *testing.T) {
	fake := &fakeAPI{}
	w := mustNew(t, DepositFlow(DepositOptions{MinDeposit: decimal.NewFromInt(50), Currency: "USD", Networks: testNetworks}, staticUser{}, fake))
	ctx := context.Background()

	require.NoError(t, w.Update(FieldAmount, "75"))
	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Select(ctx, FieldNetwork, "Ethereum"))
	require.NoError(t, w.Next(ctx))

	assert.Equal(t, Failed, w.Status())
	assert.Equal(t, ErrSignedOut.Error(), w.Reason())
	assert.Empty(t, fake.deposits)
}

func TestInvestmentAmountMessages(t *testing.T) {
	flow := InvestmentFlow(testPlans(), "USD", user(500), &fakeAPI{})
	validate := flow.Steps[1].Validate
	at := func(amount string) string {
		return validate(map[string]string{FieldPlan: "1", FieldAmount: amount})[FieldAmount]
	}

	below, above, overBalance := at("99"), at("1001"), at("600")

	assert.Equal(t, "Minimum amount for this plan is $100.00", below)
	assert.Equal(t, "Maximum amount for this plan is $1000.00", above)
	assert.Equal(t, "Insufficient balance. Available: $500.00", overBalance)
	assert.Empty(t, at("100"))
	assert.Empty(t, at("500"))
}

func TestCheckAmountReasons(t *testing.T) {
	d := decimal.NewFromInt
	var ibe *InsufficientBalanceError

	require.True(t, errors.As(CheckAmount(d(5), d(10), d(20), d(100)), &ibe))
	assert.Equal(t, BelowMinimum, ibe.Reason)
	require.True(t, errors.As(CheckAmount(d(25), d(10), d(20), d(100)), &ibe))
	assert.Equal(t, AboveMaximum, ibe.Reason)
	require.True(t, errors.As(CheckAmount(d(15), d(10), d(20), d(12)), &ibe))
	assert.Equal(t, AboveBalance, ibe.Reason)
	assert.Equal(t, "Insufficient balance. Available: $12.00", api.UserMessage(ibe))
	assert.NoError(t, CheckAmount(d(15), d(10), d(20), d(15)))
	assert.NoError(t, CheckAmount(d(5000), d(0), d(0), d(5000)))
}

func TestInvestmentFlow(t *testing.T) {
	fake := &fakeAPI{}
	w := mustNew(t, InvestmentFlow(testPlans(), "USD", user(2000), fake))
	ctx := context.Background()

	assert.ErrorIs(t, w.Next(ctx), ErrStepInvalid)
	assert.Equal(t, MsgSelectPlan, w.Error(FieldPlan))

	require.NoError(t, w.Select(ctx, FieldPlan, "1"))
	require.NoError(t, w.Update(FieldAmount, "1000"))
	require.NoError(t, w.Next(ctx))
	assert.Equal(t, 3, w.Step())
	assert.Contains(t, w.InfoLines(), "Total return: $1350.00")

	require.NoError(t, w.Next(ctx))
	assert.Equal(t, Succeeded, w.Status())
	assert.Equal(t, 4, w.Step())
	require.Len(t, fake.investments, 1)
	assert.Equal(t, int64(1), fake.investments[0].PlanID)
	assert.Equal(t, "USD", fake.investments[0].Currency)
	assert.Contains(t, w.InfoLines(), "Investment #12 created")
}

func TestInvestmentBackendRejects(t *testing.T) {
	fake := &fakeAPI{err: &api.ValidationError{Status: 400, Message: "Insufficient balance"}}
	w := mustNew(t, InvestmentFlow(testPlans(), "USD", user(2000), fake))
	ctx := context.Background()

	require.NoError(t, w.Select(ctx, FieldPlan, "1"))
	require.NoError(t, w.Update(FieldAmount, "200"))
	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Next(ctx))

	assert.Equal(t, Failed, w.Status())
	assert.Equal(t, "Insufficient balance", w.Reason())
	assert.Equal(t, 3, w.Step())
}

func TestWithdrawalFlow(t *testing.T) {
	fake := &fakeAPI{}
	w := mustNew(t, WithdrawalFlow("USD", testNetworks, user(300), fake))
	ctx := context.Background()

	require.NoError(t, w.Update(FieldAmount, "301"))
	assert.ErrorIs(t, w.Next(ctx), ErrStepInvalid)
	assert.Equal(t, "Insufficient balance. Available: $300.00", w.Error(FieldAmount))

	require.NoError(t, w.Update(FieldAmount, "0"))
	assert.ErrorIs(t, w.Next(ctx), ErrStepInvalid)
	assert.Equal(t, MsgInvalidAmount, w.Error(FieldAmount))

	require.NoError(t, w.Update(FieldAmount, "120"))
	require.NoError(t, w.Next(ctx))

	assert.ErrorIs(t, w.Next(ctx), ErrStepInvalid)
	assert.Equal(t, MsgSelectNetwork, w.Error(FieldNetwork))
	assert.Equal(t, MsgAddressRequired, w.Error(FieldAddress))

	require.NoError(t, w.Update(FieldNetwork, "Ethereum"))
	require.NoError(t, w.Update(FieldAddress, " 0xabc "))
	require.NoError(t, w.Next(ctx))

	require.NoError(t, w.Update(FieldPIN, "12"))
	assert.ErrorIs(t, w.Next(ctx), ErrStepInvalid)
	assert.Empty(t, fake.withdrawals)

	require.NoError(t, w.Update(FieldPIN, "4321"))
	require.NoError(t, w.Next(ctx))

	assert.Equal(t, Succeeded, w.Status())
	require.Len(t, fake.withdrawals, 1)
	assert.Equal(t, api.CreateWithdrawalRequest{
		Amount:            decimal.NewFromInt(120),
		Currency:          "USD",
		WithdrawalAddress: "0xabc",
		WithdrawalNetwork: "Ethereum",
		WithdrawalMethod:  "crypto",
		TransactionPIN:    "4321",
	}, fake.withdrawals[0])
}

func TestLoginFlow(t *testing.T) {
	login := &fakeLogin{result: auth.LoginResult{Message: "No active account found with the given credentials"}}
	w := mustNew(t, LoginFlow(login))
	ctx := context.Background()

	assert.ErrorIs(t, w.Next(ctx), ErrStepInvalid)
	assert.Equal(t, MsgInvalidEmail, w.Error(FieldEmail))
	assert.Equal(t, MsgPasswordRequired, w.Error(FieldPassword))
	assert.Zero(t, login.calls)

	require.NoError(t, w.Update(FieldEmail, "ada@example.com"))
	require.NoError(t, w.Update(FieldPassword, "wrong"))
	require.NoError(t, w.Next(ctx))
	assert.Equal(t, Failed, w.Status())
	assert.Equal(t, "No active account found with the given credentials", w.Reason())

	login.result = auth.LoginResult{OK: true}
	require.NoError(t, w.Next(ctx))
	assert.Equal(t, Succeeded, w.Status())
	assert.Equal(t, 2, login.calls)
}

// Next must never move past the last step, whatever the data.
func TestNextNeverPassesLastStep(t *testing.T) {
	ctx := context.Background()
	flows := []Flow{
		SignupFlow(&fakeAPI{}),
		DepositFlow(DepositOptions{MinDeposit: decimal.NewFromInt(50), Currency: "USD", Networks: testNetworks}, user(100), &fakeAPI{}),
		InvestmentFlow(testPlans(), "USD", user(5000), &fakeAPI{}),
		WithdrawalFlow("USD", testNetworks, user(100), &fakeAPI{}),
		LoginFlow(&fakeLogin{result: auth.LoginResult{OK: true}}),
	}
	valid := map[string]string{
		FieldFullName: "Ada", FieldEmail: "ada@example.com", FieldPassword: "password1", FieldConfirmPassword: "password1",
		FieldPIN: "1234", FieldConfirmPIN: "1234", FieldAmount: "100", FieldNetwork: "Bitcoin", FieldPlan: "1",
		FieldAddress: "bc1q",
	}

	for _, flow := range flows {
		t.Run(flow.Name, func(t *testing.T) {
			w := mustNew(t, flow)
			for i := 0; i < 2*w.Total(); i++ {
				_ = w.Next(ctx)
				assert.LessOrEqual(t, w.Step(), w.Total())
				assert.Equal(t, 1, w.Step(), "must not advance on empty data")
			}

			for name, value := range valid {
				require.NoError(t, w.Update(name, value))
			}
			for i := 0; i < 2*w.Total(); i++ {
				_ = w.Next(ctx)
				assert.LessOrEqual(t, w.Step(), w.Total())
				_ = w.Previous()
				assert.GreaterOrEqual(t, w.Step(), 1)
				_ = w.Next(ctx)
			}
			assert.Equal(t, Succeeded, w.Status())
		})
	}
}
