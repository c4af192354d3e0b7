package api

import (
	"context"
	"fmt"
	"net/http"
)

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var loginResp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/login/", LoginRequest{Email: email, Password: password}, &loginResp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &loginResp, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Registration, error) {
	var reg Registration
	if err := c.do(ctx, http.MethodPost, "/register/", req, &reg); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &reg, nil
}

func (c *Client) RefreshToken(ctx context.Context, refresh string) (*TokenPair, error) {
	var pair TokenPair
	if err := c.do(ctx, http.MethodPost, "/token/refresh/", RefreshRequest{Refresh: refresh}, &pair); err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return &pair, nil
}

func (c *Client) GetBalance(ctx context.Context) (*Balance, error) {
	var balance Balance
	if err := c.do(ctx, http.MethodGet, "/balance/", nil, &balance); err != nil {
		return nil, fmt.Errorf("get balance request failed: %w", err)
	}
	return &balance, nil
}

func (c *Client) GetInvestmentPlans(ctx context.Context) ([]Plan, error) {
	var plans []Plan
	if err := c.do(ctx, http.MethodGet, "/transactions/investment-plans/", nil, &plans); err != nil {
		return nil, fmt.Errorf("get investment plans request failed: %w", err)
	}
	for i := range plans {
		if err := plans[i].validate(); err != nil {
			return nil, fmt.Errorf("get investment plans request failed: %w", &UnknownError{Status: http.StatusOK, Err: err})
		}
	}
	return plans, nil
}

// CreateInvestment is not retried; a repeated call after a failure may create a second
// investment server-side.
func (c *Client) CreateInvestment(ctx context.Context, req CreateInvestmentRequest) (*Investment, error) {
	var inv Investment
	if err := c.do(ctx, http.MethodPost, "/transactions/investments/create/", req, &inv); err != nil {
		return nil, fmt.Errorf("create investment request failed: %w", err)
	}
	return &inv, nil
}

func (c *Client) GetInvestments(ctx context.Context) ([]Investment, error) {
	var investments []Investment
	if err := c.do(ctx, http.MethodGet, "/transactions/investments/", nil, &investments); err != nil {
		return nil, fmt.Errorf("get investments request failed: %w", err)
	}
	for i := range investments {
		if err := investments[i].validate(); err != nil {
			return nil, fmt.Errorf("get investments request failed: %w", &UnknownError{Status: http.StatusOK, Err: err})
		}
	}
	return investments, nil
}

func (c *Client) GetInvestment(ctx context.Context, id int64) (*Investment, error) {
	var inv Investment
	endpoint := fmt.Sprintf("/transactions/investments/%d/", id)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &inv); err != nil {
		return nil, fmt.Errorf("get investment request failed: %w", err)
	}
	return &inv, nil
}

// CreateDeposit is not retried; see CreateInvestment.
func (c *Client) CreateDeposit(ctx context.Context, req CreateDepositRequest) (*Deposit, error) {
	var dep Deposit
	if err := c.do(ctx, http.MethodPost, "/transactions/deposits/create/", req, &dep); err != nil {
		return nil, fmt.Errorf("create deposit request failed: %w", err)
	}
	return &dep, nil
}

// CreateWithdrawal is not retried; see CreateInvestment.
func (c *Client) CreateWithdrawal(ctx context.Context, req CreateWithdrawalRequest) (*Withdrawal, error) {
	var w Withdrawal
	if err := c.do(ctx, http.MethodPost, "/transactions/withdrawals/create/", req, &w); err != nil {
		return nil, fmt.Errorf("create withdrawal request failed: %w", err)
	}
	return &w, nil
}

func (c *Client) GetTransactions(ctx context.Context) ([]Transaction, error) {
	var txs []Transaction
	if err := c.do(ctx, http.MethodGet, "/transactions/transactions/", nil, &txs); err != nil {
		return nil, fmt.Errorf("get transactions request failed: %w", err)
	}
	return txs, nil
}

func (c *Client) UpdateProfile(ctx context.Context, patch ProfilePatch) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPut, "/accounts/update-profile/", patch, &user); err != nil {
		return nil, fmt.Errorf("update profile request failed: %w", err)
	}
	return &user, nil
}
