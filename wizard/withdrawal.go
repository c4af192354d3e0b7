package wizard

import (
	"context"
	"fmt"
	"strings"

	"coinvest/api"
	"coinvest/config"

	"github.com/shopspring/decimal"
)

const (
	FieldAddress = "withdrawal_address"

	withdrawalMethod = "crypto"
)

type WithdrawalCreator interface {
	CreateWithdrawal(ctx context.Context, req api.CreateWithdrawalRequest) (*api.Withdrawal, error)
}

func WithdrawalFlow(currency string, networks []config.Network, user CurrentUser, creator WithdrawalCreator) Flow {
	networkOptions := make([]Option, 0, len(networks))
	for _, n := range networks {
		networkOptions = append(networkOptions, Option{Value: n.Name, Label: fmt.Sprintf("%s (%s)", n.Name, n.Symbol)})
	}

	knownNetwork := func(name string) bool {
		for _, n := range networks {
			if strings.EqualFold(n.Name, name) {
				return true
			}
		}
		return false
	}

	return Flow{
		Name: "withdrawal",
		Steps: []Step{
			{
				Name: "Amount",
				Fields: []Field{
					{Name: FieldAmount, Label: "Amount (" + currency + ")", Kind: Number},
				},
				Validate: func(data map[string]string) map[string]string {
					amount, ok := ParseAmount(data[FieldAmount])
					if !ok || !amount.IsPositive() {
						return map[string]string{FieldAmount: MsgInvalidAmount}
					}
					if err := CheckAmount(amount, decimal.Zero, decimal.Zero, availableBalance(user)); err != nil {
						return map[string]string{FieldAmount: err.Error()}
					}
					return nil
				},
				Info: func(data map[string]string, _ interface{}) []string {
					return []string{fmt.Sprintf("Available balance: $%s", availableBalance(user).StringFixed(2))}
				},
			},
			{
				Name: "Destination",
				Fields: []Field{
					{Name: FieldNetwork, Label: "Network", Kind: Choice, Options: networkOptions},
					{Name: FieldAddress, Label: "Wallet address", Kind: Text},
				},
				Validate: func(data map[string]string) map[string]string {
					errs := map[string]string{}
					if !knownNetwork(data[FieldNetwork]) {
						errs[FieldNetwork] = MsgSelectNetwork
					}
					if strings.TrimSpace(data[FieldAddress]) == "" {
						errs[FieldAddress] = MsgAddressRequired
					}
					return errs
				},
			},
			{
				Name:    "Authorise",
				Submits: true,
				Fields: []Field{
					{Name: FieldPIN, Label: "Transaction PIN", Kind: Secret},
				},
				Validate: func(data map[string]string) map[string]string {
					if !validPIN(data[FieldPIN]) {
						return map[string]string{FieldPIN: MsgInvalidPIN}
					}
					return nil
				},
				Info: func(data map[string]string, _ interface{}) []string {
					amount, _ := ParseAmount(data[FieldAmount])
					return []string{
						fmt.Sprintf("Withdraw $%s via %s", amount.StringFixed(2), data[FieldNetwork]),
						"To: " + strings.TrimSpace(data[FieldAddress]),
					}
				},
			},
			{
				Name: "Result",
				Info: func(data map[string]string, result interface{}) []string {
					wd, ok := result.(*api.Withdrawal)
					if !ok {
						return nil
					}
					return []string{
						fmt.Sprintf("Withdrawal #%d submitted", wd.ID),
						fmt.Sprintf("Amount: $%s", wd.Amount.StringFixed(2)),
						"Status: " + wd.Status,
					}
				},
			},
		},
		Submit: func(ctx context.Context, data map[string]string) (interface{}, error) {
			if user.User() == nil {
				return nil, ErrSignedOut
			}
			amount, _ := ParseAmount(data[FieldAmount])
			return creator.CreateWithdrawal(ctx, api.CreateWithdrawalRequest{
				Amount:            amount,
				Currency:          currency,
				WithdrawalAddress: strings.TrimSpace(data[FieldAddress]),
				WithdrawalNetwork: data[FieldNetwork],
				WithdrawalMethod:  withdrawalMethod,
				TransactionPIN:    data[FieldPIN],
			})
		},
	}
}
