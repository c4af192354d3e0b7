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
	FieldAmount  = "amount"
	FieldNetwork = "network"
)

var ErrSignedOut = &api.UserError{Message: "Your session has ended, please log in again."}

// CurrentUser exposes the signed-in user; nil means signed out.
type CurrentUser interface {
	User() *api.User
}

type DepositCreator interface {
	CreateDeposit(ctx context.Context, req api.CreateDepositRequest) (*api.Deposit, error)
}

type DepositOptions struct {
	MinDeposit decimal.Decimal
	Currency   string
	Networks   []config.Network
}

func DepositFlow(opts DepositOptions, user CurrentUser, creator DepositCreator) Flow {
	networkOptions := make([]Option, 0, len(opts.Networks))
	for _, n := range opts.Networks {
		networkOptions = append(networkOptions, Option{Value: n.Name, Label: fmt.Sprintf("%s (%s)", n.Name, n.Symbol)})
	}

	findNetwork := func(name string) (config.Network, bool) {
		for _, n := range opts.Networks {
			if strings.EqualFold(n.Name, name) {
				return n, true
			}
		}
		return config.Network{}, false
	}

	return Flow{
		Name: "deposit",
		Steps: []Step{
			{
				Name: "Amount",
				Fields: []Field{
					{Name: FieldAmount, Label: "Amount (" + opts.Currency + ")", Kind: Number, Placeholder: opts.MinDeposit.StringFixed(2)},
				},
				Validate: func(data map[string]string) map[string]string {
					errs := map[string]string{}
					amount, ok := ParseAmount(data[FieldAmount])
					switch {
					case !ok:
						errs[FieldAmount] = MsgInvalidAmount
					case amount.LessThan(opts.MinDeposit):
						errs[FieldAmount] = fmt.Sprintf("Minimum deposit amount is $%s", opts.MinDeposit.StringFixed(2))
					}
					return errs
				},
			},
			{
				Name: "Network",
				Fields: []Field{
					{Name: FieldNetwork, Label: "Network", Kind: Choice, Options: networkOptions},
				},
				Validate: func(data map[string]string) map[string]string {
					if _, ok := findNetwork(data[FieldNetwork]); !ok {
						return map[string]string{FieldNetwork: MsgSelectNetwork}
					}
					return nil
				},
			},
			{
				Name:    "Payment",
				Submits: true,
				Info: func(data map[string]string, _ interface{}) []string {
					n, _ := findNetwork(data[FieldNetwork])
					amount, _ := ParseAmount(data[FieldAmount])
					return []string{
						fmt.Sprintf("Send $%s worth of %s to:", amount.StringFixed(2), n.Symbol),
						n.Address,
						"Confirm once the payment has been sent.",
					}
				},
			},
			{
				Name: "Confirmation",
				Info: func(data map[string]string, result interface{}) []string {
					dep, ok := result.(*api.Deposit)
					if !ok {
						return nil
					}
					return []string{
						fmt.Sprintf("Deposit #%d received", dep.ID),
						fmt.Sprintf("Amount: $%s via %s", dep.Amount.StringFixed(2), dep.WalletNetwork),
						"Status: " + dep.Status,
					}
				},
			},
		},
		Submit: func(ctx context.Context, data map[string]string) (interface{}, error) {
			u := user.User()
			if u == nil {
				return nil, ErrSignedOut
			}
			amount, _ := ParseAmount(data[FieldAmount])
			n, _ := findNetwork(data[FieldNetwork])

			return creator.CreateDeposit(ctx, api.CreateDepositRequest{
				User:          u.ID,
				Amount:        amount,
				Currency:      opts.Currency,
				WalletAddress: n.Address,
				WalletNetwork: n.Name,
				Description:   fmt.Sprintf("Deposit via %s", n.Name),
			})
		},
	}
}
