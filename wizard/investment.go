package wizard

import (
	"context"
	"fmt"
	"strconv"

	"coinvest/api"
	"coinvest/calc"

	"github.com/shopspring/decimal"
)

const FieldPlan = "plan_id"

type InvestmentCreator interface {
	CreateInvestment(ctx context.Context, req api.CreateInvestmentRequest) (*api.Investment, error)
}

// InvestmentFlow buys into one of plans. The available balance is read from user at
// validation time.
func InvestmentFlow(plans []api.Plan, currency string, user CurrentUser, creator InvestmentCreator) Flow {
	planOptions := make([]Option, 0, len(plans))
	for _, p := range plans {
		planOptions = append(planOptions, Option{
			Value: strconv.FormatInt(p.ID, 10),
			Label: fmt.Sprintf("%s | %s%%/day | %d days | $%s-$%s", p.Title(), p.DailyROI.String(), p.DurationDays,
				p.MinDeposit.StringFixed(0), p.MaxDeposit.StringFixed(0)),
		})
	}

	findPlan := func(data map[string]string) (api.Plan, bool) {
		id, err := strconv.ParseInt(data[FieldPlan], 10, 64)
		if err != nil {
			return api.Plan{}, false
		}
		for _, p := range plans {
			if p.ID == id {
				return p, true
			}
		}
		return api.Plan{}, false
	}

	return Flow{
		Name: "investment",
		Steps: []Step{
			{
				Name: "Plan",
				Fields: []Field{
					{Name: FieldPlan, Label: "Plan", Kind: Choice, Options: planOptions},
				},
				Validate: func(data map[string]string) map[string]string {
					if _, ok := findPlan(data); !ok {
						return map[string]string{FieldPlan: MsgSelectPlan}
					}
					return nil
				},
			},
			{
				Name: "Amount",
				Fields: []Field{
					{Name: FieldAmount, Label: "Amount (" + currency + ")", Kind: Number},
				},
				Validate: func(data map[string]string) map[string]string {
					plan, ok := findPlan(data)
					if !ok {
						return map[string]string{FieldPlan: MsgSelectPlan}
					}
					amount, ok := ParseAmount(data[FieldAmount])
					if !ok {
						return map[string]string{FieldAmount: MsgInvalidAmount}
					}
					balance := availableBalance(user)
					if err := CheckAmount(amount, plan.MinDeposit, plan.MaxDeposit, balance); err != nil {
						return map[string]string{FieldAmount: err.Error()}
					}
					return nil
				},
				Info: func(data map[string]string, _ interface{}) []string {
					return []string{fmt.Sprintf("Available balance: $%s", availableBalance(user).StringFixed(2))}
				},
			},
			{
				Name:    "Confirm",
				Submits: true,
				Info: func(data map[string]string, _ interface{}) []string {
					plan, _ := findPlan(data)
					amount, _ := ParseAmount(data[FieldAmount])
					r := calc.InvestmentReturns(amount, plan.DailyROI, plan.DurationDays).Rounded()
					return []string{
						fmt.Sprintf("Plan: %s", plan.Title()),
						fmt.Sprintf("Amount: $%s", amount.StringFixed(2)),
						fmt.Sprintf("Daily profit: $%s", r.DailyProfit.StringFixed(2)),
						fmt.Sprintf("Total profit after %d days: $%s", plan.DurationDays, r.TotalProfit.StringFixed(2)),
						fmt.Sprintf("Total return: $%s", r.TotalReturn.StringFixed(2)),
					}
				},
			},
			{
				Name: "Result",
				Info: func(data map[string]string, result interface{}) []string {
					inv, ok := result.(*api.Investment)
					if !ok {
						return nil
					}
					return []string{
						fmt.Sprintf("Investment #%d created", inv.ID),
						fmt.Sprintf("Amount: $%s", inv.Amount.StringFixed(2)),
						fmt.Sprintf("Matures on %s", inv.EndDate.Format("2006-01-02")),
					}
				},
			},
		},
		Submit: func(ctx context.Context, data map[string]string) (interface{}, error) {
			if user.User() == nil {
				return nil, ErrSignedOut
			}
			plan, _ := findPlan(data)
			amount, _ := ParseAmount(data[FieldAmount])
			return creator.CreateInvestment(ctx, api.CreateInvestmentRequest{
				PlanID:   plan.ID,
				Amount:   amount,
				Currency: currency,
			})
		},
	}
}

func availableBalance(user CurrentUser) decimal.Decimal {
	if u := user.User(); u != nil {
		return u.Balance
	}
	return decimal.Zero
}
