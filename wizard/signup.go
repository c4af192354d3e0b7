package wizard

import (
	"context"
	"strings"
	"unicode/utf8"

	"coinvest/api"
)

const (
	FieldFullName        = "full_name"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirm_password"
	FieldReferralCode    = "referral_code"
	FieldPIN             = "transaction_pin"
	FieldConfirmPIN      = "confirm_pin"
)

type Registrar interface {
	Register(ctx context.Context, req api.RegisterRequest) (*api.Registration, error)
}

func SignupFlow(r Registrar) Flow {
	return Flow{
		Name: "signup",
		Steps: []Step{
			{
				Name: "Your details",
				Fields: []Field{
					{Name: FieldFullName, Label: "Full name", Kind: Text, Placeholder: "Satoshi Nakamoto"},
					{Name: FieldEmail, Label: "Email", Kind: Text, Placeholder: "you@example.com"},
				},
				Validate: validateSignupDetails,
			},
			{
				Name: "Password",
				Fields: []Field{
					{Name: FieldPassword, Label: "Password", Kind: Secret},
					{Name: FieldConfirmPassword, Label: "Confirm password", Kind: Secret},
				},
				Validate: validateSignupPassword,
			},
			{
				Name: "Referral",
				Fields: []Field{
					{Name: FieldReferralCode, Label: "Referral code", Kind: Text, Optional: true},
				},
			},
			{
				Name: "Transaction PIN",
				Fields: []Field{
					{Name: FieldPIN, Label: "4-digit PIN", Kind: Secret},
					{Name: FieldConfirmPIN, Label: "Confirm PIN", Kind: Secret},
				},
				Validate: validateSignupPIN,
				Info: func(data map[string]string, result interface{}) []string {
					if reg, ok := result.(*api.Registration); ok {
						msg := reg.Message
						if msg == "" {
							msg = "Registration successful"
						}
						return []string{msg, "You can now log in with " + data[FieldEmail] + "."}
					}
					return []string{"The PIN authorises withdrawals."}
				},
			},
		},
		Submit: func(ctx context.Context, data map[string]string) (interface{}, error) {
			return r.Register(ctx, api.RegisterRequest{
				FullName:       strings.TrimSpace(data[FieldFullName]),
				Email:          strings.TrimSpace(data[FieldEmail]),
				Password:       data[FieldPassword],
				ReferralCode:   strings.TrimSpace(data[FieldReferralCode]),
				TransactionPIN: data[FieldPIN],
			})
		},
	}
}

func validateSignupDetails(data map[string]string) map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(data[FieldFullName]) == "" {
		errs[FieldFullName] = MsgFullNameRequired
	}
	if !validEmail(data[FieldEmail]) {
		errs[FieldEmail] = MsgInvalidEmail
	}
	return errs
}

func validateSignupPassword(data map[string]string) map[string]string {
	errs := map[string]string{}
	if utf8.RuneCountInString(data[FieldPassword]) < 8 {
		errs[FieldPassword] = MsgPasswordShort
	}
	if data[FieldConfirmPassword] != data[FieldPassword] {
		errs[FieldConfirmPassword] = MsgPasswordMismatch
	}
	return errs
}

func validateSignupPIN(data map[string]string) map[string]string {
	errs := map[string]string{}
	if !validPIN(data[FieldPIN]) {
		errs[FieldPIN] = MsgInvalidPIN
	}
	if data[FieldConfirmPIN] != data[FieldPIN] {
		errs[FieldConfirmPIN] = MsgPINMismatch
	}
	return errs
}
