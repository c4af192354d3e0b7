package wizard

import (
	"context"
	"strings"

	"coinvest/api"
	"coinvest/auth"
)

type SessionLogin interface {
	Login(ctx context.Context, email, password string) auth.LoginResult
}

func LoginFlow(s SessionLogin) Flow {
	return Flow{
		Name: "login",
		Steps: []Step{
			{
				Name: "Log in",
				Fields: []Field{
					{Name: FieldEmail, Label: "Email", Kind: Text, Placeholder: "you@example.com"},
					{Name: FieldPassword, Label: "Password", Kind: Secret},
				},
				Validate: func(data map[string]string) map[string]string {
					errs := map[string]string{}
					if !validEmail(data[FieldEmail]) {
						errs[FieldEmail] = MsgInvalidEmail
					}
					if data[FieldPassword] == "" {
						errs[FieldPassword] = MsgPasswordRequired
					}
					return errs
				},
			},
		},
		Submit: func(ctx context.Context, data map[string]string) (interface{}, error) {
			res := s.Login(ctx, strings.TrimSpace(data[FieldEmail]), data[FieldPassword])
			if !res.OK {
				return nil, &api.UserError{Message: res.Message}
			}
			return res, nil
		},
	}
}
