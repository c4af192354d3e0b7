package models

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"coinvest/config"
	"coinvest/wizard"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
)

func (m *AppModel) openForm(title string, flow wizard.Flow, after func(m *AppModel) (tea.Model, tea.Cmd)) {
	w, err := wizard.New(flow)
	if err != nil {
		m.logger.Error("invalid flow", "flow", flow.Name, "error", err)
		m.Error = err.Error()
		return
	}
	m.State = StateForm
	m.Form = &FormState{Wizard: w, Title: title, afterSuccess: after}
}

func (m *AppModel) openLogin() {
	m.leaveView()
	m.openForm("🔐 LOG IN", wizard.LoginFlow(m.session), (*AppModel).openDashboard)
}

func (m *AppModel) openSignup() (tea.Model, tea.Cmd) {
	m.leaveView()
	m.openForm("📝 CREATE ACCOUNT", wizard.SignupFlow(m.client), func(m *AppModel) (tea.Model, tea.Cmd) {
		m.openLogin()
		m.Notice = "Account created. Log in to continue."
		return m, nil
	})
	return m, nil
}

func (m *AppModel) openDeposit() (tea.Model, tea.Cmd) {
	m.leaveView()
	opts := wizard.DepositOptions{
		MinDeposit: decimal.NewFromFloat(m.cfg.MinDeposit),
		Currency:   m.cfg.Currency,
		Networks:   m.cfg.Networks,
	}
	m.openForm("💰 DEPOSIT", wizard.DepositFlow(opts, m.session, m.client), backToMenu)
	return m, nil
}

// openInvest loads the plan catalogue first; the form opens when it arrives.
func (m *AppModel) openInvest() (tea.Model, tea.Cmd) {
	m.leaveView()
	m.State = StateForm
	m.Loading = true
	return m, m.loadPlansCmd()
}

func (m *AppModel) openInvestForm() {
	m.openForm("📈 INVEST", wizard.InvestmentFlow(m.Plans, m.cfg.Currency, m.session, m.client), backToMenu)
}

func (m *AppModel) openWithdraw() (tea.Model, tea.Cmd) {
	m.leaveView()
	m.openForm("💸 WITHDRAW", wizard.WithdrawalFlow(m.cfg.Currency, m.cfg.Networks, m.session, m.client), backToMenu)
	return m, nil
}

func backToMenu(m *AppModel) (tea.Model, tea.Cmd) {
	m.leaveView()
	m.State = StateMenu
	return m, nil
}

func (m *AppModel) handleFormStep(msg formStepMsg) (tea.Model, tea.Cmd) {
	if m.Form != msg.form {
		return m, nil
	}
	m.Form.Focus = 0
	m.Form.Choice = 0

	switch {
	case msg.err == nil, errors.Is(msg.err, wizard.ErrStepInvalid):
		m.Error = ""
	case errors.Is(msg.err, wizard.ErrBusy):
		m.Error = "Still submitting, please wait."
	default:
		m.logger.Debug("form transition refused", "flow", m.Form.Wizard.Name(), "error", msg.err)
	}

	// A successful login has nothing to confirm.
	w := m.Form.Wizard
	if w.Status() == wizard.Succeeded && w.Name() == "login" {
		return m.Form.afterSuccess(m)
	}
	return m, nil
}

func (m *AppModel) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.Form
	if f == nil {
		return m, nil
	}
	w := f.Wizard
	fields := w.Current().Fields

	if w.Status() == wizard.Submitting {
		return m, nil
	}

	if w.Status() == wizard.Succeeded {
		switch msg.String() {
		case "enter", "esc":
			if f.afterSuccess != nil {
				return f.afterSuccess(m)
			}
			return backToMenu(m)
		}
		return m, nil
	}

	var focused *wizard.Field
	if f.Focus < len(fields) {
		focused = &fields[f.Focus]
	}

	switch msg.String() {
	case "esc":
		if w.Step() > 1 {
			_ = w.Previous()
			f.Focus, f.Choice = 0, 0
			return m, nil
		}
		return backToMenu(m)

	case "tab", "shift+tab":
		if len(fields) > 0 {
			delta := 1
			if msg.String() == "shift+tab" {
				delta = len(fields) - 1
			}
			f.Focus = (f.Focus + delta) % len(fields)
			f.Choice = 0
		}
		return m, nil

	case "up", "down":
		if focused != nil && focused.Kind == wizard.Choice && len(focused.Options) > 0 {
			if msg.String() == "up" && f.Choice > 0 {
				f.Choice--
			}
			if msg.String() == "down" && f.Choice < len(focused.Options)-1 {
				f.Choice++
			}
			return m, nil
		}
		if len(fields) > 0 {
			if msg.String() == "up" && f.Focus > 0 {
				f.Focus--
			}
			if msg.String() == "down" && f.Focus < len(fields)-1 {
				f.Focus++
			}
		}
		return m, nil

	case "enter":
		if focused != nil && focused.Kind == wizard.Choice && len(focused.Options) > 0 {
			value := focused.Options[f.Choice].Value
			name := focused.Name
			if len(fields) == 1 {
				return m, m.formCmd(f, func(ctx context.Context, w *wizard.Wizard) error {
					return w.Select(ctx, name, value)
				})
			}
			_ = w.Update(name, value)
			f.Focus = (f.Focus + 1) % len(fields)
			f.Choice = 0
			return m, nil
		}
		if focused != nil && f.Focus < len(fields)-1 {
			f.Focus++
			return m, nil
		}
		return m, m.formCmd(f, func(ctx context.Context, w *wizard.Wizard) error {
			return w.Next(ctx)
		})

	case "ctrl+v":
		if focused != nil && focused.Kind != wizard.Choice {
			text, err := clipboard.ReadAll()
			if err == nil && text != "" {
				text = strings.ReplaceAll(text, "\n", "")
				text = strings.ReplaceAll(text, "\r", "")
				_ = w.Update(focused.Name, w.Value(focused.Name)+strings.TrimSpace(text))
			}
		}
		return m, nil

	case "ctrl+d":
		if w.Status() == wizard.Failed {
			_ = w.Dismiss()
		}
		return m, nil

	case "ctrl+a":
		if focused != nil {
			_ = w.Update(focused.Name, "")
		}
		return m, nil

	case "backspace":
		if focused != nil && focused.Kind != wizard.Choice {
			if v := []rune(w.Value(focused.Name)); len(v) > 0 {
				_ = w.Update(focused.Name, string(v[:len(v)-1]))
			}
		}
		return m, nil

	case "c":
		// The payment step has no inputs; c copies the address to pay.
		if focused == nil && w.Name() == "deposit" {
			if n, ok := m.cfg.Network(w.Value(wizard.FieldNetwork)); ok {
				m.copyAddress(n)
			}
			return m, nil
		}
	}

	if focused != nil && focused.Kind != wizard.Choice && msg.Type == tea.KeyRunes {
		value := w.Value(focused.Name)
		for _, r := range msg.Runes {
			if unicode.IsPrint(r) {
				value += string(r)
			}
		}
		_ = w.Update(focused.Name, value)
	}
	return m, nil
}

func (m *AppModel) copyAddress(n config.Network) {
	if err := clipboard.WriteAll(n.Address); err != nil {
		m.Error = "Could not copy the address: " + err.Error()
		return
	}
	m.Notice = n.Name + " address copied to the clipboard."
}
