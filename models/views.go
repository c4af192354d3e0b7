package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"coinvest/calc"
	"coinvest/poll"
	"coinvest/ui"
	"coinvest/wizard"
)

func (m *AppModel) menuView() string {
	title := ui.TitleStyle.Render("🪙 COINVEST 🪙\nCrypto Investment Terminal")

	var menu strings.Builder
	menu.WriteString("Choose an option:\n\n")

	authenticated := m.Authenticated()
	for i, item := range m.menu() {
		cursor := " "
		choice := item.label
		if m.Cursor == i {
			cursor = ">"
			choice = ui.SelectedStyle.Render(choice)
		} else {
			choice = ui.UnselectedStyle.Render(choice)
		}

		if !item.enabled(authenticated) {
			if item.needsAuth {
				choice = ui.DisabledStyle.Render(item.label + " (Login Required)")
			} else {
				choice = ui.DisabledStyle.Render(item.label + " (Logged In)")
			}
		}

		menu.WriteString(fmt.Sprintf("%s %s\n", cursor, choice))
	}

	authStatus := "🔴 Not Authenticated"
	if user := m.session.User(); user != nil {
		authStatus = fmt.Sprintf("🟢 Authenticated as %s", user.Email)
	}

	var banner string
	if m.Error != "" {
		banner = ui.NegativeStyle.Render("❌ "+m.Error) + "\n"
	} else if m.Notice != "" {
		banner = ui.PositiveStyle.Render("✔ "+m.Notice) + "\n"
	}

	footer := ui.InfoStyle.Render(fmt.Sprintf("\nStatus: %s\nPress 'q' to quit • Use ↑↓ to navigate • Enter to select • 1-9 shortcuts", authStatus))

	return fmt.Sprintf("%s\n\n%s%s\n%s", title, banner, ui.MenuStyle.Render(menu.String()), footer)
}

// formView renders any wizard from its step definitions.
func (m *AppModel) formView() string {
	if m.Form == nil {
		var content strings.Builder
		if m.Error != "" {
			content.WriteString(ui.NegativeStyle.Render("❌ "+m.Error) + "\n")
		} else {
			content.WriteString(ui.LoadingStyle.Render("🔄 Loading..."))
		}
		return fmt.Sprintf("%s\n%s", ui.HeaderStyle.Render("📈 INVEST"), ui.MenuStyle.Render(content.String()))
	}

	f := m.Form
	w := f.Wizard
	step := w.Current()
	title := ui.HeaderStyle.Render(fmt.Sprintf("%s  •  Step %d of %d: %s", f.Title, w.Step(), w.Total(), step.Name))

	var content strings.Builder

	if m.Notice != "" {
		content.WriteString(ui.PositiveStyle.Render("✔ "+m.Notice) + "\n\n")
	}
	if m.Error != "" {
		content.WriteString(ui.NegativeStyle.Render("❌ "+m.Error) + "\n\n")
	}

	switch w.Status() {
	case wizard.Submitting:
		content.WriteString(ui.LoadingStyle.Render("🔄 Submitting...") + "\n\n")
	case wizard.Failed:
		content.WriteString(ui.NegativeStyle.Render("❌ "+w.Reason()) + "\n\n")
	case wizard.Succeeded:
		content.WriteString(ui.PositiveStyle.Render("✔ Done") + "\n\n")
	}

	for i, field := range step.Fields {
		focused := i == f.Focus && w.Status() != wizard.Succeeded
		label := field.Label
		if field.Optional {
			label += " (optional)"
		}
		if focused {
			label = ui.SelectedStyle.Render("> " + label)
		} else {
			label = ui.UnselectedStyle.Render("  " + label)
		}
		content.WriteString(label + "\n")

		if field.Kind == wizard.Choice {
			content.WriteString(renderOptions(field, w.Value(field.Name), focused, f.Choice))
		} else {
			content.WriteString("  " + renderInput(field, w.Value(field.Name), focused) + "\n")
		}
		if msg := w.Error(field.Name); msg != "" {
			content.WriteString("  " + ui.FieldErrorStyle.Render(msg) + "\n")
		}
		content.WriteString("\n")
	}

	for _, line := range w.InfoLines() {
		if n, ok := m.cfg.Network(w.Value(wizard.FieldNetwork)); ok && line == n.Address {
			line = ui.AddressStyle.Render(line)
		}
		content.WriteString(line + "\n")
	}

	footer := "Enter to continue • Tab to switch field • Esc to go back • Ctrl+V to paste • Ctrl+A to clear"
	switch {
	case w.Status() == wizard.Succeeded:
		footer = "Press Enter to continue"
	case len(step.Fields) == 0 && w.Name() == "deposit":
		footer = "Enter to confirm payment • 'c' to copy the address • Esc to go back"
	}
	if w.Status() == wizard.Failed {
		footer += " • Ctrl+D to dismiss"
	}

	return fmt.Sprintf("%s\n%s\n%s", title, ui.MenuStyle.Render(content.String()), ui.InfoStyle.Render(footer))
}

func renderInput(field wizard.Field, value string, focused bool) string {
	shown := value
	if field.Kind == wizard.Secret {
		shown = strings.Repeat("*", len([]rune(value)))
	}
	if shown == "" && !focused {
		shown = ui.DisabledStyle.Render(field.Placeholder)
	}
	if focused {
		return ui.InputStyle.Render(shown + "│")
	}
	return ui.BlurredInputStyle.Render(shown)
}

func renderOptions(field wizard.Field, value string, focused bool, cursor int) string {
	var b strings.Builder
	for i, opt := range field.Options {
		mark := "( )"
		if strings.EqualFold(opt.Value, value) {
			mark = "(•)"
		}
		line := fmt.Sprintf("  %s %s", mark, opt.Label)
		if focused && i == cursor {
			line = ui.SelectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// DashboardView renders the account overview fed by the dashboard poll tasks.
func (m *AppModel) DashboardView() string {
	user := m.session.User()
	if user == nil || m.dash == nil {
		return "Please login first!"
	}

	title := ui.HeaderStyle.Render("📊 DASHBOARD")
	d := m.dash

	var content strings.Builder

	if m.Error != "" {
		content.WriteString(ui.NegativeStyle.Render("❌ "+m.Error) + "\n\n")
	}

	name := user.FullName
	if name == "" {
		name = user.Email
	}
	content.WriteString(fmt.Sprintf("Welcome back, %s\n\n", ui.ValueStyle.Render(name)))

	bal := d.balance.Snapshot()
	content.WriteString("💼 ACCOUNT\n")
	content.WriteString("══════════\n")
	switch {
	case bal.HasValue:
		content.WriteString(fmt.Sprintf("Balance:          %s", ui.FormatMoney(bal.Value)))
		if delta := poll.ChangeOf(bal); bal.HasPrevious && !delta.Absolute.IsZero() {
			content.WriteString("  " + ui.FormatDelta(delta.Absolute))
		}
		content.WriteString("\n")
		if d.hasYesterday {
			delta := poll.Change(d.yesterday, bal.Value, true)
			line := fmt.Sprintf("Since yesterday:  %s", ui.FormatDelta(delta.Absolute))
			if delta.PercentOK {
				line += fmt.Sprintf(" (%s)", ui.FormatPercentage(delta.Percent.InexactFloat64()))
			}
			content.WriteString(line + "\n")
		} else {
			content.WriteString("Since yesterday:  " + ui.DisabledStyle.Render("no history yet") + "\n")
		}
	case bal.Fetching:
		content.WriteString(ui.LoadingStyle.Render("🔄 Loading balance...") + "\n")
	default:
		content.WriteString(fmt.Sprintf("Balance:          %s (cached)\n", ui.FormatMoney(user.Balance)))
	}

	inv := d.investments.Snapshot()
	if inv.HasValue {
		content.WriteString(fmt.Sprintf("Active plans:     %d\n", activeCount(inv.Value)))

		dist := d.allocation(user.Balance)
		if shares := dist.Sorted(); len(shares) > 0 {
			content.WriteString("\n🥧 ALLOCATION\n")
			content.WriteString("═════════════\n")
			for _, s := range shares {
				content.WriteString(fmt.Sprintf("%-18s %s %3.0f%%\n", s.Asset, ui.ProgressBar(s.Percent, 20), s.Percent))
			}
			content.WriteString(fmt.Sprintf("%-18s %s %3.0f%%\n", "Cash", ui.ProgressBar(dist.Other, 20), dist.Other))
		}
	}

	prices := d.prices.Snapshot()
	if prices.HasValue && len(prices.Value) > 0 {
		content.WriteString("\n💹 PRICES\n")
		content.WriteString("═════════\n")
		symbols := make([]string, 0, len(prices.Value))
		for s := range prices.Value {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
		for _, s := range symbols {
			p := prices.Value[s]
			content.WriteString(fmt.Sprintf("%-6s %-16s %s\n", s, ui.FormatPrice(p.USD), ui.FormatPercentage(p.ChangePercent24h)))
		}
	}

	trends := d.trends.Snapshot()
	if trends.HasValue && len(trends.Value) > 0 {
		top := trends.Value[0]
		for _, t := range trends.Value[1:] {
			if t.ChangePercent24h > top.ChangePercent24h {
				top = t
			}
		}
		content.WriteString(fmt.Sprintf("\nTop mover: %s %s\n", strings.ToUpper(top.Symbol), ui.FormatPercentage(top.ChangePercent24h)))
	}

	if !bal.LastFetchedAt.IsZero() {
		content.WriteString(fmt.Sprintf("\nLast updated: %s\n", bal.LastFetchedAt.Format("3:04:05 PM")))
	}

	footer := ui.InfoStyle.Render(fmt.Sprintf("Press 'R' or 'F5' to refresh • 'Esc' to return to menu • Balance refreshes every %s", m.cfg.Polling.Balance))

	return fmt.Sprintf("%s\n%s\n%s", title, ui.MenuStyle.Render(content.String()), footer)
}

func (m *AppModel) investmentRows(now time.Time) string {
	if len(m.Investments) == 0 {
		return "No investments yet. Pick a plan from the Invest menu.\n"
	}

	var b strings.Builder
	b.WriteString(ui.TableHeaderStyle.Render(fmt.Sprintf("%-5s %-20s %12s  %-10s %-22s %s", "ID", "Plan", "Amount", "Status", "Progress", "Left")) + "\n")
	b.WriteString(strings.Repeat("─", 84) + "\n")

	for _, inv := range m.Investments {
		pct := calc.ProgressPercent(inv.StartDate.Time, inv.EndDate.Time, now)
		left := "done"
		if inv.Status.Active() {
			left = fmt.Sprintf("%dd", calc.DaysRemaining(inv.EndDate.Time, now))
		}
		b.WriteString(fmt.Sprintf("%-5d %-20s %12s  %-10s %s %3.0f%% %s\n",
			inv.ID,
			truncate(inv.PlanName, 20),
			"$"+inv.Amount.StringFixed(2),
			inv.Status,
			ui.ProgressBar(pct, 16),
			pct,
			left,
		))
	}
	return b.String()
}

func (m *AppModel) investmentsView() string {
	return m.listView("🗂  MY INVESTMENTS", "investments")
}

func (m *AppModel) transactionRows() string {
	if len(m.Transactions) == 0 {
		return "No transactions yet.\n"
	}

	var b strings.Builder
	b.WriteString(ui.TableHeaderStyle.Render(fmt.Sprintf("%-17s %-12s %12s  %-10s %s", "Date", "Type", "Amount", "Status", "Description")) + "\n")
	b.WriteString(strings.Repeat("─", 84) + "\n")

	for _, tx := range m.Transactions {
		amount := "$" + tx.Amount.StringFixed(2)
		switch strings.ToLower(tx.Type) {
		case "withdrawal", "investment":
			amount = ui.NegativeStyle.Render(fmt.Sprintf("%12s", "-"+amount))
		default:
			amount = ui.PositiveStyle.Render(fmt.Sprintf("%12s", "+"+amount))
		}
		b.WriteString(fmt.Sprintf("%-17s %-12s %s  %-10s %s\n",
			tx.CreatedAt.Local().Format("2006-01-02 15:04"),
			tx.Type,
			amount,
			tx.Status,
			truncate(tx.Description, 30),
		))
	}
	return b.String()
}

func (m *AppModel) transactionsView() string {
	return m.listView("📋 TRANSACTIONS", "transactions")
}

func (m *AppModel) listView(heading, noun string) string {
	title := ui.HeaderStyle.Render(heading)

	var content strings.Builder
	if m.Error != "" {
		content.WriteString(ui.NegativeStyle.Render("❌ "+m.Error) + "\n\n")
	}
	if m.Loading {
		content.WriteString(ui.LoadingStyle.Render("🔄 Loading " + noun + "..."))
	} else {
		content.WriteString(m.list.View())
	}

	footer := ui.InfoStyle.Render(fmt.Sprintf("↑↓/PgUp/PgDn to scroll • %3.0f%% • 'R' to refresh • 'Esc' to return to menu", m.list.ScrollPercent()*100))
	return fmt.Sprintf("%s\n%s\n%s", title, ui.MenuStyle.Render(content.String()), footer)
}

// marketDataView renders the public market trends for the watch list.
func (m *AppModel) marketDataView() string {
	title := ui.HeaderStyle.Render("🌐 CRYPTO MARKET DATA")

	var content strings.Builder

	if m.Error != "" {
		content.WriteString(ui.NegativeStyle.Render("❌ "+m.Error) + "\n\n")
	}

	if m.Loading {
		content.WriteString(ui.LoadingStyle.Render("🔄 Loading market data..."))
	} else if len(m.Trends) == 0 {
		content.WriteString("No market data available.\n")
	} else {
		content.WriteString(ui.TableHeaderStyle.Render(fmt.Sprintf("%-6s %-14s %-16s %-12s %-10s %s", "Symbol", "Name", "Price", "24h", "Volume", "Market Cap")) + "\n")
		content.WriteString(strings.Repeat("─", 80) + "\n")
		for _, t := range m.Trends {
			content.WriteString(fmt.Sprintf("%-6s %-14s %-16s %-12s %-10s %s\n",
				strings.ToUpper(t.Symbol),
				truncate(t.Name, 14),
				ui.FormatPrice(t.Price),
				ui.FormatPercentage(t.ChangePercent24h),
				ui.FormatCompact(t.Volume24h),
				ui.FormatCompact(t.MarketCap),
			))
		}
	}

	footer := ui.InfoStyle.Render("Press 'R' or 'F5' to refresh • 'Esc' to return to menu")
	return fmt.Sprintf("%s\n%s\n%s", title, ui.MenuStyle.Render(content.String()), footer)
}

func (m *AppModel) helpView() string {
	title := ui.HeaderStyle.Render("❓ HELP & INFORMATION")

	content := `
🪙 COINVEST HELP
════════════════

KEYBOARD SHORTCUTS:
  ↑↓ or jk    - Navigate menu options
  Enter/Space - Select option
  1-9         - Jump to a menu entry
  Esc         - Go back a step / return to main menu
  Q           - Quit application (from main menu)
  R/F5        - Refresh data

FORMS:
  Tab         - Next field
  ↑↓          - Pick an option
  Ctrl+V      - Paste from the clipboard
  Ctrl+A      - Clear the field
  C           - Copy the deposit address (payment step)

FEATURES:
  💰 Deposits    - Fund your account through a crypto network
  📈 Plans       - Starter and Pro tiers with daily returns
  💸 Withdrawals - Authorised with your 4-digit transaction PIN
  📊 Dashboard   - Balance, prices and plans refresh on their own

SECURITY NOTES:
  • Your session token is kept in a signed cookie file
  • The token expires; log in again when asked
  • Your password and PIN are never stored
`

	footer := ui.InfoStyle.Render("Press 'Esc' to return to menu")

	return fmt.Sprintf("%s\n%s\n%s", title, ui.MenuStyle.Render(content), footer)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
