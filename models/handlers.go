package models

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (m *AppModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Forms take every printable key.
	if m.State == StateForm {
		if msg.String() == "ctrl+c" {
			m.shutdown()
			return m, tea.Quit
		}
		if m.Form == nil {
			if msg.String() == "esc" {
				return backToMenu(m)
			}
			return m, nil
		}
		return m.handleFormKeys(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		if m.State == StateMenu {
			m.shutdown()
			return m, tea.Quit
		}
		// Only quit from menu, otherwise go back
		return backToMenu(m)

	case "esc":
		return backToMenu(m)

	case "f5", "r":
		return m.refresh()
	}

	// Handle state-specific key presses
	switch m.State {
	case StateMenu:
		return m.handleMenuKeys(msg)
	case StateInvestments, StateTransactions:
		return m.handleListKeys(msg)
	}

	return m, nil
}

// refresh reloads the data of the current view. The dashboard polls on its own, so r ticks
// every task at once.
func (m *AppModel) refresh() (tea.Model, tea.Cmd) {
	if m.Loading {
		return m, nil
	}
	m.Error = ""
	switch m.State {
	case StateDashboard:
		if m.dash != nil {
			return m, m.dash.tickAll()
		}
	case StateInvestments:
		m.Loading = true
		return m, m.loadInvestmentsCmd()
	case StateTransactions:
		m.Loading = true
		return m, m.loadTransactionsCmd()
	case StateMarketData:
		m.Loading = true
		return m, m.loadMarketDataCmd()
	}
	return m, nil
}

func (m *AppModel) handleMenuKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.menu()
	switch msg.String() {
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(items)-1 {
			m.Cursor++
		}
	case "enter", " ":
		return m.handleMenuSelection()
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		idx := int(msg.String()[0] - '1')
		if idx < len(items) {
			m.Cursor = idx
			return m.handleMenuSelection()
		}
	}
	return m, nil
}

func (m *AppModel) handleMenuSelection() (tea.Model, tea.Cmd) {
	items := m.menu()
	if m.Cursor < 0 || m.Cursor >= len(items) {
		return m, nil
	}
	item := items[m.Cursor]
	if !item.enabled(m.Authenticated()) {
		if item.needsAuth {
			m.Error = "Please log in first."
		}
		return m, nil
	}
	m.Error = ""
	m.Notice = ""
	return item.open(m)
}

func (m *AppModel) openInvestments() (tea.Model, tea.Cmd) {
	m.leaveView()
	m.State = StateInvestments
	m.Loading = true
	m.list.SetContent("")
	return m, m.loadInvestmentsCmd()
}

func (m *AppModel) openTransactions() (tea.Model, tea.Cmd) {
	m.leaveView()
	m.State = StateTransactions
	m.Loading = true
	m.list.SetContent("")
	return m, m.loadTransactionsCmd()
}

func (m *AppModel) openMarket() (tea.Model, tea.Cmd) {
	m.leaveView()
	m.State = StateMarketData
	m.Loading = true
	return m, m.loadMarketDataCmd()
}

func (m *AppModel) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}
