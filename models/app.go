package models

import (
	"context"
	"log/slog"
	"time"

	"coinvest/api"
	"coinvest/auth"
	"coinvest/config"
	"coinvest/store"
	"coinvest/wizard"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
)

// Deps are the services the application model drives.
type Deps struct {
	Config  *config.Config
	Client  *api.Client
	Market  *api.MarketClient
	Session *auth.Store
	DB      *store.DB
	Logger  *slog.Logger
}

type AppModel struct {
	State  int
	Cursor int
	Width  int
	Height int
	Error  string
	Notice string

	cfg     *config.Config
	client  *api.Client
	market  *api.MarketClient
	session *auth.Store
	db      *store.DB
	logger  *slog.Logger

	// ctx is cancelled when the program exits.
	ctx    context.Context
	cancel context.CancelFunc

	Form *FormState
	dash *dashboard

	Plans        []api.Plan
	Investments  []api.Investment
	Transactions []api.Transaction
	Trends       []api.MarketTrend
	Loading      bool

	list viewport.Model
}

// FormState is the focused wizard plus the cursor state the engine does not track.
type FormState struct {
	Wizard *wizard.Wizard
	Title  string
	Focus  int
	Choice int

	// afterSuccess runs once the flow has succeeded and the user confirms the result.
	afterSuccess func(m *AppModel) (tea.Model, tea.Cmd)
}

type menuItem struct {
	label     string
	needsAuth bool
	guestOnly bool
	open      func(m *AppModel) (tea.Model, tea.Cmd)
}

// App states
const (
	StateMenu = iota
	StateForm
	StateDashboard
	StateInvestments
	StateTransactions
	StateMarketData
	StateHelp
)

func NewAppModel(deps Deps) *AppModel {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &AppModel{
		State:   StateMenu,
		cfg:     deps.Config,
		client:  deps.Client,
		market:  deps.Market,
		session: deps.Session,
		db:      deps.DB,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		list:    viewport.New(80, 20),
	}
	m.session.OnLogout = func() {
		m.leaveView()
		m.openLogin()
	}
	return m
}

func (m *AppModel) Authenticated() bool {
	return m.session.IsAuthenticated()
}

func (m *AppModel) menu() []menuItem {
	return []menuItem{
		{label: "📊 Dashboard", needsAuth: true, open: (*AppModel).openDashboard},
		{label: "💰 Deposit", needsAuth: true, open: (*AppModel).openDeposit},
		{label: "📈 Invest", needsAuth: true, open: (*AppModel).openInvest},
		{label: "💸 Withdraw", needsAuth: true, open: (*AppModel).openWithdraw},
		{label: "🗂  My Investments", needsAuth: true, open: (*AppModel).openInvestments},
		{label: "📋 Transactions", needsAuth: true, open: (*AppModel).openTransactions},
		{label: "🌐 Market", open: (*AppModel).openMarket},
		{label: "🔐 Log In", guestOnly: true, open: func(m *AppModel) (tea.Model, tea.Cmd) {
			m.openLogin()
			return m, nil
		}},
		{label: "📝 Sign Up", guestOnly: true, open: (*AppModel).openSignup},
		{label: "❓ Help", open: func(m *AppModel) (tea.Model, tea.Cmd) {
			m.State = StateHelp
			return m, nil
		}},
		{label: "🔓 Logout", needsAuth: true, open: func(m *AppModel) (tea.Model, tea.Cmd) {
			m.session.Logout()
			m.Notice = "Signed out."
			return m, nil
		}},
		{label: "🚪 Exit", open: func(m *AppModel) (tea.Model, tea.Cmd) {
			m.shutdown()
			return m, tea.Quit
		}},
	}
}

func (item menuItem) enabled(authenticated bool) bool {
	if item.needsAuth && !authenticated {
		return false
	}
	if item.guestOnly && authenticated {
		return false
	}
	return true
}

// leaveView stops whatever the current view keeps running.
func (m *AppModel) leaveView() {
	if m.dash != nil {
		m.dash.stop()
		m.dash = nil
	}
	m.Form = nil
	m.Error = ""
	m.Loading = false
}

func (m *AppModel) shutdown() {
	m.leaveView()
	m.cancel()
}

// Bubble Tea interface methods
func (m *AppModel) Init() tea.Cmd {
	if m.Authenticated() {
		_, cmd := m.openDashboard()
		return cmd
	}
	return nil
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.list.Width = msg.Width
		m.list.Height = listHeight(msg.Height)
		return m, nil

	case formStepMsg:
		return m.handleFormStep(msg)

	case pollUpdateMsg:
		if m.dash == nil || m.dash.id != msg.dashboard {
			return m, nil
		}
		cmds := []tea.Cmd{m.dash.waitForUpdate()}
		if msg.task == taskBalance {
			cmds = append(cmds, m.loadYesterdayCmd(m.dash.id))
		}
		return m, tea.Batch(cmds...)

	case yesterdayLoadedMsg:
		if m.dash != nil && m.dash.id == msg.dashboard {
			m.dash.yesterday = msg.balance
			m.dash.hasYesterday = msg.ok
		}
		return m, nil

	case plansLoadedMsg:
		m.Loading = false
		if msg.err != nil {
			return m.handleLoadError("Failed to load investment plans", msg.err)
		}
		m.Plans = msg.plans
		m.openInvestForm()
		return m, nil

	case investmentsLoadedMsg:
		m.Loading = false
		if msg.err != nil {
			return m.handleLoadError("Failed to load investments", msg.err)
		}
		m.Investments = msg.investments
		m.list.SetContent(m.investmentRows(time.Now()))
		m.list.GotoTop()
		return m, nil

	case transactionsLoadedMsg:
		m.Loading = false
		if msg.err != nil {
			return m.handleLoadError("Failed to load transactions", msg.err)
		}
		m.Transactions = msg.transactions
		m.list.SetContent(m.transactionRows())
		m.list.GotoTop()
		return m, nil

	case marketDataLoadedMsg:
		m.Loading = false
		if msg.err != nil {
			return m.handleLoadError("Failed to load market data", msg.err)
		}
		m.Trends = msg.trends
		return m, nil

	case sessionRefreshedMsg:
		if msg.err != nil {
			m.logger.Info("session could not be renewed", "error", msg.err)
			m.session.Logout()
			m.Error = "Your session has expired. Please log in again."
			return m, nil
		}
		m.Notice = "Session renewed."
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	return m, nil
}

// handleLoadError shows err, and renews the session when the backend rejected the token.
func (m *AppModel) handleLoadError(prefix string, err error) (tea.Model, tea.Cmd) {
	if api.IsUnauthorized(err) {
		return m, m.refreshSessionCmd()
	}
	m.Error = prefix + ": " + api.UserMessage(err)
	return m, nil
}

func (m *AppModel) View() string {
	switch m.State {
	case StateMenu:
		return m.menuView()
	case StateForm:
		return m.formView()
	case StateDashboard:
		return m.DashboardView()
	case StateInvestments:
		return m.investmentsView()
	case StateTransactions:
		return m.transactionsView()
	case StateMarketData:
		return m.marketDataView()
	case StateHelp:
		return m.helpView()
	default:
		return m.menuView()
	}
}

// Message types for Bubble Tea
type formStepMsg struct {
	form *FormState
	err  error
}
type plansLoadedMsg struct {
	plans []api.Plan
	err   error
}
type investmentsLoadedMsg struct {
	investments []api.Investment
	err         error
}
type transactionsLoadedMsg struct {
	transactions []api.Transaction
	err          error
}
type marketDataLoadedMsg struct {
	trends []api.MarketTrend
	err    error
}
type yesterdayLoadedMsg struct {
	dashboard int
	balance   decimal.Decimal
	ok        bool
}
type sessionRefreshedMsg struct{ err error }

// formCmd runs a wizard transition off the update loop; submits may hit the network.
func (m *AppModel) formCmd(form *FormState, step func(ctx context.Context, w *wizard.Wizard) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return formStepMsg{form: form, err: step(ctx, form.Wizard)}
	}
}

func (m *AppModel) loadPlansCmd() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		plans, err := m.client.GetInvestmentPlans(ctx)
		return plansLoadedMsg{plans: plans, err: err}
	}
}

func (m *AppModel) loadInvestmentsCmd() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		investments, err := m.client.GetInvestments(ctx)
		return investmentsLoadedMsg{investments: investments, err: err}
	}
}

func (m *AppModel) loadTransactionsCmd() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		txs, err := m.client.GetTransactions(ctx)
		return transactionsLoadedMsg{transactions: txs, err: err}
	}
}

func (m *AppModel) loadMarketDataCmd() tea.Cmd {
	ctx := m.ctx
	symbols := m.cfg.WatchList
	return func() tea.Msg {
		trends, err := m.market.GetTrends(ctx, symbols)
		return marketDataLoadedMsg{trends: trends, err: err}
	}
}

func (m *AppModel) loadYesterdayCmd(dashboard int) tea.Cmd {
	user := m.session.User()
	if user == nil || m.db == nil {
		return nil
	}
	return func() tea.Msg {
		balance, ok, err := m.db.PreviousDayBalance(user.ID, time.Now())
		if err != nil {
			m.logger.Warn("previous day balance unavailable", "error", err)
		}
		return yesterdayLoadedMsg{dashboard: dashboard, balance: balance, ok: ok}
	}
}

func (m *AppModel) refreshSessionCmd() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return sessionRefreshedMsg{err: m.session.RotateAccessToken(ctx)}
	}
}

func listHeight(windowHeight int) int {
	if h := windowHeight - 10; h > 5 {
		return h
	}
	return 5
}
