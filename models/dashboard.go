package models

import (
	"context"
	"sync/atomic"
	"time"

	"coinvest/api"
	"coinvest/calc"
	"coinvest/poll"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
)

const (
	taskBalance     = "balance"
	taskPrices      = "prices"
	taskTrends      = "trends"
	taskInvestments = "investments"

	balanceRetentionDays = 90
)

var dashboardSeq int64

// dashboard owns the refresh loops of the dashboard view. They run from openDashboard until
// the view is left.
type dashboard struct {
	id      int
	group   *poll.Group
	ctx     context.Context
	cancel  context.CancelFunc
	updates chan string

	balance     *poll.Task[decimal.Decimal]
	prices      *poll.Task[map[string]api.CoinPrice]
	trends      *poll.Task[[]api.MarketTrend]
	investments *poll.Task[[]api.Investment]

	yesterday    decimal.Decimal
	hasYesterday bool
}

// pollUpdateMsg reports that a dashboard task stored a new value.
type pollUpdateMsg struct {
	dashboard int
	task      string
}

func (m *AppModel) newDashboard() *dashboard {
	ctx, cancel := context.WithCancel(m.ctx)
	d := &dashboard{
		id:      int(atomic.AddInt64(&dashboardSeq, 1)),
		group:   poll.NewGroup(),
		ctx:     ctx,
		cancel:  cancel,
		updates: make(chan string, 8),
	}
	intervals := m.cfg.Polling
	symbols := m.cfg.WatchList

	d.balance = poll.NewTask(taskBalance, intervals.Balance, func(ctx context.Context) (decimal.Decimal, error) {
		b, err := m.client.GetBalance(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		return b.Balance, nil
	}, m.logger)
	d.balance.OnSuccess = m.recordBalance

	d.prices = poll.NewTask(taskPrices, intervals.Prices, func(ctx context.Context) (map[string]api.CoinPrice, error) {
		return m.market.GetPrices(ctx, symbols)
	}, m.logger)

	d.trends = poll.NewTask(taskTrends, intervals.Trends, func(ctx context.Context) ([]api.MarketTrend, error) {
		return m.market.GetTrends(ctx, symbols)
	}, m.logger)

	d.investments = poll.NewTask(taskInvestments, intervals.Investments, m.client.GetInvestments, m.logger)

	d.balance.Subscribe(d.updates)
	d.prices.Subscribe(d.updates)
	d.trends.Subscribe(d.updates)
	d.investments.Subscribe(d.updates)

	d.group.Go(ctx, d.balance)
	d.group.Go(ctx, d.prices)
	d.group.Go(ctx, d.trends)
	d.group.Go(ctx, d.investments)
	return d
}

// recordBalance runs on the poll goroutine after each balance fetch.
func (m *AppModel) recordBalance(balance decimal.Decimal) {
	if err := m.session.UpdateUserBalance(balance); err != nil {
		m.logger.Debug("balance not cached", "error", err)
		return
	}
	user := m.session.User()
	if user == nil || m.db == nil {
		return
	}
	if err := m.db.RecordBalance(user.ID, time.Now(), balance); err != nil {
		m.logger.Warn("balance snapshot failed", "error", err)
	}
}

// tickAll refreshes the account figures now instead of waiting for the next interval.
func (d *dashboard) tickAll() tea.Cmd {
	return func() tea.Msg {
		if d.ctx.Err() == nil {
			d.balance.Tick(d.ctx)
			d.investments.Tick(d.ctx)
		}
		return nil
	}
}

func (d *dashboard) stop() {
	d.cancel()
	d.group.Stop()
}

// waitForUpdate blocks until a task reports a new value or the dashboard is stopped.
func (d *dashboard) waitForUpdate() tea.Cmd {
	id, updates, done := d.id, d.updates, d.ctx.Done()
	return func() tea.Msg {
		select {
		case name := <-updates:
			return pollUpdateMsg{dashboard: id, task: name}
		case <-done:
			return nil
		}
	}
}

func (m *AppModel) openDashboard() (tea.Model, tea.Cmd) {
	m.leaveView()
	m.State = StateDashboard
	if m.db != nil {
		if err := m.db.PruneBalances(balanceRetentionDays); err != nil {
			m.logger.Warn("pruning balance snapshots failed", "error", err)
		}
	}
	m.dash = m.newDashboard()
	return m, tea.Batch(m.dash.waitForUpdate(), m.loadYesterdayCmd(m.dash.id))
}

// allocation splits the account between active plans and cash.
func (d *dashboard) allocation(cash decimal.Decimal) calc.Distribution {
	holdings := map[string]float64{}
	prices := map[string]float64{}
	total, _ := cash.Float64()

	for _, inv := range d.investments.Snapshot().Value {
		if !inv.Status.Active() {
			continue
		}
		name := inv.PlanName
		if name == "" {
			name = "Plan"
		}
		amount, _ := inv.Amount.Float64()
		holdings[name] += amount
		prices[name] = 1
		total += amount
	}
	return calc.PortfolioDistribution(holdings, prices, total)
}

func activeCount(investments []api.Investment) int {
	n := 0
	for _, inv := range investments {
		if inv.Status.Active() {
			n++
		}
	}
	return n
}
