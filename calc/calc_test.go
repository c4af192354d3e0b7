package calc

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInvestmentReturns(t *testing.T) {
	r := InvestmentReturns(decimal.NewFromInt(1000), decimal.NewFromInt(5), 7).Rounded()

	assert.Equal(t, "50", r.DailyProfit.String())
	assert.Equal(t, "350", r.TotalProfit.String())
	assert.Equal(t, "1350", r.TotalReturn.String())
	assert.Equal(t, "1350.00", r.TotalReturn.StringFixed(2))
}

func TestInvestmentReturnsKeepsPrecision(t *testing.T) {
	raw := InvestmentReturns(decimal.RequireFromString("333.33"), decimal.RequireFromString("1.5"), 30)

	assert.Equal(t, "4.99995", raw.DailyProfit.String())
	assert.Equal(t, "149.9985", raw.TotalProfit.String())
	assert.Equal(t, "150", raw.Rounded().TotalProfit.String())
}

func TestProgressPercent(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want float64
	}{
		{name: "midway", now: time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), want: 50},
		{name: "before start", now: start.Add(-time.Hour), want: 0},
		{name: "at start", now: start, want: 0},
		{name: "at end", now: end, want: 100},
		{name: "after end", now: end.AddDate(0, 1, 0), want: 100},
		{name: "one day in", now: start.AddDate(0, 0, 1), want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ProgressPercent(start, end, tt.now), 1e-9)
		})
	}
}

func TestProgressPercentDegenerateRange(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0.0, ProgressPercent(at, at, at))
	assert.Equal(t, 100.0, ProgressPercent(at, at, at.Add(time.Second)))
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysRemaining(now, now))
	assert.Equal(t, 1, DaysRemaining(now.Add(time.Hour), now))
	assert.Equal(t, 3, DaysRemaining(now.AddDate(0, 0, 3), now))
}

func TestPortfolioDistribution(t *testing.T) {
	holdings := map[string]float64{"BTC": 0.5, "ETH": 2}
	prices := map[string]float64{"BTC": 60000, "ETH": 3000}

	d := PortfolioDistribution(holdings, prices, 40000)

	assert.Equal(t, 75.0, d.Assets["BTC"])
	assert.Equal(t, 15.0, d.Assets["ETH"])
	assert.Equal(t, 10.0, d.Other)
	assert.Equal(t, []Share{{"BTC", 75}, {"ETH", 15}}, d.Sorted())
}

func TestPortfolioDistributionOtherNeverNegative(t *testing.T) {
	holdings := map[string]float64{"A": 1, "B": 1, "C": 1}
	prices := map[string]float64{"A": 33.5, "B": 33.5, "C": 33.5}

	d := PortfolioDistribution(holdings, prices, 100)

	assert.Equal(t, 34.0, d.Assets["A"])
	assert.Equal(t, 0.0, d.Other)
}

func TestPortfolioDistributionMissingPrice(t *testing.T) {
	d := PortfolioDistribution(map[string]float64{"BTC": 1, "XYZ": 10}, map[string]float64{"BTC": 50}, 100)

	assert.Equal(t, 50.0, d.Assets["BTC"])
	assert.Equal(t, 0.0, d.Assets["XYZ"])
	assert.Equal(t, 50.0, d.Other)
}

func TestPortfolioDistributionEmptyTotal(t *testing.T) {
	d := PortfolioDistribution(map[string]float64{"BTC": 1}, map[string]float64{"BTC": 50}, 0)

	assert.Equal(t, 0.0, d.Assets["BTC"])
	assert.Equal(t, 100.0, d.Other)
}
