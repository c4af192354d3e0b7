// Package calc holds the pure arithmetic behind the dashboard and the investment screens.
package calc

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Returns is the projected outcome of an investment. Values are unrounded; call Rounded for
// display.
type Returns struct {
	DailyProfit decimal.Decimal
	TotalProfit decimal.Decimal
	TotalReturn decimal.Decimal
}

func InvestmentReturns(amount, dailyROIPercent decimal.Decimal, durationDays int) Returns {
	daily := amount.Mul(dailyROIPercent).Div(hundred)
	total := daily.Mul(decimal.NewFromInt(int64(durationDays)))
	return Returns{
		DailyProfit: daily,
		TotalProfit: total,
		TotalReturn: amount.Add(total),
	}
}

// Rounded returns the values rounded to cents.
func (r Returns) Rounded() Returns {
	return Returns{
		DailyProfit: r.DailyProfit.Round(2),
		TotalProfit: r.TotalProfit.Round(2),
		TotalReturn: r.TotalReturn.Round(2),
	}
}

// ProgressPercent is how far now lies between start and end, in [0, 100].
func ProgressPercent(start, end, now time.Time) float64 {
	if !now.After(start) {
		return 0
	}
	if !now.Before(end) {
		return 100
	}

	pct := float64(now.Sub(start)) / float64(end.Sub(start)) * 100
	return math.Max(0, math.Min(100, pct))
}

// DaysRemaining counts whole days left until end, rounding partial days up.
func DaysRemaining(end, now time.Time) int {
	if !now.Before(end) {
		return 0
	}
	return int(math.Ceil(end.Sub(now).Hours() / 24))
}

type Share struct {
	Asset   string
	Percent float64
}

// Distribution splits a portfolio into whole-number percentages. Other absorbs what the
// assets leave over and is never negative.
type Distribution struct {
	Assets map[string]float64
	Other  float64
}

// PortfolioDistribution values each holding at its price and expresses it as a share of
// totalValue. Assets without a price count as zero. A non-positive total is all Other.
func PortfolioDistribution(holdings, prices map[string]float64, totalValue float64) Distribution {
	d := Distribution{Assets: make(map[string]float64, len(holdings))}
	if totalValue <= 0 {
		for asset := range holdings {
			d.Assets[asset] = 0
		}
		d.Other = 100
		return d
	}

	sum := 0.0
	for asset, qty := range holdings {
		pct := math.Round(qty * prices[asset] / totalValue * 100)
		d.Assets[asset] = pct
		sum += pct
	}
	d.Other = math.Max(0, 100-sum)
	return d
}

// Sorted lists the assets by share, largest first, ties by name.
func (d Distribution) Sorted() []Share {
	shares := make([]Share, 0, len(d.Assets))
	for asset, pct := range d.Assets {
		shares = append(shares, Share{Asset: asset, Percent: pct})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Percent != shares[j].Percent {
			return shares[i].Percent > shares[j].Percent
		}
		return shares[i].Asset < shares[j].Asset
	})
	return shares
}
