package poll

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupStopHaltsAllTasks(t *testing.T) {
	balance, balanceCalls := sequence(1)
	prices, priceCalls := sequence(2)

	g := NewGroup()
	g.Go(context.Background(), NewTask("balance", 2*time.Millisecond, balance, nil))
	g.Go(context.Background(), NewTask("prices", 3*time.Millisecond, prices, nil))
	assert.Equal(t, 2, g.Len())

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(balanceCalls) >= 2 && atomic.LoadInt32(priceCalls) >= 2
	}, time.Second, time.Millisecond)

	g.Stop()
	b, p := atomic.LoadInt32(balanceCalls), atomic.LoadInt32(priceCalls)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, b, atomic.LoadInt32(balanceCalls))
	assert.Equal(t, p, atomic.LoadInt32(priceCalls))
	assert.Zero(t, g.Len())
}

func TestGroupIgnoresTasksAfterStop(t *testing.T) {
	fetch, calls := sequence(1)
	g := NewGroup()
	g.Stop()

	g.Go(context.Background(), NewTask("balance", time.Millisecond, fetch, nil))

	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestChange(t *testing.T) {
	d := decimal.NewFromInt

	tests := []struct {
		name      string
		prev, cur decimal.Decimal
		hasPrev   bool
		abs       string
		pct       string
		pctOK     bool
	}{
		{name: "rise", prev: d(100), cur: d(110), hasPrev: true, abs: "10", pct: "10", pctOK: true},
		{name: "fall", prev: d(200), cur: d(150), hasPrev: true, abs: "-50", pct: "-25", pctOK: true},
		{name: "unchanged", prev: d(50), cur: d(50), hasPrev: true, abs: "0", pct: "0", pctOK: true},
		{name: "zero previous", prev: d(0), cur: d(75), hasPrev: true, abs: "75", pctOK: false},
		{name: "no previous", cur: d(75), hasPrev: false, abs: "0", pctOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Change(tt.prev, tt.cur, tt.hasPrev)
			assert.Equal(t, tt.abs, got.Absolute.String())
			assert.Equal(t, tt.pctOK, got.PercentOK)
			if tt.pctOK {
				assert.Equal(t, tt.pct, got.Percent.String())
			}
		})
	}
}
