package ui

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	assert.Contains(t, FormatMoney(decimal.RequireFromString("1234.5")), "$1234.50")
	assert.Contains(t, FormatDelta(decimal.RequireFromString("-3.2")), "-$3.20")
	assert.Contains(t, FormatDelta(decimal.Zero), "+$0.00")
}

func TestProgressBar(t *testing.T) {
	cells := func(s string) (filled, empty int) {
		return strings.Count(s, "█"), strings.Count(s, "░")
	}

	f, e := cells(ProgressBar(50, 10))
	assert.Equal(t, 5, f)
	assert.Equal(t, 5, e)

	f, e = cells(ProgressBar(140, 10))
	assert.Equal(t, 10, f)
	assert.Zero(t, e)

	f, e = cells(ProgressBar(-5, 4))
	assert.Zero(t, f)
	assert.Equal(t, 4, e)

	assert.Empty(t, ProgressBar(50, 0))
}
