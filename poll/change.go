package poll

import (
	"github.com/shopspring/decimal"
)

// Delta is the movement between two readings. PercentOK is false when no previous reading
// exists or it was zero.
type Delta struct {
	Absolute  decimal.Decimal
	Percent   decimal.Decimal
	PercentOK bool
}

var hundred = decimal.NewFromInt(100)

func Change(prev, cur decimal.Decimal, hasPrev bool) Delta {
	if !hasPrev {
		return Delta{}
	}

	d := Delta{Absolute: cur.Sub(prev)}
	if prev.IsZero() {
		return d
	}
	d.Percent = cur.Div(prev).Sub(decimal.NewFromInt(1)).Mul(hundred)
	d.PercentOK = true
	return d
}

// ChangeOf reads the delta straight off a decimal snapshot.
func ChangeOf(s Snapshot[decimal.Decimal]) Delta {
	return Change(s.Previous, s.Value, s.HasPrevious)
}
