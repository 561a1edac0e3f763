package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newswave/newswave/types"
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func closedPosition() *types.Experiment {
	entry := dec(100)
	size := dec(1000)
	return &types.Experiment{
		Ticker:         "AAPL",
		EntryTime:      time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC),
		EntryPrice:     entry,
		PositionSize:   size,
		Shares:         size.Div(entry), // 10 shares
		CommissionPaid: dec(1),
		SP500Entry:     dec(500),
	}
}

func TestComputeExit_ProfitableClose(t *testing.T) {
	e := closedPosition()
	now := e.EntryTime.Add(3*time.Hour + 30*time.Minute)

	spyExit := dec(505)
	acct := ComputeExit(e, dec(105), dec(1), &spyExit, now)

	// proceeds = 10 × 105 − 1 = 1049; entry cost = 1001; net = 48
	assert.True(t, acct.Proceeds.Equal(dec(1049)), "proceeds %s", acct.Proceeds)
	assert.True(t, acct.EntryCost.Equal(dec(1001)), "entry cost %s", acct.EntryCost)
	assert.True(t, acct.NetPnL.Equal(dec(48)), "net %s", acct.NetPnL)
	assert.Equal(t, 210, acct.HoldMinutes)

	// return = 48/1001 ≈ 4.795%
	ret, _ := acct.ReturnPercent.Float64()
	assert.InDelta(t, 4.795, ret, 0.001)

	// SPY moved +1%; alpha ≈ 3.795
	require.NotNil(t, acct.SP500Return)
	require.NotNil(t, acct.Alpha)
	sp, _ := acct.SP500Return.Float64()
	alpha, _ := acct.Alpha.Float64()
	assert.InDelta(t, 1.0, sp, 0.001)
	assert.InDelta(t, 3.795, alpha, 0.001)
}

func TestComputeExit_NetPnLFormula(t *testing.T) {
	// net = shares×exit − shares×entry − entry commission − exit commission
	e := closedPosition()
	exitPrice := dec(97.5)
	exitCommission := dec(1.2)

	acct := ComputeExit(e, exitPrice, exitCommission, nil, e.EntryTime.Add(time.Hour))

	expected := e.Shares.Mul(exitPrice).
		Sub(e.Shares.Mul(e.EntryPrice)).
		Sub(e.CommissionPaid).
		Sub(exitCommission)
	assert.True(t, acct.NetPnL.Equal(expected), "net %s want %s", acct.NetPnL, expected)
}

func TestComputeExit_NoBenchmarkAnchors(t *testing.T) {
	e := closedPosition()
	e.SP500Entry = decimal.Zero // entry anchor was unavailable

	spyExit := dec(505)
	acct := ComputeExit(e, dec(101), dec(1), &spyExit, e.EntryTime.Add(time.Hour))
	assert.Nil(t, acct.SP500Return)
	assert.Nil(t, acct.Alpha)

	acct = ComputeExit(closedPosition(), dec(101), dec(1), nil, e.EntryTime.Add(time.Hour))
	assert.Nil(t, acct.SP500Return, "missing exit anchor")
}

func TestComputeExit_HoldMinutesRoundsDown(t *testing.T) {
	e := closedPosition()
	now := e.EntryTime.Add(59*time.Minute + 59*time.Second)
	acct := ComputeExit(e, dec(100), dec(1), nil, now)
	assert.Equal(t, 59, acct.HoldMinutes)
}
