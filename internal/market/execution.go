package market

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/newswave/newswave/types"
)

// ExecParams are the execution-cost assumptions used to turn a market price
// into a realistic fill.
type ExecParams struct {
	SpreadPercent           float64 // estimated spread when bid/ask unavailable
	SlippageLiquidPercent   float64
	SlippageIlliquidPercent float64
	LiquidityThreshold      int64   // daily volume above which a name is liquid
	ImpactRatioThreshold    float64 // position/volume ratio that starts moving the market
	ImpactFactor            float64
}

// DefaultExecParams returns the standard cost model.
func DefaultExecParams() ExecParams {
	return ExecParams{
		SpreadPercent:           0.1,
		SlippageLiquidPercent:   0.05,
		SlippageIlliquidPercent: 0.2,
		LiquidityThreshold:      1000000,
		ImpactRatioThreshold:    0.001,
		ImpactFactor:            0.5,
	}
}

// ComputeExecution prices a fill: the market price adjusted by half the
// spread, slippage and market impact. Buys pay the costs, sells give them
// up. Unknown volume (0) is treated as illiquid.
func ComputeExecution(price, size decimal.Decimal, side string, volume int64, p ExecParams) types.Execution {
	spread := price.Mul(decimal.NewFromFloat(p.SpreadPercent / 100))

	slippagePct := p.SlippageIlliquidPercent
	if volume > p.LiquidityThreshold {
		slippagePct = p.SlippageLiquidPercent
	}
	slippage := price.Mul(decimal.NewFromFloat(slippagePct / 100))

	impact := decimal.Zero
	if volume > 0 {
		// position volume as a fraction of daily volume
		ratio := size.Div(price).Div(decimal.NewFromInt(volume))
		if ratio.GreaterThan(decimal.NewFromFloat(p.ImpactRatioThreshold)) {
			impact = price.Mul(ratio).Mul(decimal.NewFromFloat(p.ImpactFactor))
		}
	}

	cost := spread.Div(decimal.NewFromInt(2)).Add(slippage).Add(impact)

	execPrice := price.Sub(cost)
	if strings.EqualFold(side, types.SignalBuy) {
		execPrice = price.Add(cost)
	}

	return types.Execution{
		MarketPrice:    price,
		ExecutionPrice: execPrice,
		Spread:         spread,
		Slippage:       slippage,
		MarketImpact:   impact,
		Volume:         volume,
	}
}
