package signal

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"signal-bridge/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	defaultRiskRatio = 2.0
	przFallbackPct   = 0.0025

	buyRSIMin  = 35.0
	buyRSIMax  = 60.0
	sellRSIMin = 40.0
	sellRSIMax = 65.0
)

const (
	ReasonTrendMismatch = "trend_mismatch"
	ReasonRSIOutOfBand  = "rsi_out_of_band"
	ReasonBadSide       = "bad_side"
)

// Engine applies the confirmation rules and protective level math to a
// normalized signal. It holds no state.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate vetoes a signal when a present confirmation disagrees with its
// side. Absent confirmations never reject.
func (e *Engine) Evaluate(sig domain.Signal) domain.Decision {
	var (
		want   domain.Trend
		lo, hi float64
	)
	switch sig.Side {
	case domain.SideBuy:
		want, lo, hi = domain.TrendUp, buyRSIMin, buyRSIMax
	case domain.SideSell:
		want, lo, hi = domain.TrendDown, sellRSIMin, sellRSIMax
	default:
		return domain.Decision{Accept: false, Reason: ReasonBadSide}
	}

	if sig.Trend != domain.TrendNone && sig.Trend != want {
		return domain.Decision{Accept: false, Reason: ReasonTrendMismatch}
	}
	if sig.RSI != nil && (*sig.RSI < lo || *sig.RSI > hi) {
		return domain.Decision{Accept: false, Reason: ReasonRSIOutOfBand}
	}
	return domain.Decision{Accept: true}
}

// ComputeLevels returns stop-loss and take-profit rounded to one decimal.
// No ordering checks are made against price.
func (e *Engine) ComputeLevels(sig domain.Signal) (float64, float64) {
	price := sig.Price
	ratio := ParseRiskReward(sig.RiskReward)
	buffer := price * przFallbackPct

	var sl, tp float64
	if sig.Side == domain.SideBuy {
		sl = price - buffer
		if sig.PRZLow != nil {
			sl = *sig.PRZLow
		}
		tp = price + ratio*(price-sl)
	} else {
		sl = price + buffer
		if sig.PRZHigh != nil {
			sl = *sig.PRZHigh
		}
		tp = price - ratio*(sl-price)
	}
	return round1(sl), round1(tp)
}

// ParseRiskReward turns "A:B" into B/A. Anything unparseable, or a zero on
// either side, yields 2.0.
func ParseRiskReward(rr string) float64 {
	parts := strings.Split(strings.TrimSpace(rr), ":")
	if len(parts) != 2 {
		return defaultRiskRatio
	}
	a, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || a == 0 {
		return defaultRiskRatio
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || b == 0 {
		return defaultRiskRatio
	}
	ratio := b / a
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return defaultRiskRatio
	}
	return ratio
}

// round1 rounds the exact binary value of v half-to-even, so only values the
// float really stores as a tie (44999.25) go to the even digit.
func round1(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return exactDecimal(v).RoundBank(1).InexactFloat64()
}

func exactDecimal(v float64) decimal.Decimal {
	frac, exp := math.Frexp(v)
	mant := big.NewInt(int64(frac * (1 << 53)))
	exp -= 53
	if exp >= 0 {
		return decimal.NewFromBigInt(mant.Lsh(mant, uint(exp)), 0)
	}
	pow5 := new(big.Int).Exp(big.NewInt(5), big.NewInt(int64(-exp)), nil)
	return decimal.NewFromBigInt(mant.Mul(mant, pow5), int32(exp))
}
