package alpha

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/KNICEX/alpha-engine/internal/service/indicator"
	"github.com/KNICEX/alpha-engine/pkg/decimalx"
)

// emaRelation 快慢均线的相对位置
type emaRelation int

const (
	relationUnknown emaRelation = iota
	fastAboveSlow
	fastBelowSlow
)

func relationOf(fastOverSlow bool) emaRelation {
	if fastOverSlow {
		return fastAboveSlow
	}
	return fastBelowSlow
}

// emaSymbolData EMA交叉策略的per-symbol状态
type emaSymbolData struct {
	symbol string

	// 上一次计算的均线值, 用于交叉速度
	fastEMA float64
	slowEMA float64

	// relation为Unknown表示还没有观测过, 首次观测只记录不发信号
	relation emaRelation
}

// EmaCrossConfig EMA交叉策略参数
type EmaCrossConfig struct {
	FastPeriod           int     `mapstructure:"fast_period"`
	SlowPeriod           int     `mapstructure:"slow_period"`
	HoldingPeriodMinutes int     `mapstructure:"holding_period_minutes"`
	MinTrendStrength     float64 `mapstructure:"min_trend_strength"`
	VolumeConfirmation   bool    `mapstructure:"volume_confirmation"`
	VolumeThreshold      float64 `mapstructure:"volume_threshold"`
}

// DefaultEmaCrossConfig 默认参数
// MinTrendStrength和VolumeConfirmation的零值是合法配置, 默认值只在这里给出
func DefaultEmaCrossConfig() EmaCrossConfig {
	return EmaCrossConfig{
		FastPeriod:           12,
		SlowPeriod:           26,
		HoldingPeriodMinutes: 480,
		MinTrendStrength:     0.3,
		VolumeConfirmation:   true,
		VolumeThreshold:      1.5,
	}
}

func (c *EmaCrossConfig) withDefaults() {
	if c.FastPeriod <= 0 {
		c.FastPeriod = 12
	}
	if c.SlowPeriod <= 0 {
		c.SlowPeriod = 26
	}
	if c.HoldingPeriodMinutes <= 0 {
		c.HoldingPeriodMinutes = 480
	}
	if c.VolumeThreshold <= 0 {
		c.VolumeThreshold = 1.5
	}
}

var _ Model = (*EnhancedEmaCross)(nil)

// EnhancedEmaCross 增强版EMA交叉模型
// 在普通金叉死叉之上叠加: 交叉速度 / 趋势强度过滤 / 成交量确认
type EnhancedEmaCross struct {
	BaseModel[emaSymbolData]
	cfg EmaCrossConfig
}

func NewEnhancedEmaCross(cfg EmaCrossConfig) *EnhancedEmaCross {
	cfg.withDefaults()
	return &EnhancedEmaCross{
		BaseModel: newBaseModel("EnhancedEMACross", func(symbol string) *emaSymbolData {
			return &emaSymbolData{symbol: symbol}
		}),
		cfg: cfg,
	}
}

// Config 当前生效的参数
func (m *EnhancedEmaCross) Config() EmaCrossConfig {
	return m.cfg
}

// Update 遍历行情窗口, 在快慢均线交叉且通过确认过滤时产出信号
// 未跟踪的symbol直接忽略
func (m *EnhancedEmaCross) Update(ctx context.Context, data MarketData, now time.Time) ([]Insight, error) {
	m.touch(now)

	var insights []Insight
	for symbol, bars := range data {
		sd, ok := m.symbols[symbol]
		if !ok {
			continue
		}

		prices := decimalx.Floats(closes(bars))
		// 数据不足本轮跳过, 等历史攒够了下轮自然会重新评估
		if len(prices) < m.cfg.SlowPeriod+10 {
			continue
		}

		fastEMA, err := indicator.EMA(prices, m.cfg.FastPeriod)
		if err != nil {
			continue
		}
		slowEMA, err := indicator.EMA(prices, m.cfg.SlowPeriod)
		if err != nil {
			continue
		}

		prevFast, prevSlow, prevRelation := sd.fastEMA, sd.slowEMA, sd.relation
		sd.fastEMA, sd.slowEMA = fastEMA, slowEMA

		fastOverSlow := fastEMA > slowEMA

		// 首次观测: 只记录当前相对位置, 不发信号
		if prevRelation == relationUnknown {
			sd.relation = relationOf(fastOverSlow)
			continue
		}

		// 没有发生交叉
		if relationOf(fastOverSlow) == prevRelation {
			sd.relation = relationOf(fastOverSlow)
			continue
		}

		velocity := crossoverVelocity(fastEMA, slowEMA, prevFast, prevSlow)
		trendStrength := indicator.TrendStrength(prices)

		// 震荡市里的交叉不可信
		if trendStrength < m.cfg.MinTrendStrength {
			sd.relation = relationOf(fastOverSlow)
			continue
		}

		vols := decimalx.Floats(volumes(bars))
		volumeConfirmed := true
		if m.cfg.VolumeConfirmation && len(vols) > 0 {
			volumeConfirmed = indicator.VolumeConfirmed(vols, m.cfg.VolumeThreshold)
		}
		if !volumeConfirmed {
			sd.relation = relationOf(fastOverSlow)
			continue
		}

		direction := Up
		if !fastOverSlow {
			direction = Down
		}

		signalStrength := math.Min(1, velocity*trendStrength)
		if direction == Down {
			signalStrength = -signalStrength
		}

		confidence := trendStrength
		if volumeConfirmed {
			confidence = math.Min(1, confidence*1.2)
		}

		volatility, ok := indicator.Volatility(prices, 20)
		if !ok {
			volatility = 0.02 // 默认2%
		}
		stopLoss, takeProfit := m.riskParams(volatility, trendStrength)

		insight := Insight{
			Symbol:                  symbol,
			Direction:               direction,
			Timestamp:               now,
			Type:                    TypePrice,
			Confidence:              confidence,
			SignalStrength:          signalStrength,
			ExpectedDurationMinutes: m.cfg.HoldingPeriodMinutes,
			StopLossPct:             stopLoss,
			TakeProfitPct:           takeProfit,
			Metadata: map[string]any{
				"fast_ema":         fastEMA,
				"slow_ema":         slowEMA,
				"velocity":         velocity,
				"trend_strength":   trendStrength,
				"volume_confirmed": volumeConfirmed,
				"volatility":       volatility,
			},
		}
		if err := insight.Validate(); err != nil {
			return insights, err
		}

		slog.Debug("ema cross insight generated",
			"symbol", symbol, "direction", direction.String(), "confidence", confidence)

		insights = append(insights, insight)
		sd.relation = relationOf(fastOverSlow)
		m.insightsGenerated++
	}
	return insights, nil
}

// crossoverVelocity 交叉速度: 快慢线间距变化相对于上一次间距的比值
// 放大10倍后截断到0-1, 间距变化越快信号越强
func crossoverVelocity(fastEMA, slowEMA, prevFast, prevSlow float64) float64 {
	currentSep := math.Abs(fastEMA - slowEMA)
	prevSep := math.Abs(prevFast - prevSlow)

	velocity := math.Abs(currentSep-prevSep) / math.Max(prevSep, 0.0001)
	return math.Min(1, velocity*10)
}

// riskParams 根据波动率和趋势强度推算止损止盈百分比
// 趋势越强允许越宽的止损和目标
func (m *EnhancedEmaCross) riskParams(volatility, trendStrength float64) (stopLossPct, takeProfitPct float64) {
	// 2倍sigma换算成百分比
	baseStop := volatility * 200

	stopLossPct = baseStop * (1 + trendStrength)

	// 盈亏比 2:1 到 3:1
	riskReward := 2 + trendStrength
	takeProfitPct = stopLossPct * riskReward

	stopLossPct = indicator.Clip(stopLossPct, 1, 10)
	takeProfitPct = indicator.Clip(takeProfitPct, 2, 25)
	return stopLossPct, takeProfitPct
}
