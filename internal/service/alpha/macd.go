package alpha

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/KNICEX/alpha-engine/internal/service/indicator"
	"github.com/KNICEX/alpha-engine/pkg/decimalx"
)

// divergenceWindow 背离检测的回看长度, history环形缓冲大小与之一致
const divergenceWindow = 10

// macdSnapshot 一次更新后的指标快照
type macdSnapshot struct {
	macd       float64
	signal     float64
	histogram  float64
	volatility float64
}

// snapshotRing 固定容量的环形缓冲, 只保留最近divergenceWindow个快照
type snapshotRing struct {
	buf  [divergenceWindow]macdSnapshot
	head int
	size int
}

func (r *snapshotRing) push(s macdSnapshot) {
	r.buf[r.head] = s
	r.head = (r.head + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

// values 按时间顺序(旧到新)返回快照
func (r *snapshotRing) values() []macdSnapshot {
	out := make([]macdSnapshot, 0, r.size)
	start := (r.head - r.size + len(r.buf)) % len(r.buf)
	for i := 0; i < r.size; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

// macdSymbolData MACD策略的per-symbol状态
type macdSymbolData struct {
	symbol string

	macd       float64
	signal     float64
	histogram  float64
	volatility float64

	history snapshotRing

	// prevPosition 上一次发出的方向, 初始为Flat表示还没发过
	// 同方向去重只对Up/Down生效, 所以Flat可以安全地当作"无"
	prevPosition Direction
}

// MacdConfig MACD策略参数
type MacdConfig struct {
	FastPeriod           int     `mapstructure:"fast_period"`
	SlowPeriod           int     `mapstructure:"slow_period"`
	SignalPeriod         int     `mapstructure:"signal_period"`
	BaseThreshold        float64 `mapstructure:"base_threshold"`
	VolatilityWindow     int     `mapstructure:"volatility_window"`
	HoldingPeriodMinutes int     `mapstructure:"holding_period_minutes"`
}

// DefaultMacdConfig 默认参数
func DefaultMacdConfig() MacdConfig {
	return MacdConfig{
		FastPeriod:           12,
		SlowPeriod:           26,
		SignalPeriod:         9,
		BaseThreshold:        0.01,
		VolatilityWindow:     20,
		HoldingPeriodMinutes: 240,
	}
}

func (c *MacdConfig) withDefaults() {
	if c.FastPeriod <= 0 {
		c.FastPeriod = 12
	}
	if c.SlowPeriod <= 0 {
		c.SlowPeriod = 26
	}
	if c.SignalPeriod <= 0 {
		c.SignalPeriod = 9
	}
	if c.BaseThreshold <= 0 {
		c.BaseThreshold = 0.01
	}
	if c.VolatilityWindow <= 0 {
		c.VolatilityWindow = 20
	}
	if c.HoldingPeriodMinutes <= 0 {
		c.HoldingPeriodMinutes = 240
	}
}

var _ Model = (*EnhancedMacd)(nil)

// EnhancedMacd 自适应阈值MACD模型
// 阈值随波动率放大, 同方向信号去重, 价格与MACD背离时加强置信度
type EnhancedMacd struct {
	BaseModel[macdSymbolData]
	cfg MacdConfig
}

func NewEnhancedMacd(cfg MacdConfig) *EnhancedMacd {
	cfg.withDefaults()
	return &EnhancedMacd{
		BaseModel: newBaseModel("EnhancedMACD", func(symbol string) *macdSymbolData {
			return &macdSymbolData{symbol: symbol, prevPosition: Flat}
		}),
		cfg: cfg,
	}
}

// Config 当前生效的参数
func (m *EnhancedMacd) Config() MacdConfig {
	return m.cfg
}

// Update 遍历行情窗口, MACD越过自适应阈值且柱状图同向确认时产出信号
func (m *EnhancedMacd) Update(ctx context.Context, data MarketData, now time.Time) ([]Insight, error) {
	m.touch(now)

	var insights []Insight
	for symbol, bars := range data {
		sd, ok := m.symbols[symbol]
		if !ok {
			continue
		}

		prices := decimalx.Floats(closes(bars))
		if len(prices) < m.cfg.SlowPeriod+m.cfg.SignalPeriod {
			continue
		}

		macdLine, signalLine, histogram, err := m.calculateMacd(prices)
		if err != nil {
			continue
		}

		volatility, ok := indicator.Volatility(prices, m.cfg.VolatilityWindow)
		if !ok {
			volatility = 1.0
		}
		adaptiveThreshold := m.cfg.BaseThreshold * (1 + volatility)
		normalizedMacd := normalizeMacd(macdLine, prices)

		sd.macd = macdLine
		sd.signal = signalLine
		sd.histogram = histogram
		sd.volatility = volatility
		sd.history.push(macdSnapshot{
			macd:       macdLine,
			signal:     signalLine,
			histogram:  histogram,
			volatility: volatility,
		})

		direction, confidence, signalStrength := evaluateSignal(
			macdLine, signalLine, histogram, normalizedMacd, adaptiveThreshold, sd.prevPosition)

		if direction == Flat || confidence <= 0.5 {
			continue
		}

		divergence := m.checkDivergence(prices, sd)
		if divergence {
			// 背离确认的信号更可信
			confidence = math.Min(1, confidence*1.2)
		}

		stopLoss, takeProfit := m.riskParams(volatility, signalStrength)

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
				"macd":       macdLine,
				"signal":     signalLine,
				"histogram":  histogram,
				"volatility": volatility,
				"threshold":  adaptiveThreshold,
				"divergence": divergence,
			},
		}
		if err := insight.Validate(); err != nil {
			return insights, err
		}

		slog.Debug("macd insight generated",
			"symbol", symbol, "direction", direction.String(), "confidence", confidence)

		insights = append(insights, insight)
		sd.prevPosition = direction
		m.insightsGenerated++
	}
	return insights, nil
}

// calculateMacd 计算MACD三件套
// 信号线取最近SignalPeriod根原始收盘价的EMA, 不是标准定义里MACD序列的EMA
// 这是从旧实现原样保留下来的简化, 修改前需要和下游确认
func (m *EnhancedMacd) calculateMacd(prices []float64) (macdLine, signalLine, histogram float64, err error) {
	fastEMA, err := indicator.EMA(prices, m.cfg.FastPeriod)
	if err != nil {
		return 0, 0, 0, err
	}
	slowEMA, err := indicator.EMA(prices, m.cfg.SlowPeriod)
	if err != nil {
		return 0, 0, 0, err
	}

	macdLine = fastEMA - slowEMA

	signalLine, err = indicator.EMA(prices[len(prices)-m.cfg.SignalPeriod:], m.cfg.SignalPeriod)
	if err != nil {
		return 0, 0, 0, err
	}

	histogram = macdLine - signalLine
	return macdLine, signalLine, histogram, nil
}

// normalizeMacd MACD按当前价格归一化成百分比, 截断到[-1, 1]
func normalizeMacd(macd float64, prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	currentPrice := prices[len(prices)-1]
	if currentPrice == 0 {
		return 0
	}
	return indicator.Clip(macd/currentPrice*100, -1, 1)
}

// evaluateSignal 评估信号方向/置信度/强度
// 要求MACD与信号线的差值和柱状图同向, 同方向重复信号压成Flat
func evaluateSignal(
	macdLine, signalLine, histogram, normalizedMacd, adaptiveThreshold float64,
	prevPosition Direction,
) (Direction, float64, float64) {
	if math.Abs(normalizedMacd) < adaptiveThreshold {
		return Flat, 0, 0
	}

	macdDiff := macdLine - signalLine

	var direction Direction
	var signalStrength float64
	switch {
	case macdDiff > 0 && histogram > 0:
		direction = Up
		signalStrength = math.Min(1, math.Abs(normalizedMacd))
	case macdDiff < 0 && histogram < 0:
		direction = Down
		signalStrength = -math.Min(1, math.Abs(normalizedMacd))
	default:
		// 柱状图没有同向确认
		return Flat, 0, 0
	}

	if direction == prevPosition {
		return Flat, 0, 0
	}

	confidence := indicator.Clip(math.Abs(histogram)/adaptiveThreshold, 0, 1)
	return direction, confidence, signalStrength
}

// checkDivergence 检测价格趋势和MACD趋势是否背离
// 两者都取10根窗口的首尾差值, 符号相反即背离, 常被读作反转前兆
func (m *EnhancedMacd) checkDivergence(prices []float64, sd *macdSymbolData) bool {
	if len(prices) < 2*divergenceWindow {
		return false
	}

	recent := prices[len(prices)-divergenceWindow:]
	priceTrend := recent[len(recent)-1] - recent[0]

	history := sd.history.values()
	if len(history) < divergenceWindow {
		return false
	}
	macdTrend := history[len(history)-1].macd - history[0].macd

	return priceTrend*macdTrend < 0
}

// riskParams 信号越强止损越紧/止盈越远
func (m *EnhancedMacd) riskParams(volatility, signalStrength float64) (stopLossPct, takeProfitPct float64) {
	// 2倍sigma换算成百分比
	base := 2 * volatility * 100

	stopLossPct = base / (math.Abs(signalStrength) + 0.1)
	takeProfitPct = base * math.Abs(signalStrength) * 2

	stopLossPct = indicator.Clip(stopLossPct, 1, 10)
	takeProfitPct = indicator.Clip(takeProfitPct, 2, 20)
	return stopLossPct, takeProfitPct
}
