package alpha

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMacd(cfg MacdConfig, symbols ...string) *EnhancedMacd {
	model := NewEnhancedMacd(cfg)
	model.OnUniverseChanged(symbols, nil)
	return model
}

// 横盘序列的归一化MACD是0, 永远到不了自适应阈值
func TestMacd_FlatSeriesEmitsNothing(t *testing.T) {
	model := newTestMacd(MacdConfig{}, "BTCUSDT")

	data := MarketData{"BTCUSDT": barsFrom(flatPrices(100, 40))}
	baseTime := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		insights, err := model.Update(context.Background(), data,
			baseTime.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		assert.Empty(t, insights)
	}
	assert.Zero(t, model.Statistics().InsightsGenerated)
}

// 同方向信号去重: 没有反向或FLAT间隔时不允许连续两次同向信号
func TestMacd_DeduplicatesSameDirection(t *testing.T) {
	model := newTestMacd(MacdConfig{
		FastPeriod:   3,
		SlowPeriod:   5,
		SignalPeriod: 3,
	}, "BTCUSDT")

	prices := risingPrices(100, 140, 40)
	var all []Insight
	baseTime := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for n := 8; n <= len(prices); n++ {
		insights, err := model.Update(context.Background(),
			MarketData{"BTCUSDT": barsFrom(prices[:n])},
			baseTime.Add(time.Duration(n)*time.Minute))
		require.NoError(t, err)
		all = append(all, insights...)
	}

	// 每轮窗口单独看都满足发信号条件, 去重后整个回放只剩一条
	require.NotEmpty(t, all)
	assert.Len(t, all, 1)
	assert.Equal(t, 1, model.Statistics().InsightsGenerated)
}

// 发出的信号必须带齐风控参数和诊断信息, 且都在截断范围内
func TestMacd_InsightShape(t *testing.T) {
	model := newTestMacd(MacdConfig{
		FastPeriod:   3,
		SlowPeriod:   5,
		SignalPeriod: 3,
	}, "BTCUSDT")

	prices := risingPrices(100, 140, 40)
	var all []Insight
	for n := 8; n <= len(prices); n++ {
		insights, err := model.Update(context.Background(),
			MarketData{"BTCUSDT": barsFrom(prices[:n])}, time.Now())
		require.NoError(t, err)
		all = append(all, insights...)
	}
	require.NotEmpty(t, all)

	insight := all[0]
	assert.GreaterOrEqual(t, insight.Confidence, 0.0)
	assert.LessOrEqual(t, insight.Confidence, 1.0)
	assert.GreaterOrEqual(t, insight.SignalStrength, -1.0)
	assert.LessOrEqual(t, insight.SignalStrength, 1.0)
	assert.GreaterOrEqual(t, insight.StopLossPct, 1.0)
	assert.LessOrEqual(t, insight.StopLossPct, 10.0)
	assert.GreaterOrEqual(t, insight.TakeProfitPct, 2.0)
	assert.LessOrEqual(t, insight.TakeProfitPct, 20.0)
	assert.Equal(t, 240, insight.ExpectedDurationMinutes)

	for _, key := range []string{"macd", "signal", "histogram", "volatility", "threshold", "divergence"} {
		assert.Contains(t, insight.Metadata, key)
	}
}

// 数据不足时跳过, 不应touch任何per-symbol状态
func TestMacd_InsufficientDataSkipped(t *testing.T) {
	model := newTestMacd(MacdConfig{}, "BTCUSDT")

	// 默认参数需要 26+9 根
	data := MarketData{"BTCUSDT": barsFrom(risingPrices(100, 120, 30))}
	insights, err := model.Update(context.Background(), data, time.Now())
	require.NoError(t, err)
	assert.Empty(t, insights)
	assert.Zero(t, model.symbols["BTCUSDT"].history.size)
}

func TestMacd_DefaultConfig(t *testing.T) {
	model := NewEnhancedMacd(MacdConfig{})

	assert.Equal(t, "EnhancedMACD", model.Name())
	assert.Equal(t, 12, model.Config().FastPeriod)
	assert.Equal(t, 26, model.Config().SlowPeriod)
	assert.Equal(t, 9, model.Config().SignalPeriod)
	assert.InDelta(t, 0.01, model.Config().BaseThreshold, 1e-12)
	assert.Equal(t, 240, model.Config().HoldingPeriodMinutes)
}

func TestSnapshotRing(t *testing.T) {
	var ring snapshotRing

	for i := 0; i < 25; i++ {
		ring.push(macdSnapshot{macd: float64(i)})
	}

	// 容量固定, 只留最近10个
	values := ring.values()
	require.Len(t, values, divergenceWindow)
	assert.Equal(t, 15.0, values[0].macd)
	assert.Equal(t, 24.0, values[len(values)-1].macd)
}

func TestSnapshotRing_PartialFill(t *testing.T) {
	var ring snapshotRing
	ring.push(macdSnapshot{macd: 1})
	ring.push(macdSnapshot{macd: 2})

	values := ring.values()
	require.Len(t, values, 2)
	assert.Equal(t, 1.0, values[0].macd)
	assert.Equal(t, 2.0, values[1].macd)
}

// 价格趋势和MACD趋势符号相反才算背离
func TestMacd_CheckDivergence(t *testing.T) {
	model := newTestMacd(MacdConfig{
		FastPeriod:   3,
		SlowPeriod:   5,
		SignalPeriod: 3,
	}, "BTCUSDT")
	sd := model.symbols["BTCUSDT"]

	rising := risingPrices(100, 140, 20)

	t.Run("opposite trends detected", func(t *testing.T) {
		sd.history = snapshotRing{}
		// MACD逐根走低, 价格逐根走高
		for i := 0; i < divergenceWindow; i++ {
			sd.history.push(macdSnapshot{macd: float64(10 - i)})
		}
		assert.True(t, model.checkDivergence(rising, sd))
	})

	t.Run("same sign is not divergence", func(t *testing.T) {
		sd.history = snapshotRing{}
		for i := 0; i < divergenceWindow; i++ {
			sd.history.push(macdSnapshot{macd: float64(i)})
		}
		assert.False(t, model.checkDivergence(rising, sd))
	})

	t.Run("not enough snapshots", func(t *testing.T) {
		sd.history = snapshotRing{}
		for i := 0; i < divergenceWindow-1; i++ {
			sd.history.push(macdSnapshot{macd: float64(10 - i)})
		}
		assert.False(t, model.checkDivergence(rising, sd))
	})

	t.Run("not enough prices", func(t *testing.T) {
		sd.history = snapshotRing{}
		for i := 0; i < divergenceWindow; i++ {
			sd.history.push(macdSnapshot{macd: float64(10 - i)})
		}
		assert.False(t, model.checkDivergence(risingPrices(100, 120, 19), sd))
	})
}

// 背离加成生效时发出的置信度也不允许超过1
func TestMacd_DivergenceBoostCapped(t *testing.T) {
	model := newTestMacd(MacdConfig{
		FastPeriod:   3,
		SlowPeriod:   5,
		SignalPeriod: 3,
	}, "BTCUSDT")

	// 预置10个逐根走低的MACD快照, 紧接着的上涨窗口会判定为背离
	sd := model.symbols["BTCUSDT"]
	for i := 0; i < divergenceWindow; i++ {
		sd.history.push(macdSnapshot{macd: float64(10 - i)})
	}

	insights, err := model.Update(context.Background(),
		MarketData{"BTCUSDT": barsFrom(risingPrices(100, 140, 40))}, time.Now())
	require.NoError(t, err)

	require.Len(t, insights, 1)
	assert.Equal(t, true, insights[0].Metadata["divergence"])
	// 基础置信度已经是1, 加成1.2倍后仍被封顶
	assert.Equal(t, 1.0, insights[0].Confidence)
	assert.NoError(t, insights[0].Validate())
}
