package indicator

import (
	"errors"
	"math"
)

var ErrInsufficientData = errors.New("insufficient data")

// trendWindow 趋势强度/波动率/成交量确认统一使用的回看窗口
const trendWindow = 20

// EMA 计算指数移动平均
// 递推以第一根原始价格作为种子: ema[0] = prices[0]
// 注意: 这里故意不使用教科书上的 SMA 种子, 下游策略依赖这个简化行为
func EMA(prices []float64, period int) (float64, error) {
	if len(prices) < period {
		return 0, ErrInsufficientData
	}

	k := 2.0 / float64(period+1)
	ema := prices[0]
	for _, price := range prices[1:] {
		ema = price*k + ema*(1-k)
	}
	return ema, nil
}

// TrendStrength 计算类ADX的趋势强度 (0-1)
// 由两部分取平均: 方向移动占比 + 归一化的线性回归斜率(放大100倍后截断到1)
// 数据不足20根时返回0
func TrendStrength(prices []float64) float64 {
	if len(prices) < trendWindow {
		return 0
	}

	recent := prices[len(prices)-trendWindow:]

	// 方向移动: 分别累计上涨和下跌的bar-to-bar变化
	var sumPos, sumNeg float64
	for i := 1; i < len(recent); i++ {
		change := recent[i] - recent[i-1]
		if change > 0 {
			sumPos += change
		} else {
			sumNeg += -change
		}
	}
	n := float64(len(recent) - 1)
	avgPos, avgNeg := sumPos/n, sumNeg/n

	total := avgPos + avgNeg
	if total == 0 {
		return 0
	}
	dx := math.Abs(avgPos-avgNeg) / total

	// 线性回归斜率作为确认, 按均价归一化
	slope := leastSquaresSlope(recent)
	normalizedSlope := math.Abs(slope) / mean(recent)

	strength := (dx + math.Min(1, normalizedSlope*100)) / 2
	return Clip(strength, 0, 1)
}

// Volatility 计算窗口内简单收益率的标准差
// 数据不足时 ok 为 false, 默认值由调用方决定
// (EMA交叉策略用0.02, MACD策略用1.0, 两者历史上就不一致, 保持现状)
func Volatility(prices []float64, window int) (vol float64, ok bool) {
	if len(prices) < window {
		return 0, false
	}

	recent := prices[len(prices)-window:]
	returns := make([]float64, 0, len(recent)-1)
	for i := 1; i < len(recent); i++ {
		returns = append(returns, (recent[i]-recent[i-1])/recent[i-1])
	}
	return stdDev(returns), true
}

// VolumeConfirmed 检查当前成交量是否放大到平均值的threshold倍
// 平均值取最近20根中排除当前bar的部分
// 历史不足20根时直接放行
func VolumeConfirmed(volumes []float64, threshold float64) bool {
	if len(volumes) < trendWindow {
		return true
	}

	window := volumes[len(volumes)-trendWindow : len(volumes)-1]
	avg := mean(window)
	current := volumes[len(volumes)-1]
	return current >= avg*threshold
}

// leastSquaresSlope 最小二乘法拟合斜率, x取0..len-1
func leastSquaresSlope(ys []float64) float64 {
	n := float64(len(ys))
	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denominator := n*sumX2 - sumX*sumX
	if denominator == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denominator
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev 总体标准差
func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	avg := mean(values)
	var variance float64
	for _, v := range values {
		diff := v - avg
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// Clip 把v截断到[lo, hi]区间
func Clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
