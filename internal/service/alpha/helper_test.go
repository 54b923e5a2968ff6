package alpha

import (
	"github.com/KNICEX/alpha-engine/pkg/decimalx"
)

// barsFrom 用float价格序列构造bar窗口, 成交量统一填1000
func barsFrom(prices []float64) []Bar {
	return barsWithVolumes(prices, constantVolumes(len(prices), 1000))
}

func barsWithVolumes(prices, vols []float64) []Bar {
	closes := decimalx.FromFloats(prices)
	volumes := decimalx.FromFloats(vols)
	bars := make([]Bar, len(prices))
	for i := range bars {
		bars[i] = Bar{
			Close:  closes[i],
			Volume: volumes[i],
		}
	}
	return bars
}

func constantVolumes(n int, v float64) []float64 {
	vols := make([]float64, n)
	for i := range vols {
		vols[i] = v
	}
	return vols
}

// vShapePrices 先跌后涨的价格序列, 用来制造一次确定的金叉
func vShapePrices(start float64, downBars, upBars int) []float64 {
	prices := make([]float64, 0, downBars+upBars)
	p := start
	for i := 0; i < downBars; i++ {
		prices = append(prices, p)
		p -= 1.0
	}
	for i := 0; i < upBars; i++ {
		prices = append(prices, p)
		p += 2.0
	}
	return prices
}

// risingPrices 单调上涨序列
func risingPrices(from, to float64, n int) []float64 {
	prices := make([]float64, n)
	step := (to - from) / float64(n-1)
	for i := range prices {
		prices[i] = from + step*float64(i)
	}
	return prices
}

// flatPrices 横盘序列
func flatPrices(price float64, n int) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = price
	}
	return prices
}
