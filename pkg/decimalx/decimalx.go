package decimalx

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

func MustFromString(s string) decimal.Decimal {
	f, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Floats decimal切片转float64切片, 指标计算统一走float64
func Floats(ds []decimal.Decimal) []float64 {
	return lo.Map(ds, func(d decimal.Decimal, _ int) float64 {
		return d.InexactFloat64()
	})
}

// FromFloats float64切片转decimal切片
func FromFloats(fs []float64) []decimal.Decimal {
	return lo.Map(fs, func(f float64, _ int) decimal.Decimal {
		return decimal.NewFromFloat(f)
	})
}
