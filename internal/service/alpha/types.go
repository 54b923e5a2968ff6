package alpha

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction 信号方向
type Direction int

const (
	Down Direction = -1
	Flat Direction = 0
	Up   Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "flat"
	}
}

// InsightType 信号类型
type InsightType string

const (
	TypePrice      InsightType = "price"
	TypeVolatility InsightType = "volatility"
	TypeVolume     InsightType = "volume"
)

// Bar 单根K线的收盘快照, 按时间升序排列
type Bar struct {
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// MarketData 每个symbol最新的价格窗口, 由调用方负责对齐和截取
type MarketData map[string][]Bar

// Insight 策略输出的交易信号
// 创建后不可变, 不持有模型内部状态的引用
type Insight struct {
	Symbol    string      `json:"symbol"`
	Direction Direction   `json:"direction"`
	Timestamp time.Time   `json:"timestamp"`
	Type      InsightType `json:"type"`

	// Confidence 置信度 0-1
	Confidence float64 `json:"confidence"`
	// SignalStrength 归一化信号强度 -1到1, 供下游仓位计算使用
	SignalStrength float64 `json:"signal_strength"`

	// 可选的风控参数
	ExpectedDurationMinutes int     `json:"expected_duration_minutes,omitempty"`
	StopLossPct             float64 `json:"stop_loss_pct,omitempty"`
	TakeProfitPct           float64 `json:"take_profit_pct,omitempty"`

	// 诊断信息
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate 校验置信度和信号强度的范围
func (i Insight) Validate() error {
	if i.Confidence < 0 || i.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1, got: %f", i.Confidence)
	}
	if i.SignalStrength < -1 || i.SignalStrength > 1 {
		return fmt.Errorf("signal strength must be between -1 and 1, got: %f", i.SignalStrength)
	}
	return nil
}

// Statistics 模型运行统计快照
type Statistics struct {
	Name              string
	InsightsGenerated int
	SymbolsTracked    int
	// LastUpdate 零值表示从未更新过
	LastUpdate time.Time
}

// Model 所有alpha模型的统一契约
type Model interface {
	Name() string
	// Update 根据最新行情窗口产出信号, 只处理已跟踪的symbol
	Update(ctx context.Context, data MarketData, now time.Time) ([]Insight, error)
	// OnUniverseChanged 处理标的池变更, 重复添加/移除是幂等的
	OnUniverseChanged(added, removed []string)
	Statistics() Statistics
	// Reset 清空所有per-symbol状态和计数, 保留配置
	Reset()
}

// closes 提取收盘价窗口
func closes(bars []Bar) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(bars))
	for _, b := range bars {
		out = append(out, b.Close)
	}
	return out
}

// volumes 提取成交量窗口
func volumes(bars []Bar) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(bars))
	for _, b := range bars {
		out = append(out, b.Volume)
	}
	return out
}
