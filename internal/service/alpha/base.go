package alpha

import (
	"time"
)

// defaultLookbackPeriod 默认历史回看周期
const defaultLookbackPeriod = 252

// BaseModel 所有alpha模型的公共底座
// 维护标的池/统计计数, 具体策略通过内嵌复用
// S 是策略自定义的per-symbol状态类型
type BaseModel[S any] struct {
	name           string
	lookbackPeriod int

	// symbols 即当前跟踪的标的池, 状态由本模型实例独占
	symbols   map[string]*S
	newSymbol func(symbol string) *S

	insightsGenerated int
	lastUpdate        time.Time
}

func newBaseModel[S any](name string, newSymbol func(symbol string) *S) BaseModel[S] {
	return BaseModel[S]{
		name:           name,
		lookbackPeriod: defaultLookbackPeriod,
		symbols:        make(map[string]*S),
		newSymbol:      newSymbol,
	}
}

func (m *BaseModel[S]) Name() string {
	return m.name
}

// OnUniverseChanged 标的进出池
// 重复添加已跟踪的symbol和移除未跟踪的symbol都是no-op
func (m *BaseModel[S]) OnUniverseChanged(added, removed []string) {
	for _, symbol := range added {
		if _, ok := m.symbols[symbol]; !ok {
			m.symbols[symbol] = m.newSymbol(symbol)
		}
	}
	for _, symbol := range removed {
		delete(m.symbols, symbol)
	}
}

func (m *BaseModel[S]) Statistics() Statistics {
	return Statistics{
		Name:              m.name,
		InsightsGenerated: m.insightsGenerated,
		SymbolsTracked:    len(m.symbols),
		LastUpdate:        m.lastUpdate,
	}
}

// Reset 清空标的池和计数, 配置保留
func (m *BaseModel[S]) Reset() {
	m.symbols = make(map[string]*S)
	m.insightsGenerated = 0
	m.lastUpdate = time.Time{}
}

// touch 每次Update都无条件记录时间, 即使没有产出信号
func (m *BaseModel[S]) touch(now time.Time) {
	m.lastUpdate = now
}
