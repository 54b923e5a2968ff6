package alpha

import (
	"fmt"

	"github.com/samber/lo"
)

// AggregationStrategy 多模型信号合并策略
type AggregationStrategy string

const (
	// HighestConfidence 取置信度最高的一条
	HighestConfidence AggregationStrategy = "highest_confidence"
	// WeightedAverage 同方向信号取平均置信度, 选平均值最高的方向
	WeightedAverage AggregationStrategy = "weighted_average"
	// Unanimous 所有模型方向一致才输出
	Unanimous AggregationStrategy = "unanimous"
	// MajorityVote 多数方向获胜
	MajorityVote AggregationStrategy = "majority_vote"
)

// Aggregator 把多个alpha模型对同一批symbol的信号合并成每个symbol至多一条
// 输出仍然是Insight, 不做任何仓位决策
type Aggregator struct {
	strategy      AggregationStrategy
	minConfidence float64
}

type AggregatorOption func(a *Aggregator)

// WithMinConfidence 覆盖默认的置信度下限
func WithMinConfidence(min float64) AggregatorOption {
	return func(a *Aggregator) {
		a.minConfidence = min
	}
}

func NewAggregator(strategy AggregationStrategy, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		strategy:      strategy,
		minConfidence: 0.5,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate 按symbol分组后逐组应用合并策略
// 没有通过策略或置信度下限的组直接丢弃
func (a *Aggregator) Aggregate(insights []Insight) []Insight {
	bySymbol := lo.GroupBy(insights, func(ins Insight) string {
		return ins.Symbol
	})

	out := make([]Insight, 0, len(bySymbol))
	for _, group := range bySymbol {
		if merged, ok := a.aggregateSymbol(group); ok {
			out = append(out, merged)
		}
	}
	return out
}

func (a *Aggregator) aggregateSymbol(insights []Insight) (Insight, bool) {
	if len(insights) == 0 {
		return Insight{}, false
	}

	switch a.strategy {
	case WeightedAverage:
		return a.weightedAverage(insights)
	case Unanimous:
		return a.unanimous(insights)
	case MajorityVote:
		return a.majorityVote(insights)
	default:
		return a.highestConfidence(insights)
	}
}

func (a *Aggregator) highestConfidence(insights []Insight) (Insight, bool) {
	best := lo.MaxBy(insights, func(x, max Insight) bool {
		return x.Confidence > max.Confidence
	})
	if best.Confidence < a.minConfidence {
		return Insight{}, false
	}
	return best, true
}

func (a *Aggregator) weightedAverage(insights []Insight) (Insight, bool) {
	byDirection := lo.GroupBy(insights, func(ins Insight) Direction {
		return ins.Direction
	})

	var best []Insight
	bestAvg := 0.0
	for _, group := range byDirection {
		avg := avgConfidence(group)
		if avg >= a.minConfidence && avg > bestAvg {
			best, bestAvg = group, avg
		}
	}
	if best == nil {
		return Insight{}, false
	}
	return a.merged(best[0], bestAvg, len(best)), true
}

func (a *Aggregator) unanimous(insights []Insight) (Insight, bool) {
	first := insights[0].Direction
	allAgree := lo.EveryBy(insights, func(ins Insight) bool {
		return ins.Direction == first
	})
	if !allAgree {
		return Insight{}, false
	}

	avg := avgConfidence(insights)
	if avg < a.minConfidence {
		return Insight{}, false
	}
	return a.merged(insights[0], avg, len(insights)), true
}

func (a *Aggregator) majorityVote(insights []Insight) (Insight, bool) {
	byDirection := lo.GroupBy(insights, func(ins Insight) Direction {
		return ins.Direction
	})

	var majority []Insight
	for _, group := range byDirection {
		if len(group) > len(majority) {
			majority = group
		}
	}

	avg := avgConfidence(majority)
	if avg < a.minConfidence {
		return Insight{}, false
	}
	return a.merged(majority[0], avg, len(majority)), true
}

// merged 以组内第一条为模板, 替换置信度并附加合并来源说明
func (a *Aggregator) merged(base Insight, confidence float64, votes int) Insight {
	out := base
	out.Confidence = confidence

	// 模板的metadata不可变, 复制一份再改
	meta := make(map[string]any, len(base.Metadata)+1)
	for k, v := range base.Metadata {
		meta[k] = v
	}
	meta["aggregated"] = fmt.Sprintf("%d alphas, avg confidence %.1f%%", votes, confidence*100)
	out.Metadata = meta
	return out
}

func avgConfidence(insights []Insight) float64 {
	if len(insights) == 0 {
		return 0
	}
	sum := lo.SumBy(insights, func(ins Insight) float64 {
		return ins.Confidence
	})
	return sum / float64(len(insights))
}
