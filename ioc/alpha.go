package ioc

import (
	"github.com/spf13/viper"

	"github.com/KNICEX/alpha-engine/internal/service/alpha"
)

func InitEmaCrossAlpha() *alpha.EnhancedEmaCross {
	cfg := alpha.DefaultEmaCrossConfig()
	if err := viper.UnmarshalKey("alpha.ema_cross", &cfg); err != nil {
		panic(err)
	}
	return alpha.NewEnhancedEmaCross(cfg)
}

func InitMacdAlpha() *alpha.EnhancedMacd {
	cfg := alpha.DefaultMacdConfig()
	if err := viper.UnmarshalKey("alpha.macd", &cfg); err != nil {
		panic(err)
	}
	return alpha.NewEnhancedMacd(cfg)
}

func InitAggregator() *alpha.Aggregator {
	type Config struct {
		Strategy      string  `mapstructure:"strategy"`
		MinConfidence float64 `mapstructure:"min_confidence"`
	}

	cfg := Config{
		Strategy:      string(alpha.HighestConfidence),
		MinConfidence: 0.5,
	}
	if err := viper.UnmarshalKey("alpha.aggregator", &cfg); err != nil {
		panic(err)
	}

	return alpha.NewAggregator(
		alpha.AggregationStrategy(cfg.Strategy),
		alpha.WithMinConfidence(cfg.MinConfidence),
	)
}
