package internal

import (
	"errors"
	"math"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	lop "github.com/samber/lo/parallel"
)

// ErrNoValidConfigs — в сетке оптимизации не осталось ни одной валидной конфигурации.
var ErrNoValidConfigs = errors.New("no valid configs for optimization")

// GridSearchOptimizer - универсальный оптимизатор через grid search.
// Все конфигурации сетки прогоняются параллельно, выигрывает максимальная
// прибыль; при равенстве - та, что раньше в сетке.
type GridSearchOptimizer struct {
	slippageProvider *SlippageProvider
	configGenerator  func() []StrategyConfig // генератор конфигураций для перебора
	logger           zerolog.Logger
}

func NewGridSearchOptimizer(
	slippageProvider *SlippageProvider,
	configGenerator func() []StrategyConfig,
) *GridSearchOptimizer {
	return &GridSearchOptimizer{
		slippageProvider: slippageProvider,
		configGenerator:  configGenerator,
		logger:           zerolog.Nop(),
	}
}

// WithLogger задаёт логгер для итогов оптимизации.
func (gso *GridSearchOptimizer) WithLogger(logger zerolog.Logger) *GridSearchOptimizer {
	gso.logger = logger
	return gso
}

func (gso *GridSearchOptimizer) Optimize(candles []Candle, generator SignalGenerator) (StrategyConfig, error) {
	configs := gso.configGenerator()

	// Фильтруем только валидные конфигурации
	validConfigs := lo.Filter(configs, func(cfg StrategyConfig, _ int) bool {
		return cfg.Validate() == nil
	})
	if len(validConfigs) == 0 {
		return nil, ErrNoValidConfigs
	}

	// Параллельно тестируем все конфигурации
	configsWithProfit := lop.Map(validConfigs, func(cfg StrategyConfig, _ int) lo.Tuple2[StrategyConfig, float64] {
		signals := generator.GenerateSignalsWithConfig(candles, cfg)
		result, err := Backtest(candles, signals, gso.slippageProvider.GetSlippage())
		if err != nil {
			return lo.T2(cfg, math.Inf(-1))
		}
		return lo.T2(cfg, result.TotalProfit)
	})

	best := lo.MaxBy(configsWithProfit, func(a, b lo.Tuple2[StrategyConfig, float64]) bool {
		return a.B > b.B
	})

	gso.logger.Info().
		Int("grid_size", len(validConfigs)).
		Str("config", best.A.String()).
		Float64("profit", best.B).
		Msg("best config found")
	return best.A, nil
}
