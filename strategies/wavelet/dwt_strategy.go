package wavelet

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"wavebt/internal"
	"wavebt/internal/metrics"
)

const (
	Name = "dwt"

	ColumnPredict   = "dwt_predict"
	ColumnDeviation = "dwt_predict_diff"
)

// ============================================================================
// ГЕНЕРАТОР СИГНАЛОВ
// ============================================================================

type SignalGenerator struct {
	logger  zerolog.Logger
	metrics *metrics.Recorder
}

func NewSignalGenerator(logger zerolog.Logger, recorder *metrics.Recorder) *SignalGenerator {
	return &SignalGenerator{logger: logger, metrics: recorder}
}

func (sg *SignalGenerator) run(candles []internal.Candle, config internal.StrategyConfig) (Result, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return Result{}, fmt.Errorf("unexpected config type %T", config)
	}
	s, err := New(cfg, WithLogger(sg.logger), WithMetrics(sg.metrics))
	if err != nil {
		return Result{}, err
	}
	return s.Run(candles)
}

// GenerateSignalsWithConfig: флаг входа — BUY, выхода — SELL, иначе HOLD.
// При ошибке все сигналы HOLD.
func (sg *SignalGenerator) GenerateSignalsWithConfig(candles []internal.Candle, config internal.StrategyConfig) []internal.SignalType {
	res, err := sg.run(candles, config)
	if err != nil {
		sg.logger.Error().Err(err).Msg("dwt signals")
		return make([]internal.SignalType, len(candles))
	}
	return res.Signals.ToSignalTypes()
}

// Frame отдаёт прогноз и отклонение для экспорта.
func (sg *SignalGenerator) Frame(candles []internal.Candle, config internal.StrategyConfig) (internal.Frame, error) {
	res, err := sg.run(candles, config)
	if err != nil {
		return internal.Frame{}, err
	}
	return internal.Frame{
		Signals: res.Signals.ToSignalTypes(),
		Columns: map[string][]float64{
			ColumnPredict:   res.Predict,
			ColumnDeviation: res.Deviation,
		},
		Tags: res.Signals.Tags,
	}, nil
}

// ============================================================================
// ОПТИМИЗАЦИЯ ПОРОГОВ
// ============================================================================

// deviationGenerator строит сигналы по заранее посчитанному отклонению:
// пороги не влияют на прогноз, поэтому дорогая часть считается один раз.
type deviationGenerator struct {
	deviation []float64
}

func (g deviationGenerator) GenerateSignalsWithConfig(candles []internal.Candle, config internal.StrategyConfig) []internal.SignalType {
	cfg, ok := config.(*Config)
	if !ok {
		return make([]internal.SignalType, len(candles))
	}
	return GenerateSignals(g.deviation, cfg.BuyThreshold, cfg.SellThreshold, cfg.SpikeMultiplier).ToSignalTypes()
}

// ThresholdOptimizer перебирает сетку порогов входа и выхода при
// фиксированных параметрах модели.
type ThresholdOptimizer struct {
	base             *Config
	slippageProvider *internal.SlippageProvider
	logger           zerolog.Logger
}

func NewThresholdOptimizer(base *Config, slippageProvider *internal.SlippageProvider, logger zerolog.Logger) *ThresholdOptimizer {
	return &ThresholdOptimizer{base: base, slippageProvider: slippageProvider, logger: logger}
}

// thresholdSteps — пороги 0.005..0.050 с шагом 0.005.
var thresholdSteps = lo.Map(lo.RangeFrom(1, 10), func(k int, _ int) float64 {
	return float64(k) * 0.005
})

// Grid возвращает сетку конфигураций: все пары buy/sell поверх базовой.
func (o *ThresholdOptimizer) Grid() []internal.StrategyConfig {
	return lo.CrossJoinBy2(thresholdSteps, thresholdSteps, func(buy, sell float64) internal.StrategyConfig {
		cfg := *o.base
		cfg.BuyThreshold = buy
		cfg.SellThreshold = -sell
		return &cfg
	})
}

// Optimize игнорирует переданный генератор: сигналы для каждой точки сетки
// строятся по одному общему ряду отклонений.
func (o *ThresholdOptimizer) Optimize(candles []internal.Candle, _ internal.SignalGenerator) (internal.StrategyConfig, error) {
	if o.base == nil {
		return nil, errors.New("threshold optimizer: no base config")
	}
	s, err := New(o.base, WithLogger(o.logger))
	if err != nil {
		return nil, err
	}
	res, err := s.Run(candles)
	if err != nil {
		return nil, err
	}

	return internal.NewGridSearchOptimizer(o.slippageProvider, o.Grid).
		WithLogger(o.logger.With().Str("strategy", Name).Logger()).
		Optimize(candles, deviationGenerator{deviation: res.Deviation})
}

// ============================================================================
// ФАБРИЧНАЯ ФУНКЦИЯ
// ============================================================================

// NewDWTStrategy собирает стратегию. base — конфигурация, поверх которой
// читается YAML и строится сетка оптимизации; nil — значения по умолчанию.
func NewDWTStrategy(slippage float64, base *Config, logger zerolog.Logger, recorder *metrics.Recorder) internal.TradingStrategy {
	if base == nil {
		base = DefaultConfig()
	}

	// 1. Провайдер проскальзывания
	slippageProvider := internal.NewSlippageProvider(slippage)

	// 2. Генератор сигналов
	signalGenerator := NewSignalGenerator(logger, recorder)

	// 3. Менеджер конфигурации: YAML поверх значений по умолчанию
	configManager := internal.NewConfigManager(func() internal.StrategyConfig {
		cfg := *base
		return &cfg
	})

	// 4. Оптимизатор порогов поверх базовой конфигурации
	optimizer := NewThresholdOptimizer(base, slippageProvider, logger)

	return internal.NewStrategyBase(
		Name,
		signalGenerator,
		configManager,
		optimizer,
		slippageProvider,
	)
}

func init() {
	internal.RegisterStrategy(NewDWTStrategy(0.01, nil, zerolog.Nop(), nil))
}
