package wavelet

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"wavebt/internal"
	"wavebt/internal/metrics"
	"wavebt/internal/timeframe"
)

// Strategy вычисляет прогнозы, отклонения и сигналы для одной конфигурации.
// Безопасна для одновременного использования из нескольких горутин.
type Strategy struct {
	cfg     Config
	denoise internal.DenoiseOptions
	base    timeframe.Timeframe
	inf     timeframe.Timeframe

	logger  zerolog.Logger
	metrics *metrics.Recorder
}

type Option func(*Strategy)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Strategy) {
		s.logger = logger
	}
}

// WithMetrics подключает запись метрик окон и сигналов.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Strategy) {
		s.metrics = r
	}
}

// New проверяет конфигурацию и копирует её; дальнейшие изменения cfg на
// стратегию не влияют.
func New(cfg *Config, opts ...Option) (*Strategy, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dwt config: %w", err)
	}
	denoise, err := cfg.DenoiseOptions()
	if err != nil {
		return nil, err
	}
	base, err := timeframe.Parse(cfg.Timeframe)
	if err != nil {
		return nil, err
	}
	inf, err := timeframe.Parse(cfg.InformativeTimeframe)
	if err != nil {
		return nil, err
	}

	s := &Strategy{
		cfg:     *cfg,
		denoise: denoise,
		base:    base,
		inf:     inf,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config возвращает копию конфигурации.
func (s *Strategy) Config() Config {
	return s.cfg
}

// ComputeSignal — прогноз по одному окну. Ошибка модели даёт NaN.
func (s *Strategy) ComputeSignal(window []float64) float64 {
	v, err := s.computeSignal(window)
	if err != nil {
		return math.NaN()
	}
	return v
}

func (s *Strategy) computeSignal(window []float64) (float64, error) {
	model, err := Model(window, s.denoise)
	if err != nil {
		return math.NaN(), err
	}
	v := PredictWithSmoothing(model, s.cfg.Lookahead, s.cfg.smoothing(len(model)))
	if math.IsNaN(v) {
		return v, fmt.Errorf("predict: %w", internal.ErrNotAvailable)
	}
	return v, nil
}

// Evaluate считает прогноз для каждого окна WindowLength, заканчивающегося
// в позиции i. Первые WindowLength-1 позиций и окна с NaN дают NaN.
func (s *Strategy) Evaluate(closes []float64) []float64 {
	evaluator := internal.RollingEvaluator{
		Window:  s.cfg.WindowLength,
		Workers: s.cfg.Workers,
		Observer: func(i int, took time.Duration, err error) {
			s.metrics.ObserveWindow(took, err)
			if err != nil {
				s.logger.Debug().Err(err).Int("index", i).Msg("window skipped")
			}
		},
	}
	return evaluator.Apply(closes, s.computeSignal)
}

// GenerateSignals размечает ряд отклонений порогами конфигурации.
func (s *Strategy) GenerateSignals(dev []float64) Signals {
	return GenerateSignals(dev, s.cfg.BuyThreshold, s.cfg.SellThreshold, s.cfg.SpikeMultiplier)
}

// Result — колонки стратегии, выровненные по базовым свечам.
type Result struct {
	Predict   []float64
	Deviation []float64
	Signals   Signals
}

// Run считает прогноз на информативном таймфрейме, переносит его на базовые
// свечи и строит по отклонению сигналы.
func (s *Strategy) Run(candles []internal.Candle) (Result, error) {
	start := time.Now()

	informative, err := timeframe.Resample(candles, s.base, s.inf)
	if err != nil {
		return Result{}, fmt.Errorf("resample: %w", err)
	}
	predInf := s.Evaluate(internal.Closes(informative))

	predict, err := timeframe.MergeInformative(candles, informative, predInf, s.base, s.inf)
	if err != nil {
		return Result{}, err
	}
	deviation := RelativeDeviation(predict, internal.Closes(candles))
	signals := s.GenerateSignals(deviation)

	enter, exit := signals.Counts()
	s.metrics.RecordSignals("enter", enter)
	s.metrics.RecordSignals("exit", exit)
	s.logger.Info().
		Str("config", s.cfg.String()).
		Int("candles", len(candles)).
		Int("informative", len(informative)).
		Int("enter", enter).
		Int("exit", exit).
		Dur("took", time.Since(start)).
		Msg("dwt run finished")

	return Result{Predict: predict, Deviation: deviation, Signals: signals}, nil
}
