package wavelet

import (
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"wavebt/internal"
	"wavebt/internal/metrics"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func makeCandles(closes []float64, step time.Duration) []internal.Candle {
	candles := make([]internal.Candle, len(closes))
	for i, c := range closes {
		ts := t0.Add(time.Duration(i) * step)
		candles[i] = internal.Candle{
			Open:       internal.Price(c),
			High:       internal.Price(c),
			Low:        internal.Price(c),
			Close:      internal.Price(c),
			Volume:     1,
			Time:       ts.Format(time.RFC3339),
			ParsedTime: ts,
			IsComplete: true,
		}
	}
	return candles
}

func testConfig(window int, tf, inf string) *Config {
	cfg := DefaultConfig()
	cfg.WindowLength = window
	cfg.Timeframe = tf
	cfg.InformativeTimeframe = inf
	return cfg
}

func assertSeriesEqual(t *testing.T, want, got []float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.True(t, math.IsNaN(got[i]), "index %d: want NaN, got %v", i, got[i])
			continue
		}
		assert.InDelta(t, want[i], got[i], 1e-12, "index %d", i)
	}
}

func counterSum(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	sum := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
	}
	return sum
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 128, cfg.WindowLength)
	assert.Equal(t, 0, cfg.Lookahead)
	assert.Equal(t, 0.01, cfg.BuyThreshold)
	assert.Equal(t, -0.01, cfg.SellThreshold)
	assert.Equal(t, 2.0, cfg.SpikeMultiplier)
	assert.Equal(t, "haar", cfg.Wavelet)
	assert.Equal(t, 1, cfg.Level)
	assert.Equal(t, "smooth", cfg.Mode)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, "5m", cfg.Timeframe)
	assert.Equal(t, "15m", cfg.InformativeTimeframe)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 128.0, cfg.smoothing(128))
}

func TestConfig_Validate(t *testing.T) {
	tests := map[string]func(c *Config){
		"short window":           func(c *Config) { c.WindowLength = 3 },
		"negative lookahead":     func(c *Config) { c.Lookahead = -1 },
		"zero buy":               func(c *Config) { c.BuyThreshold = 0 },
		"positive sell":          func(c *Config) { c.SellThreshold = 0.01 },
		"zero spike":             func(c *Config) { c.SpikeMultiplier = 0 },
		"unknown wavelet":        func(c *Config) { c.Wavelet = "db4" },
		"unknown mode":           func(c *Config) { c.Mode = "periodic" },
		"level too high":         func(c *Config) { c.Level = 8 },
		"level too high for db2": func(c *Config) { c.Wavelet, c.Level = "db2", 6 },
		"bad timeframe":          func(c *Config) { c.Timeframe = "7m" },
		"informative too small":  func(c *Config) { c.Timeframe, c.InformativeTimeframe = "15m", "5m" },
		"negative smoothing":     func(c *Config) { c.SplineSmoothing = -1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())

			_, err := New(cfg)
			assert.Error(t, err)
		})
	}

	cfg := DefaultConfig()
	cfg.Level = 7
	assert.NoError(t, cfg.Validate())
	cfg.Wavelet, cfg.Level = "db2", 5
	assert.NoError(t, cfg.Validate())
}

func TestNew_CopiesConfig(t *testing.T) {
	cfg := DefaultConfig()
	s, err := New(cfg)
	require.NoError(t, err)

	cfg.BuyThreshold = 0.5
	cfg.WindowLength = 4
	assert.Equal(t, 0.01, s.Config().BuyThreshold)
	assert.Equal(t, 128, s.Config().WindowLength)
}

func TestStrategy_ComputeSignal(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	assert.InDelta(t, 128.0, s.ComputeSignal(ramp(128)), 1e-9)
	assert.Equal(t, ComputeSignal(noisySine(128, 1), 0), s.ComputeSignal(noisySine(128, 1)))
	assert.True(t, math.IsNaN(s.ComputeSignal([]float64{1})))
}

func TestStrategy_EvaluateParallel(t *testing.T) {
	closes := noisySine(300, 3)
	closes[150] = math.NaN()

	seq, err := New(testConfig(32, "5m", "5m"))
	require.NoError(t, err)
	cfg := testConfig(32, "5m", "5m")
	cfg.Workers = 4
	par, err := New(cfg)
	require.NoError(t, err)

	want := seq.Evaluate(closes)
	got := par.Evaluate(closes)
	assertSeriesEqual(t, want, got)

	assert.True(t, math.IsNaN(want[30]))
	assert.False(t, math.IsNaN(want[31]))
	assert.True(t, math.IsNaN(want[150]))
	assert.True(t, math.IsNaN(want[181]))
	assert.False(t, math.IsNaN(want[182]))
}

func TestStrategy_RunSameTimeframe(t *testing.T) {
	candles := makeCandles(noisySine(200, 5), 5*time.Minute)
	s, err := New(testConfig(32, "5m", "5m"))
	require.NoError(t, err)

	res, err := s.Run(candles)
	require.NoError(t, err)

	closes := internal.Closes(candles)
	assertSeriesEqual(t, s.Evaluate(closes), res.Predict)
	assertSeriesEqual(t, RelativeDeviation(res.Predict, closes), res.Deviation)
	assert.Equal(t, s.GenerateSignals(res.Deviation), res.Signals)
	assert.Len(t, res.Signals.Tags, len(candles))
}

func TestStrategy_RunInformative(t *testing.T) {
	// 180 свечей 5m -> 60 свечей 15m
	candles := makeCandles(noisySine(180, 9), 5*time.Minute)
	s, err := New(testConfig(16, "5m", "15m"))
	require.NoError(t, err)

	res, err := s.Run(candles)
	require.NoError(t, err)
	require.Len(t, res.Predict, 180)

	// Первый прогноз считается на 16-й свече 15m (индекс 15) и виден на
	// последней 5m свече этой группы: 3*15+2
	first := 3*15 + 2
	assert.True(t, math.IsNaN(res.Predict[first-1]))
	require.False(t, math.IsNaN(res.Predict[first]))
	assert.Equal(t, res.Predict[first], res.Predict[first+1])
	assert.Equal(t, res.Predict[first], res.Predict[first+2])
	assert.NotEqual(t, res.Predict[first], res.Predict[first+3])

	// Отклонение считается к ценам базового таймфрейма
	price := candles[first+1].Close.ToFloat64()
	assert.InDelta(t, (res.Predict[first+1]-price)/price, res.Deviation[first+1], 1e-12)
}

func TestStrategy_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	candles := makeCandles(noisySine(100, 11), 5*time.Minute)
	s, err := New(testConfig(20, "5m", "5m"), WithMetrics(metrics.New(reg)), WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	res, err := s.Run(candles)
	require.NoError(t, err)

	enter, exit := res.Signals.Counts()
	assert.Equal(t, float64(100-20+1), counterSum(t, reg, "wavebt_window_evaluations_total"))
	assert.Equal(t, float64(enter+exit), counterSum(t, reg, "wavebt_signals_total"))
}

func TestRegisteredStrategy(t *testing.T) {
	strategy, ok := internal.GetStrategy(Name)
	require.True(t, ok)
	assert.Contains(t, internal.GetStrategyNames(), Name)

	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte("buy_threshold: 0.02\nwindow_length: 32\ntimeframe: 5m\ninformative_timeframe: 5m\n"), &node))

	cfg, err := strategy.LoadConfig(&node)
	require.NoError(t, err)
	dwt := cfg.(*Config)
	assert.Equal(t, 0.02, dwt.BuyThreshold)
	assert.Equal(t, 32, dwt.WindowLength)
	assert.Equal(t, -0.01, dwt.SellThreshold)

	candles := makeCandles(noisySine(120, 13), 5*time.Minute)
	signals := strategy.GenerateSignalsWithConfig(candles, cfg)
	assert.Len(t, signals, len(candles))

	fp, ok := strategy.(internal.FrameProvider)
	require.True(t, ok)
	frame, err := fp.Frame(candles, cfg)
	require.NoError(t, err)
	assert.Len(t, frame.Columns[ColumnPredict], len(candles))
	assert.Len(t, frame.Columns[ColumnDeviation], len(candles))
	assert.Len(t, frame.Tags, len(candles))
}

type otherConfig struct{}

func (otherConfig) Validate() error { return nil }
func (otherConfig) String() string  { return "other" }

func TestSignalGenerator_WrongConfig(t *testing.T) {
	g := NewSignalGenerator(zerolog.Nop(), nil)
	candles := makeCandles(noisySine(10, 1), 5*time.Minute)

	assert.Equal(t, make([]internal.SignalType, 10), g.GenerateSignalsWithConfig(candles, otherConfig{}))
	_, err := g.Frame(candles, otherConfig{})
	assert.Error(t, err)
}

func TestDeviationGenerator_WrongConfig(t *testing.T) {
	g := deviationGenerator{deviation: []float64{0, 0.015, -0.015}}
	candles := makeCandles([]float64{1, 2, 3}, 5*time.Minute)

	assert.Equal(t, make([]internal.SignalType, 3), g.GenerateSignalsWithConfig(candles, otherConfig{}))
	assert.Equal(t, []internal.SignalType{internal.HOLD, internal.BUY, internal.SELL},
		g.GenerateSignalsWithConfig(candles, testConfig(4, "5m", "5m")))
}

func TestFrame_SingleRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := testConfig(20, "5m", "5m")
	strategy := NewDWTStrategy(0, cfg, zerolog.Nop(), metrics.New(reg))
	candles := makeCandles(noisySine(100, 11), 5*time.Minute)

	frame, err := strategy.(internal.FrameProvider).Frame(candles, cfg)
	require.NoError(t, err)

	// Колонки и сигналы получены одним прогоном окна
	assert.Equal(t, float64(100-20+1), counterSum(t, reg, "wavebt_window_evaluations_total"))

	s, err := New(cfg)
	require.NoError(t, err)
	res, err := s.Run(candles)
	require.NoError(t, err)
	assert.Equal(t, res.Signals.ToSignalTypes(), frame.Signals)
	assertSeriesEqual(t, res.Deviation, frame.Columns[ColumnDeviation])
}

func TestThresholdOptimizer(t *testing.T) {
	base := testConfig(24, "5m", "5m")
	opt := NewThresholdOptimizer(base, internal.NewSlippageProvider(0), zerolog.Nop())

	grid := opt.Grid()
	require.Len(t, grid, 100)
	for _, c := range grid {
		cfg := c.(*Config)
		assert.NoError(t, cfg.Validate())
		assert.Equal(t, 24, cfg.WindowLength)
	}
	assert.InDelta(t, 0.005, grid[0].(*Config).BuyThreshold, 1e-12)
	assert.InDelta(t, -0.05, grid[99].(*Config).SellThreshold, 1e-12)

	candles := makeCandles(noisySine(400, 17), 5*time.Minute)
	best, err := opt.Optimize(candles, nil)
	require.NoError(t, err)

	cfg := best.(*Config)
	assert.GreaterOrEqual(t, cfg.BuyThreshold, 0.005-1e-12)
	assert.LessOrEqual(t, cfg.BuyThreshold, 0.05+1e-12)
	assert.Less(t, cfg.SellThreshold, 0.0)
	assert.Equal(t, 24, cfg.WindowLength)
	// Базовая конфигурация не меняется
	assert.Equal(t, 0.01, base.BuyThreshold)
}
