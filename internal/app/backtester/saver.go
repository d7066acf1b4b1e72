package backtester

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"wavebt/internal"
)

// SignalRows строит строки свечей с сигналами и колонками стратегии.
// Колонки берутся, если стратегия их отдаёт; иначе только сигналы.
func SignalRows(candles []internal.Candle, strategy internal.TradingStrategy, cfg internal.StrategyConfig) ([]CandleWithSignal, []string, error) {
	var frame internal.Frame
	if fp, ok := strategy.(internal.FrameProvider); ok {
		f, err := fp.Frame(candles, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("frame %s: %w", strategy.Name(), err)
		}
		frame = f
	}
	signals := frame.Signals
	if signals == nil {
		signals = strategy.GenerateSignalsWithConfig(candles, cfg)
	}
	columns := lo.Keys(frame.Columns)
	// Порядок колонок фиксирован для схемы таблиц
	sort.Strings(columns)

	rows := make([]CandleWithSignal, len(candles))
	for j, candle := range candles {
		ts := candle.Time
		if t := candle.ToTime(); !t.IsZero() {
			ts = t.Format(time.RFC3339Nano)
		}
		row := CandleWithSignal{
			Time:   ts,
			Open:   candle.Open.ToFloat64(),
			High:   candle.High.ToFloat64(),
			Low:    candle.Low.ToFloat64(),
			Close:  candle.Close.ToFloat64(),
			Volume: candle.VolumeFloat64(),
			Signal: getSignalAtIndex(signals, j),
		}
		if j < len(frame.Tags) {
			row.Tag = frame.Tags[j]
		}
		for _, name := range columns {
			values := frame.Columns[name]
			if j >= len(values) || math.IsNaN(values[j]) || math.IsInf(values[j], 0) {
				continue
			}
			if row.Columns == nil {
				row.Columns = make(map[string]float64, len(columns))
			}
			row.Columns[name] = values[j]
		}
		rows[j] = row
	}
	return rows, columns, nil
}

// FileSaver — сохранение результатов в JSON-файлы
type FileSaver struct {
	dir    string
	logger zerolog.Logger
}

// NewFileSaver — файлы пишутся в dir
func NewFileSaver(dir string, logger zerolog.Logger) *FileSaver {
	return &FileSaver{dir: dir, logger: logger}
}

// SaveTopStrategies — сохраняет топ-N стратегий с сигналами в отдельные файлы
// <input>_<strategy>_signals.json. Ошибка одной стратегии не прерывает
// сохранение остальных.
func (s *FileSaver) SaveTopStrategies(candles []internal.Candle, results []BenchmarkResult, inputFilename string, topN int) error {
	if topN <= 0 {
		return nil
	}
	if len(results) < topN {
		return fmt.Errorf("not enough strategies to save top %d (have %d)", topN, len(results))
	}

	baseName := strings.TrimSuffix(filepath.Base(inputFilename), filepath.Ext(inputFilename))

	for _, result := range results[:topN] {
		strategy, ok := internal.GetStrategy(result.Name)
		if !ok {
			s.logger.Error().Str("strategy", result.Name).Msg("strategy not found")
			continue
		}

		rows, _, err := SignalRows(candles, strategy, result.Config)
		if err != nil {
			s.logger.Error().Err(err).Str("strategy", result.Name).Msg("build signals")
			continue
		}

		outputFilename := filepath.Join(s.dir, fmt.Sprintf("%s_%s_signals.json", baseName, result.Name))
		data := struct {
			Strategy string             `json:"strategy"`
			Config   any                `json:"config"`
			Profit   float64            `json:"profit"`
			Candles  []CandleWithSignal `json:"candles"`
		}{
			Strategy: result.Name,
			Config:   result.Config,
			Profit:   result.TotalProfit,
			Candles:  rows,
		}

		jsonData, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			s.logger.Error().Err(err).Str("strategy", result.Name).Msg("marshal signals")
			continue
		}
		if err := os.WriteFile(outputFilename, jsonData, 0o644); err != nil {
			s.logger.Error().Err(err).Str("file", outputFilename).Msg("write signals")
			continue
		}

		s.logger.Info().
			Str("file", outputFilename).
			Float64("profit", result.TotalProfit).
			Int("signals", countSignals(rows)).
			Msg("signals saved")
	}
	return nil
}

// getSignalAtIndex — возвращает сигнал по индексу с проверкой границ
func getSignalAtIndex(signals []internal.SignalType, index int) internal.SignalType {
	if index < 0 || index >= len(signals) {
		return internal.HOLD
	}
	return signals[index]
}

// countSignals — количество строк с сигналом, отличным от HOLD
func countSignals(rows []CandleWithSignal) int {
	return lo.CountBy(rows, func(r CandleWithSignal) bool {
		return r.Signal != internal.HOLD
	})
}
