package backtester

import (
	"time"

	"wavebt/internal"
)

// BenchmarkResult — результат тестирования стратегии
type BenchmarkResult struct {
	Name           string
	TotalProfit    float64
	TradeCount     int
	FinalPortfolio float64
	ExecutionTime  time.Duration
	// Конфигурация, с которой получен результат
	Config internal.StrategyConfig
}

// CandleWithSignal — свеча с сигналом для построения графиков
type CandleWithSignal struct {
	Time   string              `json:"time"`
	Open   float64             `json:"open"`
	High   float64             `json:"high"`
	Low    float64             `json:"low"`
	Close  float64             `json:"close"`
	Volume float64             `json:"volume"`
	Signal internal.SignalType `json:"signal"`
	// Колонки стратегии; NaN не попадают
	Columns map[string]float64 `json:"columns,omitempty"`
	Tag     string             `json:"tag,omitempty"`
}

// StrategyRunner — интерфейс для запуска стратегий
type StrategyRunner interface {
	RunStrategy(strategyName string, candles []internal.Candle) (*BenchmarkResult, error)
	RunAllStrategies(candles []internal.Candle) ([]BenchmarkResult, error)
}

// ResultSaver — интерфейс для сохранения результатов
type ResultSaver interface {
	SaveTopStrategies(candles []internal.Candle, results []BenchmarkResult, inputFilename string, topN int) error
}

// ResultPrinter — интерфейс для вывода результатов
type ResultPrinter interface {
	PrintComparison(results []BenchmarkResult)
	PrintProgress(current, total int)
}
