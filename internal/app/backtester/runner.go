package backtester

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wavebt/internal"
	"wavebt/internal/config"
)

type slippageSetter interface {
	SetSlippage(slippage float64)
}

// ParallelStrategyRunner — параллельный запуск стратегий
type ParallelStrategyRunner struct {
	cfg     *config.Config
	printer ResultPrinter
	logger  zerolog.Logger
}

// NewParallelStrategyRunner — конструктор; printer может быть nil
func NewParallelStrategyRunner(cfg *config.Config, printer ResultPrinter, logger zerolog.Logger) *ParallelStrategyRunner {
	return &ParallelStrategyRunner{
		cfg:     cfg,
		printer: printer,
		logger:  logger,
	}
}

// resolveConfig — конфигурация из файла либо оптимизация
func (r *ParallelStrategyRunner) resolveConfig(strategy internal.TradingStrategy, candles []internal.Candle) (internal.StrategyConfig, error) {
	if r.cfg.Optimize {
		r.logger.Debug().Str("strategy", strategy.Name()).Msg("optimizing config")
		return strategy.Optimize(candles, strategy)
	}

	node := r.cfg.StrategyNode(strategy.Name())
	if node == nil {
		r.logger.Debug().Str("strategy", strategy.Name()).Msg("no config in file, using defaults")
	}
	return strategy.LoadConfig(node)
}

// RunStrategy — запускает одну стратегию
func (r *ParallelStrategyRunner) RunStrategy(strategyName string, candles []internal.Candle) (*BenchmarkResult, error) {
	strategy, ok := internal.GetStrategy(strategyName)
	if !ok {
		return nil, fmt.Errorf("strategy %s not found", strategyName)
	}
	if s, ok := strategy.(slippageSetter); ok {
		s.SetSlippage(r.cfg.Slippage)
	}

	start := time.Now()

	cfg, err := r.resolveConfig(strategy, candles)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", strategyName, err)
	}

	signals := strategy.GenerateSignalsWithConfig(candles, cfg)
	result, err := internal.Backtest(candles, signals, r.cfg.Slippage)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", strategyName, err)
	}

	return &BenchmarkResult{
		Name:           strategy.Name(),
		TotalProfit:    result.TotalProfit,
		TradeCount:     result.TradeCount,
		FinalPortfolio: result.FinalPortfolio,
		ExecutionTime:  time.Since(start),
		Config:         cfg,
	}, nil
}

// strategyNames — стратегии из конфигурации либо все зарегистрированные
func (r *ParallelStrategyRunner) strategyNames() ([]string, error) {
	if len(r.cfg.Run) == 0 {
		return internal.GetStrategyNames(), nil
	}
	for _, name := range r.cfg.Run {
		if _, ok := internal.GetStrategy(name); !ok {
			return nil, fmt.Errorf("strategy %s not found", name)
		}
	}
	return r.cfg.Run, nil
}

// RunAllStrategies — запускает стратегии параллельно. Результаты
// отсортированы по прибыли, лучшие первыми. Стратегии с ошибкой
// пропускаются.
func (r *ParallelStrategyRunner) RunAllStrategies(candles []internal.Candle) ([]BenchmarkResult, error) {
	names, err := r.strategyNames()
	if err != nil {
		return nil, err
	}

	r.logger.Info().
		Int("strategies", len(names)).
		Int("candles", len(candles)).
		Int("cpu", runtime.NumCPU()).
		Bool("optimize", r.cfg.Optimize).
		Msg("running strategies")

	startTime := time.Now()

	resultsChan := make(chan BenchmarkResult, len(names))
	var wg sync.WaitGroup

	for _, name := range names {
		wg.Add(1)

		go func(strategyName string) {
			defer wg.Done()

			result, err := r.RunStrategy(strategyName, candles)
			if err != nil {
				r.logger.Error().Err(err).Str("strategy", strategyName).Msg("strategy failed")
				return
			}
			resultsChan <- *result
			r.logger.Info().
				Str("strategy", result.Name).
				Str("config", result.Config.String()).
				Float64("profit", result.TotalProfit).
				Int("trades", result.TradeCount).
				Dur("took", result.ExecutionTime).
				Msg("strategy finished")
		}(name)
	}

	wg.Wait()
	close(resultsChan)

	results := make([]BenchmarkResult, 0, len(names))
	for result := range resultsChan {
		results = append(results, result)
		if r.printer != nil {
			r.printer.PrintProgress(len(results), len(names))
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalProfit > results[j].TotalProfit
	})

	r.logger.Info().
		Int("completed", len(results)).
		Dur("took", time.Since(startTime)).
		Msg("all strategies finished")

	if r.printer != nil {
		r.printer.PrintComparison(results)
	}
	return results, nil
}
