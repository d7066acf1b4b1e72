// main.go
package main

import (
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime/pprof"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"wavebt/internal"
	"wavebt/internal/app/backtester"
	"wavebt/internal/config"
	"wavebt/internal/logger"
	"wavebt/internal/metrics"

	_ "wavebt/strategies/simple"
	"wavebt/strategies/wavelet"
)

type flags struct {
	configFile  string
	filename    string
	optimize    bool
	saveSignals int
	sqlite      string
	profPort    int
	debug       bool
	cpuProfile  string
	memProfile  string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	f, set := parseFlags()

	cfg, err := config.LoadWithEnv(f.configFile)
	if err != nil {
		return err
	}
	applyFlags(cfg, f, set)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(reg)

	// Запуск realtime профилирования и метрик если указано
	if cfg.Metrics.ProfPort > 0 {
		http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Metrics.ProfPort)
			log.Info().Str("addr", addr).Msg("pprof at /debug/pprof/, metrics at /metrics")
			if err := http.ListenAndServe(addr, nil); err != nil {
				log.Error().Err(err).Msg("profiling server stopped")
			}
		}()
	}

	// Запуск CPU профилирования если указано
	if f.cpuProfile != "" {
		pf, err := os.Create(f.cpuProfile)
		if err != nil {
			return fmt.Errorf("create cpu profile: %w", err)
		}
		defer pf.Close()
		if err := pprof.StartCPUProfile(pf); err != nil {
			return fmt.Errorf("start cpu profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	if err := registerDWT(cfg, log, recorder); err != nil {
		return err
	}

	// Загрузка данных
	candles, err := internal.LoadCandlesFromFile(cfg.Candles)
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		return fmt.Errorf("no candles in %s", cfg.Candles)
	}
	log.Info().Int("candles", len(candles)).Str("file", cfg.Candles).Msg("candles loaded")

	runner := backtester.NewParallelStrategyRunner(cfg, backtester.NewConsolePrinter(), log)
	results, err := runner.RunAllStrategies(candles)
	if err != nil {
		return err
	}

	if err := saveResults(cfg, candles, results, log); err != nil {
		return err
	}

	// Memory профилирование
	if f.memProfile != "" {
		mf, err := os.Create(f.memProfile)
		if err != nil {
			return fmt.Errorf("create memory profile: %w", err)
		}
		defer mf.Close()
		if err := pprof.WriteHeapProfile(mf); err != nil {
			return fmt.Errorf("write memory profile: %w", err)
		}
	}
	return nil
}

// registerDWT пересобирает стратегию dwt с логгером, метриками и базовой
// конфигурацией из файла, чтобы оптимизация шла поверх неё.
func registerDWT(cfg *config.Config, log zerolog.Logger, recorder *metrics.Recorder) error {
	base, err := internal.NewConfigManager(func() internal.StrategyConfig {
		return wavelet.DefaultConfig()
	}).LoadConfig(cfg.StrategyNode(wavelet.Name))
	if err != nil {
		return err
	}

	strategyLog := log.With().Str("strategy", wavelet.Name).Logger()
	internal.RegisterStrategy(wavelet.NewDWTStrategy(cfg.Slippage, base.(*wavelet.Config), strategyLog, recorder))
	return nil
}

func saveResults(cfg *config.Config, candles []internal.Candle, results []backtester.BenchmarkResult, log zerolog.Logger) error {
	topN := cfg.Output.SaveSignals
	if topN <= 0 {
		log.Debug().Msg("saving signals disabled")
		return nil
	}
	topN = min(topN, len(results))

	savers := []backtester.ResultSaver{backtester.NewFileSaver(cfg.Output.Dir, log)}
	if cfg.Output.SQLite != "" {
		sqliteSaver, err := backtester.NewSQLiteSaver(cfg.Output.SQLite, log)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		defer sqliteSaver.Close()
		savers = append(savers, sqliteSaver)
	}

	for _, saver := range savers {
		if err := saver.SaveTopStrategies(candles, results, cfg.Candles, topN); err != nil {
			return err
		}
	}
	return nil
}

// parseFlags возвращает значения флагов и множество явно заданных
func parseFlags() (flags, map[string]bool) {
	var f flags
	flag.StringVar(&f.configFile, "config", "", "Путь к YAML-конфигурации (пусто = значения по умолчанию)")
	flag.StringVar(&f.filename, "file", "", "Путь к JSON-файлу со свечами")
	flag.BoolVar(&f.optimize, "optimize", false, "Подбирать параметры стратегий вместо конфигурации из файла")
	flag.IntVar(&f.saveSignals, "save_signals", 0, "Сохранить топ-N стратегий с сигналами (0 = не сохранять)")
	flag.StringVar(&f.sqlite, "sqlite", "", "Файл SQLite для сигналов (пусто = не писать)")
	flag.IntVar(&f.profPort, "prof_port", 0, "Порт для pprof и /metrics (0 = отключено)")
	flag.BoolVar(&f.debug, "debug", false, "Включить детальное логирование")
	flag.StringVar(&f.cpuProfile, "cpu_profile", "", "Файл для CPU профилирования (пусто = отключено)")
	flag.StringVar(&f.memProfile, "mem_profile", "", "Файл для памяти профилирования (пусто = отключено)")
	flag.Parse()

	set := make(map[string]bool)
	flag.Visit(func(fl *flag.Flag) {
		set[fl.Name] = true
	})
	return f, set
}

// applyFlags — явно заданные флаги важнее файла конфигурации
func applyFlags(cfg *config.Config, f flags, set map[string]bool) {
	if set["file"] {
		cfg.Candles = f.filename
	}
	if set["optimize"] {
		cfg.Optimize = f.optimize
	}
	if set["save_signals"] {
		cfg.Output.SaveSignals = f.saveSignals
	}
	if set["sqlite"] {
		cfg.Output.SQLite = f.sqlite
	}
	if set["prof_port"] {
		cfg.Metrics.ProfPort = f.profPort
	}
	if f.debug {
		cfg.Log.Level = "debug"
	}
}
