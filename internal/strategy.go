// strategy.go
// Архитектура стратегий: контракты, композиция и реестр
package internal

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// ============================================================================
// ИНТЕРФЕЙСЫ - определяют контракты, а не реализацию
// ============================================================================

// StrategyConfig - конфигурация стратегии
type StrategyConfig interface {
	Validate() error
	String() string
}

// SignalGenerator - генератор торговых сигналов
type SignalGenerator interface {
	GenerateSignalsWithConfig(candles []Candle, config StrategyConfig) []SignalType
}

// ConfigOptimizer - оптимизатор конфигурации
type ConfigOptimizer interface {
	Optimize(candles []Candle, generator SignalGenerator) (StrategyConfig, error)
}

// ConfigManager - управление конфигурацией
type ConfigManager interface {
	DefaultConfig() StrategyConfig
	LoadConfig(node *yaml.Node) (StrategyConfig, error)
}

// TradingStrategy - полная стратегия
type TradingStrategy interface {
	Name() string
	SignalGenerator
	ConfigOptimizer
	ConfigManager
}

// Frame - производные колонки стратегии, выровненные по свечам.
// NaN в колонке означает "значения нет". Signals заполняется тем же
// прогоном, что и колонки.
type Frame struct {
	Signals []SignalType
	Columns map[string][]float64
	Tags    []string
}

// FrameProvider - стратегия, которая умеет отдать свои колонки для экспорта.
type FrameProvider interface {
	Frame(candles []Candle, config StrategyConfig) (Frame, error)
}

// ============================================================================
// КОМПОЗИЦИЯ
// ============================================================================

// SlippageProvider - провайдер проскальзывания
type SlippageProvider struct {
	slippage float64
}

func NewSlippageProvider(slippage float64) *SlippageProvider {
	return &SlippageProvider{slippage: slippage}
}

func (sp *SlippageProvider) GetSlippage() float64 {
	return sp.slippage
}

func (sp *SlippageProvider) SetSlippage(slippage float64) {
	sp.slippage = slippage
}

// ConfigManagerImpl создаёт конфигурации через фабрику. Фабрика должна
// возвращать конфигурацию с уже выставленными значениями по умолчанию:
// поля, которых нет в YAML, останутся дефолтными.
type ConfigManagerImpl struct {
	configFactory func() StrategyConfig
}

func NewConfigManager(factory func() StrategyConfig) *ConfigManagerImpl {
	return &ConfigManagerImpl{configFactory: factory}
}

func (cm *ConfigManagerImpl) DefaultConfig() StrategyConfig {
	return cm.configFactory()
}

func (cm *ConfigManagerImpl) LoadConfig(node *yaml.Node) (StrategyConfig, error) {
	config := cm.configFactory()
	if node != nil {
		if err := node.Decode(config); err != nil {
			return nil, fmt.Errorf("decode strategy config: %w", err)
		}
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid strategy config %s: %w", config, err)
	}
	return config, nil
}

type StrategyBase struct {
	name             string
	signalGenerator  SignalGenerator
	configManager    ConfigManager
	configOptimizer  ConfigOptimizer
	slippageProvider *SlippageProvider
}

// NewStrategyBase - конструктор с явными зависимостями
func NewStrategyBase(
	name string,
	signalGenerator SignalGenerator,
	configManager ConfigManager,
	configOptimizer ConfigOptimizer,
	slippageProvider *SlippageProvider,
) *StrategyBase {
	return &StrategyBase{
		name:             name,
		signalGenerator:  signalGenerator,
		configManager:    configManager,
		configOptimizer:  configOptimizer,
		slippageProvider: slippageProvider,
	}
}

func (sb *StrategyBase) Name() string {
	return sb.name
}

func (sb *StrategyBase) GenerateSignalsWithConfig(candles []Candle, config StrategyConfig) []SignalType {
	return sb.signalGenerator.GenerateSignalsWithConfig(candles, config)
}

func (sb *StrategyBase) Optimize(candles []Candle, generator SignalGenerator) (StrategyConfig, error) {
	return sb.configOptimizer.Optimize(candles, generator)
}

func (sb *StrategyBase) DefaultConfig() StrategyConfig {
	return sb.configManager.DefaultConfig()
}

func (sb *StrategyBase) LoadConfig(node *yaml.Node) (StrategyConfig, error) {
	return sb.configManager.LoadConfig(node)
}

func (sb *StrategyBase) GetSlippage() float64 {
	return sb.slippageProvider.GetSlippage()
}

func (sb *StrategyBase) SetSlippage(slippage float64) {
	sb.slippageProvider.SetSlippage(slippage)
}

// Frame делегирует генератору сигналов, если тот умеет отдавать колонки.
// Иначе кадр содержит только сигналы.
func (sb *StrategyBase) Frame(candles []Candle, config StrategyConfig) (Frame, error) {
	fp, ok := sb.signalGenerator.(FrameProvider)
	if !ok {
		return Frame{Signals: sb.signalGenerator.GenerateSignalsWithConfig(candles, config)}, nil
	}
	frame, err := fp.Frame(candles, config)
	if err != nil {
		return Frame{}, fmt.Errorf("strategy %s: %w", sb.name, err)
	}
	if frame.Signals == nil {
		frame.Signals = sb.signalGenerator.GenerateSignalsWithConfig(candles, config)
	}
	return frame, nil
}

// ============================================================================
// РЕЕСТР
// ============================================================================

var (
	registryMu       sync.RWMutex
	strategyRegistry = make(map[string]TradingStrategy)
)

func RegisterStrategy(strategy TradingStrategy) {
	registryMu.Lock()
	defer registryMu.Unlock()
	strategyRegistry[strategy.Name()] = strategy
}

func GetStrategy(name string) (TradingStrategy, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	strategy, ok := strategyRegistry[name]
	return strategy, ok
}

// GetStrategyNames возвращает имена зарегистрированных стратегий по алфавиту.
func GetStrategyNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := lo.Keys(strategyRegistry)
	sort.Strings(names)
	return names
}
