// strategies/simple/buy_and_hold.go
// Эталон для сравнения: покупка на первой свече, позиция не закрывается.
package simple

import "wavebt/internal"

const BuyAndHoldName = "buy_and_hold"

type BuyAndHoldConfig struct{}

func (c *BuyAndHoldConfig) Validate() error {
	return nil
}

func (c *BuyAndHoldConfig) String() string {
	return "BuyAndHold()"
}

type BuyAndHoldSignalGenerator struct{}

func (sg *BuyAndHoldSignalGenerator) GenerateSignalsWithConfig(candles []internal.Candle, _ internal.StrategyConfig) []internal.SignalType {
	signals := make([]internal.SignalType, len(candles))
	if len(candles) == 0 {
		return signals
	}

	// Покупаем на первой свече, дальше HOLD
	signals[0] = internal.BUY
	return signals
}

func NewBuyAndHoldStrategy(slippage float64) internal.TradingStrategy {
	slippageProvider := internal.NewSlippageProvider(slippage)
	factory := func() internal.StrategyConfig { return &BuyAndHoldConfig{} }

	// Нет параметров для оптимизации: сетка из одной конфигурации
	optimizer := internal.NewGridSearchOptimizer(slippageProvider, func() []internal.StrategyConfig {
		return []internal.StrategyConfig{factory()}
	})

	return internal.NewStrategyBase(
		BuyAndHoldName,
		&BuyAndHoldSignalGenerator{},
		internal.NewConfigManager(factory),
		optimizer,
		slippageProvider,
	)
}

func init() {
	internal.RegisterStrategy(NewBuyAndHoldStrategy(0.01))
}
