// backtest.go — оценочный бэктест: один инструмент, весь капитал в позиции или в деньгах.
package internal

import (
	"fmt"
)

const initialCash = 10000.0

type BacktestResult struct {
	TotalProfit     float64
	TradeCount      int
	FinalPortfolio  float64
	PortfolioValues []float64
}

// Backtest прогоняет сигналы по ценам закрытия. Сделкой считается только
// закрытая пара BUY+SELL; SELL без позиции игнорируется.
func Backtest(candles []Candle, signals []SignalType, slippage float64) (BacktestResult, error) {
	if len(candles) != len(signals) {
		return BacktestResult{}, fmt.Errorf("backtest: %d candles but %d signals", len(candles), len(signals))
	}
	if len(candles) == 0 {
		return BacktestResult{FinalPortfolio: initialCash, PortfolioValues: []float64{initialCash}}, nil
	}

	cash := initialCash
	holdings := 0.0
	portfolioValues := make([]float64, 0, len(candles)+1)
	portfolioValues = append(portfolioValues, cash)
	tradeCount := 0

	for i, signal := range signals {
		price := candles[i].Close.ToFloat64()

		switch signal {
		case BUY:
			if holdings == 0 && cash > 0 {
				effectivePrice := price + slippage
				holdings = cash / effectivePrice
				cash = 0
			}
		case SELL:
			if holdings > 0 {
				effectivePrice := price - slippage
				cash = holdings * effectivePrice
				holdings = 0
				tradeCount++
			}
		}

		portfolioValues = append(portfolioValues, cash+holdings*price)
	}

	finalPrice := candles[len(candles)-1].Close.ToFloat64()
	finalPortfolio := cash + holdings*finalPrice

	return BacktestResult{
		TotalProfit:     (finalPortfolio - initialCash) / initialCash,
		TradeCount:      tradeCount,
		FinalPortfolio:  finalPortfolio,
		PortfolioValues: portfolioValues,
	}, nil
}
