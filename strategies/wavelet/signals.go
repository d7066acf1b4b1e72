package wavelet

import (
	"math"

	"github.com/samber/lo"

	"wavebt/internal"
)

const (
	buyTag  = "dwt_buy_1 "
	sellTag = "dwt_sell_1 "
)

// Signals — флаги входа/выхода и теги, выровненные по исходному ряду.
// Тег ставится на любое пересечение порога, флаг только если пересечение
// не является выбросом.
type Signals struct {
	Enter []bool
	Exit  []bool
	Tags  []string
}

// GenerateSignals размечает пересечения порогов рядом отклонений dev.
//
// Вход в позиции i: dev[i-1] <= buy < dev[i] и dev[i] < spike*buy.
// Выход: dev[i-1] >= sell > dev[i] и dev[i] > spike*sell.
// Позиция 0 никогда не срабатывает, сравнения с NaN ложны.
func GenerateSignals(dev []float64, buy, sell, spike float64) Signals {
	s := Signals{
		Enter: make([]bool, len(dev)),
		Exit:  make([]bool, len(dev)),
		Tags:  make([]string, len(dev)),
	}

	for i := 1; i < len(dev); i++ {
		prev, cur := dev[i-1], dev[i]

		if prev <= buy && cur > buy {
			s.Tags[i] += buyTag
			if cur < spike*buy {
				s.Enter[i] = true
			}
		}
		if prev >= sell && cur < sell {
			s.Tags[i] += sellTag
			if cur > spike*sell {
				s.Exit[i] = true
			}
		}
	}
	return s
}

// RelativeDeviation возвращает (pred - close) / close поэлементно.
// NaN там, где прогноза нет или цена закрытия нулевая.
func RelativeDeviation(pred, closes []float64) []float64 {
	out := internal.NaNs(len(closes))
	for i := range out {
		if i >= len(pred) || math.IsNaN(pred[i]) || closes[i] == 0 {
			continue
		}
		out[i] = (pred[i] - closes[i]) / closes[i]
	}
	return out
}

// Counts — количество флагов входа и выхода.
func (s Signals) Counts() (enter, exit int) {
	return lo.Count(s.Enter, true), lo.Count(s.Exit, true)
}

// ToSignalTypes переводит флаги в сигналы бэктеста. Позиция, где стоят
// оба флага, остаётся HOLD.
func (s Signals) ToSignalTypes() []internal.SignalType {
	return lo.Map(s.Enter, func(enter bool, i int) internal.SignalType {
		switch {
		case enter && !s.Exit[i]:
			return internal.BUY
		case s.Exit[i] && !enter:
			return internal.SELL
		default:
			return internal.HOLD
		}
	})
}
