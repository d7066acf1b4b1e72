// Package timeframe выравнивает ряды разных таймфреймов: агрегирует базовые
// свечи в старший (информативный) таймфрейм и возвращает значения,
// посчитанные на старшем таймфрейме, обратно на базовые свечи.
package timeframe

import (
	"fmt"
	"math"
	"time"

	"wavebt/internal"
)

// Timeframe — таймфрейм свечей
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF3m  Timeframe = "3m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF30m Timeframe = "30m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

var durations = map[Timeframe]time.Duration{
	TF1m:  time.Minute,
	TF3m:  3 * time.Minute,
	TF5m:  5 * time.Minute,
	TF15m: 15 * time.Minute,
	TF30m: 30 * time.Minute,
	TF1h:  time.Hour,
	TF4h:  4 * time.Hour,
	TF1d:  24 * time.Hour,
}

// Parse проверяет строку таймфрейма ("5m", "1h", ...).
func Parse(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := durations[tf]; !ok {
		return "", fmt.Errorf("unsupported timeframe: %q", s)
	}
	return tf, nil
}

// Duration возвращает длительность свечи таймфрейма.
func (tf Timeframe) Duration() (time.Duration, error) {
	d, ok := durations[tf]
	if !ok {
		return 0, fmt.Errorf("unsupported timeframe: %q", string(tf))
	}
	return d, nil
}

func (tf Timeframe) String() string {
	return string(tf)
}

func pair(base, target Timeframe) (time.Duration, time.Duration, error) {
	baseDur, err := base.Duration()
	if err != nil {
		return 0, 0, err
	}
	targetDur, err := target.Duration()
	if err != nil {
		return 0, 0, err
	}
	if targetDur < baseDur || targetDur%baseDur != 0 {
		return 0, 0, fmt.Errorf("timeframe %s is not a multiple of %s", target, base)
	}
	return baseDur, targetDur, nil
}

// Resample агрегирует базовые свечи в свечи таймфрейма target.
// Время свечи — время открытия. В результат попадают только завершённые
// группы: в группе ровно targetDur/baseDur свечей и последняя закрывается на
// правой границе. Группы с пропусками и незавершённая последняя группа
// отбрасываются.
func Resample(candles []internal.Candle, base, target Timeframe) ([]internal.Candle, error) {
	baseDur, targetDur, err := pair(base, target)
	if err != nil {
		return nil, err
	}
	if baseDur == targetDur {
		return append([]internal.Candle(nil), candles...), nil
	}

	var (
		out     []internal.Candle
		current internal.Candle
		start   time.Time
		last    time.Time
		open    bool
		members int
	)
	size := int(targetDur / baseDur)
	flush := func() {
		if open && members == size && last.Add(baseDur).Equal(start.Add(targetDur)) {
			out = append(out, current)
		}
	}

	for _, c := range candles {
		t := c.ToTime()
		bucket := t.Truncate(targetDur)
		if !open || !bucket.Equal(start) {
			flush()
			start = bucket
			open = true
			members = 0
			current = internal.Candle{
				Open:       c.Open,
				High:       c.High,
				Low:        c.Low,
				Time:       bucket.Format(time.RFC3339),
				ParsedTime: bucket,
				IsComplete: true,
			}
		}
		current.High = internal.Price(math.Max(current.High.ToFloat64(), c.High.ToFloat64()))
		current.Low = internal.Price(math.Min(current.Low.ToFloat64(), c.Low.ToFloat64()))
		current.Close = c.Close
		current.Volume += c.Volume
		last = t
		members++
	}
	flush()
	return out, nil
}

// MergeInformative переносит значения, посчитанные на информативных свечах,
// на базовые свечи. Значение информативной свечи становится видимым на базовой
// свече со временем inf.Time + infDur - baseDur (её закрытие совпадает с
// закрытием информативной свечи) и протягивается вперёд до следующего
// значения. NaN не затирают последнее известное значение. До первого
// видимого значения результат NaN.
func MergeInformative(base, inf []internal.Candle, values []float64, baseTF, infTF Timeframe) ([]float64, error) {
	if len(inf) != len(values) {
		return nil, fmt.Errorf("merge informative: %d candles but %d values", len(inf), len(values))
	}
	baseDur, infDur, err := pair(baseTF, infTF)
	if err != nil {
		return nil, err
	}
	shift := infDur - baseDur

	out := internal.NaNs(len(base))
	current := math.NaN()
	j := 0
	for i, c := range base {
		t := c.ToTime()
		for j < len(inf) && !inf[j].ToTime().Add(shift).After(t) {
			if !math.IsNaN(values[j]) {
				current = values[j]
			}
			j++
		}
		out[i] = current
	}
	return out, nil
}
