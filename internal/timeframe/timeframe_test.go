package timeframe

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavebt/internal"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func makeCandles(n int, step time.Duration, from time.Time) []internal.Candle {
	candles := make([]internal.Candle, n)
	for i := range candles {
		ts := from.Add(time.Duration(i) * step)
		p := internal.Price(100 + float64(i))
		candles[i] = internal.Candle{
			Open:       p,
			High:       p + 1,
			Low:        p - 1,
			Close:      p + 0.5,
			Volume:     10,
			Time:       ts.Format(time.RFC3339),
			ParsedTime: ts,
		}
	}
	return candles
}

func TestParse(t *testing.T) {
	tf, err := Parse("15m")
	require.NoError(t, err)
	d, err := tf.Duration()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, d)

	_, err = Parse("7m")
	assert.Error(t, err)
}

func TestResample_CompleteGroupsOnly(t *testing.T) {
	// 00:00 .. 01:00 — последняя группа 01:00 неполная
	base := makeCandles(13, 5*time.Minute, t0)

	inf, err := Resample(base, TF5m, TF15m)
	require.NoError(t, err)
	require.Len(t, inf, 4)

	first := inf[0]
	assert.Equal(t, t0, first.ToTime())
	assert.Equal(t, 100.0, first.Open.ToFloat64())
	assert.Equal(t, 103.0, first.High.ToFloat64())
	assert.Equal(t, 99.0, first.Low.ToFloat64())
	assert.Equal(t, 102.5, first.Close.ToFloat64())
	assert.Equal(t, 30.0, first.VolumeFloat64())

	assert.Equal(t, t0.Add(45*time.Minute), inf[3].ToTime())
}

func TestResample_GroupWithMissingTail(t *testing.T) {
	base := makeCandles(6, 5*time.Minute, t0)
	// Выкидываем 00:25 — группа 00:15 не закрывается на правой границе
	base = base[:5]

	inf, err := Resample(base, TF5m, TF15m)
	require.NoError(t, err)
	require.Len(t, inf, 1)
	assert.Equal(t, t0, inf[0].ToTime())
}

func TestResample_GroupWithInteriorGap(t *testing.T) {
	base := makeCandles(9, 5*time.Minute, t0)
	// Без 00:20 группа 00:15 закрывается на границе, но в ней две свечи из трёх
	base = append(base[:4:4], base[5:]...)

	inf, err := Resample(base, TF5m, TF15m)
	require.NoError(t, err)
	require.Len(t, inf, 2)
	assert.Equal(t, t0, inf[0].ToTime())
	assert.Equal(t, t0.Add(30*time.Minute), inf[1].ToTime())
}

func TestResample_SameTimeframe(t *testing.T) {
	base := makeCandles(3, 5*time.Minute, t0)
	out, err := Resample(base, TF5m, TF5m)
	require.NoError(t, err)
	assert.Equal(t, base, out)
}

func TestResample_NotMultiple(t *testing.T) {
	_, err := Resample(nil, TF15m, TF5m)
	assert.Error(t, err)
}

func TestMergeInformative_ForwardFill(t *testing.T) {
	base := makeCandles(13, 5*time.Minute, t0)
	inf, err := Resample(base, TF5m, TF15m)
	require.NoError(t, err)

	merged, err := MergeInformative(base, inf, []float64{1, 2, 3, 4}, TF5m, TF15m)
	require.NoError(t, err)
	require.Len(t, merged, len(base))

	// Значение свечи 00:00-00:15 видно на базовой свече 00:10
	assert.True(t, math.IsNaN(merged[0]))
	assert.True(t, math.IsNaN(merged[1]))
	want := []float64{1, 1, 1, 2, 2, 2, 3, 3, 3, 4, 4}
	assert.Equal(t, want, merged[2:])
}

func TestMergeInformative_NaNKeepsLastValue(t *testing.T) {
	base := makeCandles(9, 5*time.Minute, t0)
	inf, err := Resample(base, TF5m, TF15m)
	require.NoError(t, err)
	require.Len(t, inf, 3)

	merged, err := MergeInformative(base, inf, []float64{math.NaN(), 7, math.NaN()}, TF5m, TF15m)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.True(t, math.IsNaN(merged[i]), "i=%d", i)
	}
	assert.Equal(t, []float64{7, 7, 7, 7}, merged[5:])
}

func TestMergeInformative_SameTimeframe(t *testing.T) {
	base := makeCandles(3, 5*time.Minute, t0)
	merged, err := MergeInformative(base, base, []float64{math.NaN(), 2, 3}, TF5m, TF5m)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(merged[0]))
	assert.Equal(t, []float64{2, 3}, merged[1:])
}

func TestMergeInformative_LengthMismatch(t *testing.T) {
	base := makeCandles(3, 5*time.Minute, t0)
	_, err := MergeInformative(base, base, []float64{1}, TF5m, TF5m)
	assert.Error(t, err)
}
