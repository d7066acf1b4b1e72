package internal

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Trend — линейный тренд y = Slope*i + Intercept по локальному индексу окна.
type Trend struct {
	Slope     float64
	Intercept float64
}

// At возвращает значение тренда в точке i.
func (t Trend) At(i float64) float64 {
	return t.Slope*i + t.Intercept
}

// Line строит тренд на индексах 0..n-1.
func (t Trend) Line(n int) []float64 {
	line := make([]float64, n)
	for i := range line {
		line[i] = t.At(float64(i))
	}
	return line
}

// Restore возвращает тренд обратно: y[i] + Slope*i + Intercept.
// Вход не изменяется.
func (t Trend) Restore(y []float64) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = v + t.At(float64(i))
	}
	return out
}

// FitTrend подбирает прямую методом наименьших квадратов по индексам 0..n-1.
func FitTrend(x []float64) (Trend, error) {
	if len(x) < 2 {
		return Trend{}, fmt.Errorf("fit trend: need at least 2 points, got %d: %w", len(x), ErrInsufficientData)
	}
	if !IsFinite(x) {
		return Trend{}, fmt.Errorf("fit trend: %w", ErrNotAvailable)
	}
	alpha, beta := stat.LinearRegression(Index(len(x)), x, nil, false)
	return Trend{Slope: beta, Intercept: alpha}, nil
}

// Detrend вычитает из ряда линейный тренд и возвращает остаток вместе с
// параметрами тренда, достаточными для обратного преобразования.
func Detrend(x []float64) ([]float64, Trend, error) {
	trend, err := FitTrend(x)
	if err != nil {
		return nil, Trend{}, err
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v - trend.At(float64(i))
	}
	return out, trend, nil
}
