package internal

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MeanAbsDev — среднее абсолютное отклонение от среднего: mean(|x - mean(x)|).
// Для пустого среза возвращает NaN.
func MeanAbsDev(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	mean := stat.Mean(x, nil)
	sum := 0.0
	for _, v := range x {
		sum += math.Abs(v - mean)
	}
	return sum / float64(len(x))
}

// IsFinite проверяет, что все значения конечны (нет NaN и ±Inf).
func IsFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// NaNs возвращает срез длины n, заполненный NaN.
func NaNs(n int) []float64 {
	out := make([]float64, n)
	floats.AddConst(math.NaN(), out)
	return out
}

// Index возвращает 0, 1, ..., n-1 как float64.
func Index(n int) []float64 {
	switch {
	case n <= 0:
		return []float64{}
	case n == 1:
		return []float64{0}
	}
	out := make([]float64, n)
	floats.Span(out, 0, float64(n-1))
	return out
}
