package internal

import (
	"fmt"
	"math"
	"time"

	"github.com/samber/lo"
	lop "github.com/samber/lo/parallel"
)

// WindowFunc вычисляет одно значение по окну. Окно — срез исходного ряда,
// функция не должна его изменять.
type WindowFunc func(window []float64) (float64, error)

// RollingObserver получает результат каждого вычисленного окна:
// индекс позиции, длительность и ошибку (nil при успехе).
// При параллельной оценке вызывается из нескольких горутин.
type RollingObserver func(index int, took time.Duration, err error)

// RollingEvaluator применяет WindowFunc к каждому окну длины Window,
// заканчивающемуся в позиции i.
//
// Позиции i < Window-1 и окна, содержащие NaN, дают NaN. Ошибка функции
// превращается в NaN для этой позиции и не прерывает оценку.
// Стоимость O(N * стоимость окна); для вейвлет-конвейера это O(N*W log W).
type RollingEvaluator struct {
	Window   int
	Workers  int // <= 1 — последовательно
	Observer RollingObserver
}

// Apply возвращает ряд той же длины, что и values.
func (e RollingEvaluator) Apply(values []float64, fn WindowFunc) []float64 {
	out := NaNs(len(values))
	if e.Window < 1 || len(values) < e.Window {
		return out
	}

	positions := lo.RangeFrom(e.Window-1, len(values)-e.Window+1)
	if e.Workers <= 1 || len(positions) < 2 {
		for _, i := range positions {
			out[i] = e.evaluate(values, i, fn)
		}
		return out
	}

	// Каждый воркер пишет только в свой непрерывный диапазон индексов
	size := (len(positions) + e.Workers - 1) / e.Workers
	lop.ForEach(lo.Chunk(positions, size), func(chunk []int, _ int) {
		for _, i := range chunk {
			out[i] = e.evaluate(values, i, fn)
		}
	})
	return out
}

func (e RollingEvaluator) evaluate(values []float64, i int, fn WindowFunc) float64 {
	window := values[i-e.Window+1 : i+1]
	if !IsFinite(window) {
		e.observe(i, 0, fmt.Errorf("window ending at %d: %w", i, ErrNotAvailable))
		return math.NaN()
	}

	start := time.Now()
	v, err := fn(window)
	e.observe(i, time.Since(start), err)
	if err != nil {
		return math.NaN()
	}
	return v
}

func (e RollingEvaluator) observe(i int, took time.Duration, err error) {
	if e.Observer != nil {
		e.Observer(i, took, err)
	}
}

// RollingApply — последовательная скользящая оценка.
func RollingApply(values []float64, window int, fn WindowFunc) []float64 {
	return RollingEvaluator{Window: window}.Apply(values, fn)
}

// RollingApplyParallel делит позиции на workers непрерывных диапазонов.
// Результат совпадает с RollingApply.
func RollingApplyParallel(values []float64, window, workers int, fn WindowFunc) []float64 {
	return RollingEvaluator{Window: window, Workers: workers}.Apply(values, fn)
}
