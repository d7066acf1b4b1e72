package internal

import (
	"fmt"
	"math"
)

// madScale переводит среднее абсолютное отклонение в оценку сигмы шума.
const madScale = 0.6745

// DenoiseOptions — параметры вейвлет-шумоподавления.
type DenoiseOptions struct {
	Wavelet Wavelet
	Level   int
	Mode    Mode
}

// DefaultDenoiseOptions: haar, один уровень, гладкое продолжение.
func DefaultDenoiseOptions() DenoiseOptions {
	return DenoiseOptions{
		Wavelet: Haar(),
		Level:   1,
		Mode:    ModeSmooth,
	}
}

// UniversalThreshold вычисляет порог sigma*sqrt(2*ln(n)), где sigma
// оценивается по самой мелкой полосе детализации.
func UniversalThreshold(finest []float64, n int) float64 {
	sigma := MeanAbsDev(finest) / madScale
	return sigma * math.Sqrt(2*math.Log(float64(n)))
}

// HardThreshold обнуляет коэффициенты, по модулю меньшие u.
// Коэффициенты, равные порогу, сохраняются. Вход не изменяется.
func HardThreshold(c []float64, u float64) []float64 {
	out := make([]float64, len(c))
	for i, v := range c {
		if math.Abs(v) >= u {
			out[i] = v
		}
	}
	return out
}

// Denoise раскладывает ряд, жёстко обрезает все полосы детализации по
// универсальному порогу и собирает ряд обратно. Результат всегда имеет
// длину входа.
//
// Если порог вырожден (0, NaN, Inf), полосы не трогаются и результат
// совпадает со входом с точностью до погрешности вычислений.
func Denoise(x []float64, opts DenoiseOptions) ([]float64, error) {
	n := len(x)
	if n < 2 {
		return nil, fmt.Errorf("denoise: need at least 2 points, got %d: %w", n, ErrInsufficientData)
	}
	if !IsFinite(x) {
		return nil, fmt.Errorf("denoise: %w", ErrNotAvailable)
	}

	coeffs, err := Wavedec(x, opts.Wavelet, opts.Level, opts.Mode)
	if err != nil {
		return nil, fmt.Errorf("denoise: %w", err)
	}

	u := UniversalThreshold(coeffs[len(coeffs)-1], n)
	if u > 0 && !math.IsInf(u, 0) {
		for i := 1; i < len(coeffs); i++ {
			coeffs[i] = HardThreshold(coeffs[i], u)
		}
	}

	rec, err := Waverec(coeffs, opts.Wavelet)
	if err != nil {
		return nil, fmt.Errorf("denoise: %w", err)
	}
	if len(rec) < n {
		return nil, fmt.Errorf("denoise: reconstructed %d samples for %d inputs", len(rec), n)
	}
	return rec[:n], nil
}
