package wavelet

import (
	"fmt"
	"math"

	"wavebt/internal"
)

// Model строит сглаженную модель окна: тренд вычитается, остаток
// очищается вейвлет-шумоподавлением, тренд возвращается.
// Длина результата равна длине окна.
func Model(window []float64, opts internal.DenoiseOptions) ([]float64, error) {
	detrended, trend, err := internal.Detrend(window)
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	denoised, err := internal.Denoise(detrended, opts)
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	return trend.Restore(denoised), nil
}

// Predict возвращает последнее значение модели при lookahead == 0, иначе
// значение сглаживающего сплайна (s = N) в точке N-1+lookahead.
//
// Экстраполяция за последний узел ненадёжна; пустая модель или модель с NaN
// дают NaN.
//
// Сплайн натуральный, с узлами во всех точках окна и нулевой кривизной на
// краях. Сплайн FITPACK с адаптивными узлами этого не требует, поэтому при
// lookahead > 0 прогнозы совпадают с ним только когда подгонка вырождается в
// кубический многочлен.
func Predict(model []float64, lookahead int) float64 {
	return PredictWithSmoothing(model, lookahead, float64(len(model)))
}

// PredictWithSmoothing — Predict с явным фактором сглаживания сплайна.
func PredictWithSmoothing(model []float64, lookahead int, smoothing float64) float64 {
	n := len(model)
	if n == 0 || !internal.IsFinite(model) {
		return math.NaN()
	}
	if lookahead <= 0 {
		return model[n-1]
	}

	spline, err := internal.FitSmoothingSpline(internal.Index(n), model, smoothing)
	if err != nil {
		return math.NaN()
	}
	return spline.At(float64(n - 1 + lookahead))
}

// ComputeSignal — прогноз по одному окну с параметрами по умолчанию
// (haar, один уровень, гладкое продолжение). Любая ошибка даёт NaN.
func ComputeSignal(window []float64, lookahead int) float64 {
	model, err := Model(window, internal.DefaultDenoiseOptions())
	if err != nil {
		return math.NaN()
	}
	return Predict(model, lookahead)
}
