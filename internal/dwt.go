package internal

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// --- Константы для 4-коэффициентного вейвлета Добеши (db2) ---
var (
	db2H0 = (1 + math.Sqrt(3)) / (4 * math.Sqrt(2))
	db2H1 = (3 + math.Sqrt(3)) / (4 * math.Sqrt(2))
	db2H2 = (3 - math.Sqrt(3)) / (4 * math.Sqrt(2))
	db2H3 = (1 - math.Sqrt(3)) / (4 * math.Sqrt(2))

	haarH = 1 / math.Sqrt(2)
)

// Wavelet — банк фильтров ортогонального вейвлета.
// Dec* применяются при разложении, Rec* при восстановлении.
type Wavelet struct {
	Name  string
	DecLo []float64
	DecHi []float64
	RecLo []float64
	RecHi []float64
}

// FilterLength возвращает длину фильтров.
func (w Wavelet) FilterLength() int {
	return len(w.DecLo)
}

// Haar хорошо передаёт резкие переходы цены.
func Haar() Wavelet {
	return Wavelet{
		Name:  "haar",
		DecLo: []float64{haarH, haarH},
		DecHi: []float64{-haarH, haarH},
		RecLo: []float64{haarH, haarH},
		RecHi: []float64{haarH, -haarH},
	}
}

// Daubechies2 — вейвлет Добеши с 4 коэффициентами.
func Daubechies2() Wavelet {
	return Wavelet{
		Name:  "db2",
		DecLo: []float64{db2H3, db2H2, db2H1, db2H0},
		DecHi: []float64{-db2H0, db2H1, -db2H2, db2H3},
		RecLo: []float64{db2H0, db2H1, db2H2, db2H3},
		RecHi: []float64{db2H3, -db2H2, db2H1, -db2H0},
	}
}

// WaveletByName возвращает вейвлет по имени: haar (db1) или db2.
func WaveletByName(name string) (Wavelet, error) {
	switch strings.ToLower(name) {
	case "haar", "db1":
		return Haar(), nil
	case "db2":
		return Daubechies2(), nil
	default:
		return Wavelet{}, fmt.Errorf("%w: %q", ErrUnknownWavelet, name)
	}
}

// Mode — способ продолжения сигнала за границы при разложении.
type Mode string

const (
	// ModeSmooth продолжает сигнал линейно по крайней производной.
	ModeSmooth Mode = "smooth"
	// ModeSymmetric отражает сигнал относительно края (x[-1] = x[0]).
	ModeSymmetric Mode = "symmetric"
	// ModeConstant повторяет крайнее значение.
	ModeConstant Mode = "constant"
	// ModeZero дополняет нулями.
	ModeZero Mode = "zero"
)

// ParseMode разбирает имя режима продолжения.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case ModeSmooth, ModeSymmetric, ModeConstant, ModeZero:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// extend возвращает значение сигнала в точке idx, в том числе за его границами.
func extend(signal []float64, idx int, mode Mode) float64 {
	n := len(signal)
	if idx >= 0 && idx < n {
		return signal[idx]
	}

	switch mode {
	case ModeZero:
		return 0
	case ModeSymmetric:
		period := 2 * n
		k := idx % period
		if k < 0 {
			k += period
		}
		if k < n {
			return signal[k]
		}
		return signal[period-1-k]
	case ModeSmooth:
		if n == 1 {
			return signal[0]
		}
		if idx < 0 {
			return signal[0] + float64(-idx)*(signal[0]-signal[1])
		}
		return signal[n-1] + float64(idx-n+1)*(signal[n-1]-signal[n-2])
	default: // ModeConstant
		if idx < 0 {
			return signal[0]
		}
		return signal[n-1]
	}
}

// downsamplingConvolution — свёртка с фильтром и прореживание в одном проходе.
// Длина результата floor((n + F - 1) / 2).
func downsamplingConvolution(signal, filter []float64, mode Mode) []float64 {
	n := len(signal)
	f := len(filter)
	result := make([]float64, (n+f-1)/2)
	for i, o := 1, 0; i < n+f-1; i, o = i+2, o+1 {
		sum := 0.0
		for j := 0; j < f; j++ {
			sum += filter[j] * extend(signal, i-j, mode)
		}
		result[o] = sum
	}
	return result
}

// upsamplingConvolution вставляет нули между коэффициентами, сворачивает с
// фильтром и прибавляет "валидную" часть свёртки к out.
func upsamplingConvolution(coeffs, filter, out []float64) {
	half := len(filter) / 2
	for i, o := half-1, 0; i < len(coeffs); i, o = i+1, o+2 {
		even, odd := 0.0, 0.0
		for j := 0; j < half; j++ {
			even += filter[2*j] * coeffs[i-j]
			odd += filter[2*j+1] * coeffs[i-j]
		}
		out[o] += even
		out[o+1] += odd
	}
}

// DWT выполняет один уровень дискретного вейвлет-преобразования.
// Возвращает:
// - approx: коэффициенты аппроксимации (низкочастотная часть).
// - detail: коэффициенты детализации (высокочастотная часть).
// Для сигнала нечётной длины граница достраивается согласно mode.
func DWT(signal []float64, w Wavelet, mode Mode) (approx, detail []float64, err error) {
	if len(signal) == 0 {
		return []float64{}, []float64{}, nil
	}
	if w.FilterLength() < 2 || w.FilterLength()%2 != 0 {
		return nil, nil, fmt.Errorf("DWT: invalid filter length %d", w.FilterLength())
	}
	approx = downsamplingConvolution(signal, w.DecLo, mode)
	detail = downsamplingConvolution(signal, w.DecHi, mode)
	return approx, detail, nil
}

// IDWT выполняет один уровень обратного преобразования.
// Длина результата 2*len(approx) - F + 2, то есть для нечётного исходного
// сигнала восстановленный на один отсчёт длиннее оригинала.
func IDWT(approx, detail []float64, w Wavelet) ([]float64, error) {
	if len(approx) != len(detail) {
		return nil, errors.New("IDWT: approximation and detail coefficients must have the same length")
	}
	if len(approx) == 0 {
		return []float64{}, nil
	}
	outLen := 2*len(approx) - w.FilterLength() + 2
	if outLen <= 0 {
		return nil, fmt.Errorf("IDWT: %d coefficients are too few for %s: %w", len(approx), w.Name, ErrInsufficientData)
	}

	out := make([]float64, outLen)
	upsamplingConvolution(approx, w.RecLo, out)
	upsamplingConvolution(detail, w.RecHi, out)
	return out, nil
}

// MaxLevel — максимальный полезный уровень разложения для сигнала длины n.
func MaxLevel(n int, w Wavelet) int {
	f := w.FilterLength()
	if f < 2 || n < f-1 {
		return 0
	}
	return int(math.Floor(math.Log2(float64(n) / float64(f-1))))
}

// Wavedec — многоуровневое разложение. Полосы упорядочены как
// [cA_level, cD_level, ..., cD_1]: нулевая полоса — аппроксимация,
// последняя — самая мелкая детализация.
func Wavedec(signal []float64, w Wavelet, level int, mode Mode) ([][]float64, error) {
	if level < 1 {
		return nil, fmt.Errorf("wavedec: level must be >= 1, got %d", level)
	}
	if len(signal) < 2 {
		return nil, fmt.Errorf("wavedec: signal of length %d: %w", len(signal), ErrInsufficientData)
	}

	coeffs := make([][]float64, level+1)
	approx := signal
	for l := level; l >= 1; l-- {
		a, d, err := DWT(approx, w, mode)
		if err != nil {
			return nil, fmt.Errorf("wavedec level %d: %w", level-l+1, err)
		}
		coeffs[l] = d
		approx = a
	}
	coeffs[0] = approx
	return coeffs, nil
}

// Waverec — обратное многоуровневое преобразование.
// Если аппроксимация на уровне длиннее детализации на один отсчёт
// (следствие нечётной длины на этом уровне), лишний отсчёт отбрасывается.
// Итоговая длина может превышать длину исходного сигнала на единицу:
// вызывающий код обязан обрезать результат до [0:len(input)].
func Waverec(coeffs [][]float64, w Wavelet) ([]float64, error) {
	if len(coeffs) < 2 {
		return nil, errors.New("waverec: need approximation and at least one detail band")
	}
	approx := coeffs[0]
	for i, detail := range coeffs[1:] {
		switch {
		case len(approx) == len(detail)+1:
			approx = approx[:len(detail)]
		case len(approx) != len(detail):
			return nil, fmt.Errorf("waverec: band %d: coefficient shapes %d and %d are not compatible", i+1, len(approx), len(detail))
		}
		rec, err := IDWT(approx, detail, w)
		if err != nil {
			return nil, fmt.Errorf("waverec band %d: %w", i+1, err)
		}
		approx = rec
	}
	return approx, nil
}
