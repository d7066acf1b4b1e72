package internal

import "errors"

// Ошибки вычислительного конвейера. Ни одна из них не прерывает
// скользящую оценку: окно с ошибкой превращается в NaN.
var (
	// ErrInsufficientData — окно короче, чем требуется алгоритму.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrNotAvailable — во входных данных есть NaN/Inf.
	ErrNotAvailable = errors.New("value not available")
	// ErrDegenerateFit — вырожденная подгонка (например, все x совпадают).
	ErrDegenerateFit = errors.New("degenerate fit")

	ErrUnknownWavelet = errors.New("unknown wavelet")
	ErrUnknownMode    = errors.New("unknown extension mode")
)
