// DWT Strategy
//
// Описание стратегии:
// На каждом скользящем окне цен закрытия строится "модель" ряда: из окна
// вычитается линейный тренд, остаток очищается от шума вейвлет-разложением
// с жёстким универсальным порогом, после чего тренд возвращается.
// Последняя точка модели (или её продолжение сглаживающим сплайном на
// lookahead баров вперёд) считается прогнозом.
//
// Как работает:
// - Окно WindowLength считается на информативном таймфрейме (по умолчанию 15m)
// - Прогноз переносится на базовый таймфрейм (5m) с протяжкой вперёд
// - Отклонение: (прогноз - close) / close
// - Вход: отклонение пересекает BuyThreshold снизу вверх и меньше SpikeMultiplier*BuyThreshold
// - Выход: отклонение пересекает SellThreshold сверху вниз и больше SpikeMultiplier*SellThreshold
//
// Параметры:
// - WindowLength: длина окна (обычно 64-256)
// - Lookahead: горизонт прогноза в барах (0 — без экстраполяции)
// - BuyThreshold / SellThreshold: пороги отклонения (обычно 0.005-0.05)
// - SpikeMultiplier: отсечка аномальных скачков отклонения
//
// Слабые стороны:
// - Экстраполяция сплайном ненадёжна, особенно на больших lookahead
// - Окно с пропусками или вырожденным рядом даёт NaN и пропуск сигнала

package wavelet

import (
	"errors"
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"wavebt/internal"
	"wavebt/internal/timeframe"
)

var validate = validator.New()

// Config неизменяем после передачи в New.
type Config struct {
	WindowLength    int     `json:"window_length" yaml:"window_length" default:"128" validate:"gte=4"`
	Lookahead       int     `json:"lookahead" yaml:"lookahead" validate:"gte=0"`
	BuyThreshold    float64 `json:"buy_threshold" yaml:"buy_threshold" default:"0.01" validate:"gt=0"`
	SellThreshold   float64 `json:"sell_threshold" yaml:"sell_threshold" default:"-0.01" validate:"lt=0"`
	SpikeMultiplier float64 `json:"spike_multiplier" yaml:"spike_multiplier" default:"2" validate:"gt=0"`

	Wavelet string `json:"wavelet" yaml:"wavelet" default:"haar" validate:"oneof=haar db1 db2"`
	Level   int    `json:"level" yaml:"level" default:"1" validate:"gte=1"`
	Mode    string `json:"mode" yaml:"mode" default:"smooth" validate:"oneof=smooth symmetric constant zero"`

	// 0 — сглаживание равно длине окна
	SplineSmoothing float64 `json:"spline_smoothing" yaml:"spline_smoothing" validate:"gte=0"`
	Workers         int     `json:"workers" yaml:"workers" default:"1" validate:"gte=0"`

	Timeframe            string `json:"timeframe" yaml:"timeframe" default:"5m" validate:"required"`
	InformativeTimeframe string `json:"informative_timeframe" yaml:"informative_timeframe" default:"15m" validate:"required"`
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() *Config {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		panic(fmt.Sprintf("wavelet config defaults: %v", err))
	}
	return c
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	w, err := internal.WaveletByName(c.Wavelet)
	if err != nil {
		return err
	}
	if maxLevel := max(1, internal.MaxLevel(c.WindowLength, w)); c.Level > maxLevel {
		return fmt.Errorf("level %d is too high for window %d and wavelet %s (max %d)", c.Level, c.WindowLength, w.Name, maxLevel)
	}

	base, err := timeframe.Parse(c.Timeframe)
	if err != nil {
		return err
	}
	inf, err := timeframe.Parse(c.InformativeTimeframe)
	if err != nil {
		return err
	}
	baseDur, _ := base.Duration()
	infDur, _ := inf.Duration()
	if infDur < baseDur || infDur%baseDur != 0 {
		return errors.New("informative timeframe must be a multiple of the base timeframe")
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf("DWT(window=%d, lookahead=%d, buy=%.4f, sell=%.4f, spike=%.1f, %s/L%d/%s, tf=%s/%s)",
		c.WindowLength, c.Lookahead, c.BuyThreshold, c.SellThreshold, c.SpikeMultiplier,
		c.Wavelet, c.Level, c.Mode, c.Timeframe, c.InformativeTimeframe)
}

// DenoiseOptions собирает параметры шумоподавления.
func (c *Config) DenoiseOptions() (internal.DenoiseOptions, error) {
	w, err := internal.WaveletByName(c.Wavelet)
	if err != nil {
		return internal.DenoiseOptions{}, err
	}
	mode, err := internal.ParseMode(c.Mode)
	if err != nil {
		return internal.DenoiseOptions{}, err
	}
	return internal.DenoiseOptions{Wavelet: w, Level: c.Level, Mode: mode}, nil
}

// smoothing — фактор сглаживания сплайна для окна длины n.
func (c *Config) smoothing(n int) float64 {
	if c.SplineSmoothing > 0 {
		return c.SplineSmoothing
	}
	return float64(n)
}
