// candle.go
package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// nanoExp — масштаб дробной части в формате {"units", "nano"}.
const nanoExp = -9

type Price float64

// UnmarshalJSON разбирает цену в одном из форматов:
//   - {"units": "123", "nano": 450000000}
//   - 123.45
//   - "123.45"
//
// Сумма units + nano*1e-9 считается в decimal, чтобы не терять точность
// до финального приведения к float64.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}

	var d decimal.Decimal
	switch data[0] {
	case '{':
		var temp struct {
			Units json.RawMessage `json:"units"`
			Nano  int64           `json:"nano"`
		}
		if err := json.Unmarshal(data, &temp); err != nil {
			return err
		}
		units := decimal.Zero
		if raw := strings.Trim(string(temp.Units), `"`); raw != "" && raw != "null" {
			var err error
			if units, err = decimal.NewFromString(raw); err != nil {
				return fmt.Errorf("price units %q: %w", raw, err)
			}
		}
		d = units.Add(decimal.New(temp.Nano, nanoExp))
	default:
		var err error
		if d, err = decimal.NewFromString(strings.Trim(string(data), `"`)); err != nil {
			return fmt.Errorf("price %s: %w", data, err)
		}
	}

	*p = Price(d.InexactFloat64())
	return nil
}

// ToFloat64 возвращает значение Price как float64.
func (p Price) ToFloat64() float64 {
	return float64(p)
}

type Candle struct {
	Open         Price     `json:"open"`
	High         Price     `json:"high"`
	Low          Price     `json:"low"`
	Close        Price     `json:"close"`
	Volume       Price     `json:"volume"`
	Time         string    `json:"time"`
	IsComplete   bool      `json:"isComplete"`
	CandleSource string    `json:"candleSource"`
	ParsedTime   time.Time `json:"-"` // precomputed time for ToTime()
}

var timeLayouts = []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05"}

// UnmarshalJSON реализует пользовательский разбор JSON для Candle.
// Время разбирается один раз и сохраняется в ParsedTime.
func (c *Candle) UnmarshalJSON(data []byte) error {
	type Alias Candle // создаем алиас для избежания бесконечной рекурсии
	aux := (*Alias)(c)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	c.ParsedTime = time.Time{}
	if c.Time == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, c.Time); err == nil {
			c.ParsedTime = t
			return nil
		}
	}
	return fmt.Errorf("candle time %q: unsupported format", c.Time)
}

func (c Candle) ToTime() time.Time {
	return c.ParsedTime
}

func (c Candle) VolumeFloat64() float64 {
	return c.Volume.ToFloat64()
}

// CandlesFile — формат файла со свечами.
type CandlesFile struct {
	Candles []Candle `json:"candles"`
}

// ReadCandles читает свечи и сортирует их по времени.
func ReadCandles(r io.Reader) ([]Candle, error) {
	var file CandlesFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode candles: %w", err)
	}

	sort.SliceStable(file.Candles, func(i, j int) bool {
		return file.Candles[i].ParsedTime.Before(file.Candles[j].ParsedTime)
	})
	return file.Candles, nil
}

// LoadCandlesFromFile загружает свечи из JSON-файла.
func LoadCandlesFromFile(filename string) ([]Candle, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open candles file: %w", err)
	}
	defer f.Close()

	return ReadCandles(f)
}

// Closes возвращает цены закрытия.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close.ToFloat64()
	}
	return out
}

type SignalType int

const (
	HOLD SignalType = iota
	BUY
	SELL
)

func (s SignalType) String() string {
	names := [...]string{"HOLD", "BUY", "SELL"}
	if s < 0 || int(s) >= len(names) {
		return fmt.Sprintf("SignalType(%d)", int(s))
	}
	return names[s]
}
