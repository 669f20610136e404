// Package saver writes price series snapshots to disk.
package saver

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ResearchDesk/internal/model"

	"github.com/parquet-go/parquet-go"
)

// BarRow is one persisted bar. SMA is null until its window fills.
type BarRow struct {
	Timestamp int64    `json:"t" parquet:"t"` // Unix timestamp in milliseconds
	Open      float64  `json:"o" parquet:"o"`
	High      float64  `json:"h" parquet:"h"`
	Low       float64  `json:"l" parquet:"l"`
	Close     float64  `json:"c" parquet:"c"`
	Volume    int64    `json:"v" parquet:"v"`
	SMA       *float64 `json:"sma,omitempty" parquet:"sma,optional"`
}

// ParquetSaver stores series snapshots as Parquet files under Dir.
type ParquetSaver struct {
	Dir string
}

func (ParquetSaver) Extension() string { return "parquet" }

// Save writes series with an aligned sma column and returns the file path.
// sma may be nil.
func (s ParquetSaver) Save(series model.PriceSeries, sma []float64) (string, error) {
	if len(series.Bars) == 0 {
		return "", fmt.Errorf("no bars to save for %s", series.Ticker)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	rows := ToRows(series.Bars, sma)
	path := filepath.Join(s.Dir, FileName(series.Ticker, series.Period, time.Now(), s.Extension()))
	if err := parquet.WriteFile(path, rows); err != nil {
		return "", fmt.Errorf("write parquet: %w", err)
	}
	return path, nil
}

// Load reads rows back from a snapshot file.
func Load(path string) ([]BarRow, error) {
	rows, err := parquet.ReadFile[BarRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	return rows, nil
}

// ToRows converts bars to rows, attaching sma[i] where defined.
func ToRows(bars []model.Bar, sma []float64) []BarRow {
	rows := make([]BarRow, len(bars))
	for i, b := range bars {
		rows[i] = BarRow{
			Timestamp: b.Time.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
		if i < len(sma) && !math.IsNaN(sma[i]) {
			v := sma[i]
			rows[i].SMA = &v
		}
	}
	return rows
}

// FileName builds <TICKER>_<period>_<yyyymmdd_hhmmss>.<ext>.
func FileName(ticker string, period model.Period, at time.Time, ext string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, strings.ToUpper(ticker))
	return fmt.Sprintf("%s_%s_%s.%s", clean, period, at.Format("20060102_150405"), ext)
}
