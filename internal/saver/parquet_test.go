package saver

import (
	"math"
	"testing"
	"time"

	"ResearchDesk/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParquetSaver_RoundTrip(t *testing.T) {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	series := model.PriceSeries{Ticker: "ACME", Period: model.Period5d}
	for i := 0; i < 3; i++ {
		c := 100 + float64(i)
		series.Bars = append(series.Bars, model.Bar{
			Time: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: int64(1000 * (i + 1)),
		})
	}
	sma := []float64{math.NaN(), 100.5, 101.5}

	s := ParquetSaver{Dir: t.TempDir()}
	path, err := s.Save(series, sma)
	require.NoError(t, err)
	assert.Contains(t, path, "ACME_5d_")
	assert.Contains(t, path, ".parquet")

	rows, err := Load(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, start.UnixMilli(), rows[0].Timestamp)
	assert.Nil(t, rows[0].SMA)
	require.NotNil(t, rows[2].SMA)
	assert.Equal(t, 101.5, *rows[2].SMA)
	assert.Equal(t, int64(3000), rows[2].Volume)
}

func TestParquetSaver_Empty(t *testing.T) {
	_, err := ParquetSaver{Dir: t.TempDir()}.Save(model.PriceSeries{Ticker: "X"}, nil)
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "_GSPC_1y_20250102_030405.parquet", FileName("^gspc", model.Period1y, at, "parquet"))
}
