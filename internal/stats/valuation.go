package stats

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"ResearchDesk/internal/model"
)

var ErrNoValuationData = errors.New("no data for ticker")

// NormalizeValuation projects raw onto model.ValuationVocabulary. Missing or
// null fields become nil; values that cannot be read as numbers are passed
// through unchanged.
func NormalizeValuation(ticker string, raw map[string]any) (*model.ValuationRecord, error) {
	if len(raw) == 0 {
		return nil, ErrNoValuationData
	}

	rec := &model.ValuationRecord{
		Ticker:      ticker,
		CompanyName: ticker,
		Sector:      raw[model.InfoSector],
		Industry:    raw[model.InfoIndustry],
		Metrics:     make(map[string]any, len(model.ValuationVocabulary)),
	}
	if name, ok := raw[model.InfoLongName].(string); ok && name != "" {
		rec.CompanyName = name
	}

	for _, f := range model.ValuationVocabulary {
		v, present := raw[f.SourceKey]
		if !present || v == nil {
			rec.Metrics[f.Name] = nil
			continue
		}
		if n, ok := toFloat(v); ok {
			if math.IsNaN(n) || math.IsInf(n, 0) {
				rec.Metrics[f.Name] = nil
				continue
			}
			rec.Metrics[f.Name] = n
			continue
		}
		rec.Metrics[f.Name] = v
	}
	return rec, nil
}

// toFloat coerces numeric values and numeric strings. Booleans are not numbers.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
