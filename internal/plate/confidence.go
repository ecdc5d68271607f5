package plate

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NormalizeConfidence converts a raw engine confidence to [0, 1].
//
// Accepted inputs are nil, numeric types, numeric strings and json.Number.
// Values above 1 are treated as percentages. Negative values (Tesseract
// reports -1 for "no score"), unparsable strings and non-finite numbers map
// to 0.
func NormalizeConfidence(raw interface{}) float64 {
	v, ok := toFloat(raw)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	if v > 1 {
		v /= 100
	}
	return math.Min(v, 1)
}

func toFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
