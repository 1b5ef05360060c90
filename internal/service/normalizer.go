package service

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"valuator/internal/model"
	"valuator/internal/utils"
)

// insightsDumpLimit caps the raw response shown when no insights were sent
const insightsDumpLimit = 400

// Normalize maps a loosely typed response object onto the display model.
// Every logical value takes the first present field of its fallback chain;
// absent or unusable values become nil. Normalization never fails.
func Normalize(d *model.Domain, obj map[string]interface{}, raw string) model.PredictionResult {
	result := model.PredictionResult{
		PredictedValue: firstNumber(obj, d.Response.Predicted),
		MinValue:       firstNumber(obj, d.Response.Min),
		MaxValue:       firstNumber(obj, d.Response.Max),
		Confidence:     firstNumber(obj, d.Response.Confidence),
	}

	if result.Confidence != nil && (*result.Confidence < 0 || *result.Confidence > 1) {
		result.Confidence = nil
	}
	if len(d.Response.PricePerUnit) > 0 {
		result.PricePerUnit = firstNumber(obj, d.Response.PricePerUnit)
	}

	result.Insights = firstText(obj, d.Response.Insights)
	if result.Insights == "" {
		if raw == "" {
			if b, err := json.Marshal(obj); err == nil {
				raw = string(b)
			}
		}
		result.Insights = utils.TruncateRunes(raw, insightsDumpLimit)
	}

	return result
}

func firstNumber(obj map[string]interface{}, keys []string) *float64 {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok || v == nil {
			continue
		}
		if n, ok := toNumber(v); ok {
			return &n
		}
	}
	return nil
}

func toNumber(v interface{}) (float64, bool) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(t, ",", "")), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func firstText(obj map[string]interface{}, keys []string) string {
	for _, k := range keys {
		switch t := obj[k].(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case []interface{}:
			lines := make([]string, 0, len(t))
			for _, item := range t {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					lines = append(lines, strings.TrimSpace(s))
				}
			}
			if len(lines) > 0 {
				return strings.Join(lines, "\n")
			}
		}
	}
	return ""
}
