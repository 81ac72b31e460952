package ledger

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numberPattern rules out what strconv would accept but nobody types: hex, "_", inf and nan.
var numberPattern = regexp.MustCompile(`^[+-]?\d[\d.,]*([eE][+-]?\d+)?$`)

// Coerce converts loosely typed input into a number. Anything non-numeric becomes 0.
func Coerce(v any) float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0
		}
		f = n
	case string:
		n, _ := ParseNumber(x)
		return n
	default:
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ParseNumber parses user typed numbers. "12.5", "12,5", the Brazilian "1.234,5" and the US "1,234.5" are accepted.
// Blank input is a valid zero. ok is false when the input was not a number and 0 was returned instead.
func ParseNumber(raw string) (n float64, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, true
	}
	if !numberPattern.MatchString(s) {
		return 0, false
	}

	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case comma < 0:
	case dot > comma:
		// 1,234.5
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") > 1:
		return 0, false
	default:
		// 1.234,5 or 12,5
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseBool accepts the usual spellings of yes and no, Portuguese ones included.
func ParseBool(raw string) (b bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "t", "yes", "y", "sim", "s", "x":
		return true, true
	case "", "0", "false", "f", "no", "n", "nao", "não":
		return false, true
	default:
		return false, false
	}
}
