package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

// JSONSafeMetadata returns a copy of md in which every value survives
// json.Marshal. JSON-native values pass through; non-finite floats and values
// json cannot encode are replaced with their fmt representation.
func JSONSafeMetadata(md map[string]any) map[string]any {
	out := make(map[string]any, len(md))
	for k, v := range md {
		out[k] = jsonSafe(v)
	}
	return out
}

func jsonSafe(v any) any {
	switch t := v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return t
	case float32:
		if math.IsNaN(float64(t)) || math.IsInf(float64(t), 0) {
			return fmt.Sprint(t)
		}
		return t
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Sprint(t)
		}
		return t
	case map[string]any:
		return JSONSafeMetadata(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = jsonSafe(e)
		}
		return out
	}

	// Slices of concrete types are walked element by element so that a
	// single NaN does not stringify the whole list.
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = jsonSafe(rv.Index(i).Interface())
		}
		return out
	}

	if b, err := json.Marshal(v); err == nil {
		var decoded any
		if json.Unmarshal(b, &decoded) == nil {
			return decoded
		}
	}
	return fmt.Sprint(v)
}
