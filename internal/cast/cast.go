// Package cast converts raw textual or decoded JSON values into the
// canonical Go value for a field type.
//
// Canonical values:
//
//	string    string
//	number    float64
//	boolean   bool
//	date      time.Time (UTC midnight)
//	time      time.Duration (time of day or span)
//	datetime  time.Time (UTC)
//
// Array types cast element by element and yield []any.
package cast

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/xhit/go-str2duration/v2"

	"github.com/roach88/filtex/internal/schema"
)

const DateLayout = "2006-01-02"

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	DateLayout,
}

// Cast converts v to the canonical value for t.
func Cast(t schema.FieldType, v any) (any, bool) {
	if t.IsArray() {
		if !IsArray(v) {
			return castScalar(t.Elem(), v)
		}
		rv := reflect.ValueOf(v)
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			c, ok := castScalar(t.Elem(), rv.Index(i).Interface())
			if !ok {
				return nil, false
			}
			out = append(out, c)
		}
		return out, true
	}
	return castScalar(t, v)
}

func castScalar(t schema.FieldType, v any) (any, bool) {
	switch t {
	case schema.TypeString:
		return String(v)
	case schema.TypeNumber:
		return Number(v)
	case schema.TypeBoolean:
		return Boolean(v)
	case schema.TypeDate:
		return Date(v)
	case schema.TypeTime:
		return Time(v)
	case schema.TypeDateTime:
		return DateTime(v)
	default:
		return nil, false
	}
}

// String accepts strings and formats numeric and boolean scalars.
func String(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case json.Number:
		return val.String(), true
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

// Number accepts numeric kinds, json.Number and numeric strings.
func Number(v any) (float64, bool) {
	switch val := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return toFloat(v)
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, !math.IsNaN(val) && !math.IsInf(val, 0)
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	}
	return 0, false
}

// Boolean accepts bools and the words true/false in any case.
func Boolean(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// Date accepts time.Time and ISO dates; datetimes are truncated to their
// calendar date.
func Date(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		y, m, d := val.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	case string:
		s := strings.TrimSpace(val)
		if t, err := time.Parse(DateLayout, s); err == nil {
			return t, true
		}
		if t, ok := DateTime(s); ok {
			return Date(t)
		}
	}
	return time.Time{}, false
}

// DateTime accepts time.Time and the supported ISO layouts, returning UTC.
func DateTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val.UTC(), true
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range dateTimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

// Time accepts durations, clock times ("10:30", "10:30:15.5") and human
// durations ("90m", "1h30m", "2d").
func Time(v any) (time.Duration, bool) {
	switch val := v.(type) {
	case time.Duration:
		return val, true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false
		}
		if strings.Contains(s, ":") {
			return parseClock(s)
		}
		d, err := str2duration.ParseDuration(s)
		if err != nil {
			return 0, false
		}
		return d, true
	}
	return 0, false
}

// parseClock reads a time of day, "24:00" at most.
func parseClock(s string) (time.Duration, bool) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute
	if len(parts) == 3 {
		sec, err := strconv.ParseFloat(parts[2], 64)
		if err != nil || !(sec >= 0 && sec < 60) {
			return 0, false
		}
		d += time.Duration(sec * float64(time.Second))
	}
	if d > 24*time.Hour {
		return 0, false
	}
	return d, true
}

// IsArray reports whether v is a slice or array value.
func IsArray(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	}
	return false
}

// Format renders a canonical value as it would be written in a query.
func Format(t schema.FieldType, v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Duration:
		return val.String()
	case time.Time:
		if t.Elem() == schema.TypeDate {
			return val.Format(DateLayout)
		}
		return val.Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}
