// Package deadband decides whether two sampled values differ enough to be reported.
package deadband

import (
	"bytes"
	"math"
	"reflect"

	"github.com/awcullen/opcua/ua"
)

// Check applies the deadband of the given type to a pair of values and reports
// whether current should be reported. A percent deadband without an engineering
// units range cannot suppress anything.
func Check(kind ua.DeadbandType, value float64, euRange *ua.Range, current, previous ua.Variant) bool {
	switch kind {
	case ua.DeadbandTypeAbsolute:
		return Exceeds(current, previous, value)
	case ua.DeadbandTypePercent:
		if euRange == nil {
			return true
		}
		return Exceeds(current, previous, PercentThreshold(value, *euRange))
	default:
		return !reflect.DeepEqual(current, previous)
	}
}

// PercentThreshold converts a percent deadband into an absolute one.
func PercentThreshold(percent float64, r ua.Range) float64 {
	return percent / 100 * math.Abs(r.High-r.Low)
}

// Exceeds reports whether |current - previous| > threshold. Arrays are compared
// element by element and exceed the deadband when any element does. Values
// that are not numeric are compared for exact equality.
func Exceeds(current, previous ua.Variant, threshold float64) bool {
	if current == nil || previous == nil {
		return current != previous
	}
	vc := reflect.ValueOf(current)
	vp := reflect.ValueOf(previous)
	if vc.Type() != vp.Type() {
		return true
	}
	return exceeds(vc, vp, threshold)
}

func exceeds(vc, vp reflect.Value, threshold float64) bool {
	switch vc.Kind() {
	case reflect.Array:
		for i := 0; i < vc.Len(); i++ {
			if exceeds(vc.Index(i), vp.Index(i), threshold) {
				return true
			}
		}
		return false
	case reflect.Slice:
		if vc.IsNil() != vp.IsNil() || vc.Len() != vp.Len() {
			return true
		}
		// []byte and ByteString-like payloads are opaque, not numeric arrays
		if vc.Type().Elem().Kind() == reflect.Uint8 {
			return !bytes.Equal(vc.Bytes(), vp.Bytes())
		}
		for i := 0; i < vc.Len(); i++ {
			if exceeds(vc.Index(i), vp.Index(i), threshold) {
				return true
			}
		}
		return false
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return math.Abs(float64(vc.Int())-float64(vp.Int())) > threshold
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return math.Abs(float64(vc.Uint())-float64(vp.Uint())) > threshold
	case reflect.Float32, reflect.Float64:
		return math.Abs(vc.Float()-vp.Float()) > threshold
	case reflect.Interface:
		if vc.IsNil() || vp.IsNil() {
			return vc.IsNil() != vp.IsNil()
		}
		return Exceeds(vc.Elem().Interface(), vp.Elem().Interface(), threshold)
	}
	return !reflect.DeepEqual(vc.Interface(), vp.Interface())
}

// IsNumeric reports whether v is a number or an array of numbers, the only
// values a deadband can be applied to.
func IsNumeric(v ua.Variant) bool {
	if v == nil {
		return false
	}
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
