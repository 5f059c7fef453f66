// Package numrange parses OPC UA NumericRange strings and applies them to values.
package numrange

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/awcullen/opcua/ua"
)

// Bounds is one dimension of a range. High is inclusive.
type Bounds struct {
	Low  int
	High int
}

// Range is a parsed NumericRange, one Bounds per dimension.
// A nil Range selects the whole value.
type Range []Bounds

// Parse parses s ("3", "2:5", "0:1,4:6"). An empty string yields a nil Range.
func Parse(s string) (Range, ua.StatusCode) {
	if s == "" {
		return nil, ua.Good
	}
	dims := strings.Split(s, ",")
	r := make(Range, 0, len(dims))
	for _, d := range dims {
		b, status := parseBounds(d)
		if status.IsBad() {
			return nil, status
		}
		r = append(r, b)
	}
	return r, ua.Good
}

func parseBounds(s string) (Bounds, ua.StatusCode) {
	index := strings.Index(s, ":")
	if index == -1 {
		lo, err := strconv.ParseInt(s, 10, 32)
		if err != nil || lo < 0 {
			return Bounds{}, ua.BadIndexRangeInvalid
		}
		return Bounds{Low: int(lo), High: int(lo)}, ua.Good
	}
	lo, err := strconv.ParseInt(s[:index], 10, 32)
	if err != nil {
		return Bounds{}, ua.BadIndexRangeInvalid
	}
	hi, err := strconv.ParseInt(s[index+1:], 10, 32)
	if err != nil {
		return Bounds{}, ua.BadIndexRangeInvalid
	}
	if lo < 0 || hi < 0 || lo >= hi {
		return Bounds{}, ua.BadIndexRangeInvalid
	}
	return Bounds{Low: int(lo), High: int(hi)}, ua.Good
}

// IsEmpty reports whether r selects the whole value.
func (r Range) IsEmpty() bool {
	return len(r) == 0
}

func (r Range) String() string {
	parts := make([]string, len(r))
	for i, b := range r {
		if b.Low == b.High {
			parts[i] = strconv.Itoa(b.Low)
			continue
		}
		parts[i] = strconv.Itoa(b.Low) + ":" + strconv.Itoa(b.High)
	}
	return strings.Join(parts, ",")
}

// Overlap reports whether a and b share at least one index in every dimension
// they both define. An empty range overlaps everything.
func Overlap(a, b Range) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return true
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i].High < b[i].Low || b[i].High < a[i].Low {
			return false
		}
	}
	return true
}

// Extract returns a copy of source restricted to r. Strings are indexed by rune,
// ByteStrings by byte, slices by element. Multi-dimensional ranges and scalars
// yield BadIndexRangeNoData.
func Extract(source ua.DataValue, r Range) ua.DataValue {
	if r.IsEmpty() || source.Value == nil {
		return source
	}
	noData := ua.NewDataValue(nil, ua.BadIndexRangeNoData, source.SourceTimestamp, source.SourcePicoseconds, source.ServerTimestamp, source.ServerPicoseconds)
	if len(r) > 1 {
		return noData
	}
	withValue := func(v ua.Variant) ua.DataValue {
		return ua.NewDataValue(v, source.StatusCode, source.SourceTimestamp, source.SourcePicoseconds, source.ServerTimestamp, source.ServerPicoseconds)
	}
	switch src := source.Value.(type) {
	case string:
		runes := []rune(src)
		i, j, ok := clamp(r[0], len(runes))
		if !ok {
			return noData
		}
		return withValue(string(runes[i:j]))
	case ua.ByteString:
		i, j, ok := clamp(r[0], len(src))
		if !ok {
			return noData
		}
		return withValue(ua.ByteString(src[i:j]))
	}
	v := reflect.ValueOf(source.Value)
	if v.Kind() != reflect.Slice {
		return noData
	}
	i, j, ok := clamp(r[0], v.Len())
	if !ok {
		return noData
	}
	dst := reflect.MakeSlice(v.Type(), j-i, j-i)
	reflect.Copy(dst, v.Slice(i, j))
	return withValue(dst.Interface())
}

// clamp converts b into slice bounds [i, j) over a value of the given length.
func clamp(b Bounds, length int) (int, int, bool) {
	if length == 0 || b.Low >= length {
		return 0, 0, false
	}
	hi := b.High
	if hi >= length {
		hi = length - 1
	}
	return b.Low, hi + 1, true
}
