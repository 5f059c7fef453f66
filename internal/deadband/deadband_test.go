package deadband

import (
	"testing"

	"github.com/awcullen/opcua/ua"
	"github.com/stretchr/testify/assert"
)

func TestCheckNone(t *testing.T) {
	assert.False(t, Check(ua.DeadbandTypeNone, 0, nil, 10.0, 10.0))
	assert.True(t, Check(ua.DeadbandTypeNone, 0, nil, 11.0, 10.0))
	assert.True(t, Check(ua.DeadbandTypeNone, 0, nil, "b", "a"))
	assert.False(t, Check(ua.DeadbandTypeNone, 0, nil, []int32{1, 2}, []int32{1, 2}))
}

func TestCheckAbsolute(t *testing.T) {
	assert.False(t, Check(ua.DeadbandTypeAbsolute, 5, nil, 104.0, 100.0))
	assert.True(t, Check(ua.DeadbandTypeAbsolute, 5, nil, 106.0, 100.0))
	assert.False(t, Check(ua.DeadbandTypeAbsolute, 5, nil, int32(95), int32(100)))
	assert.True(t, Check(ua.DeadbandTypeAbsolute, 5, nil, uint16(94), uint16(100)))
	// exactly on the threshold is not a change
	assert.False(t, Check(ua.DeadbandTypeAbsolute, 5, nil, 105.0, 100.0))
}

func TestCheckPercent(t *testing.T) {
	r := &ua.Range{Low: 0, High: 200}
	assert.False(t, Check(ua.DeadbandTypePercent, 10, r, 69.0, 50.0))
	assert.True(t, Check(ua.DeadbandTypePercent, 10, r, 71.0, 50.0))
	// no engineering units range: never suppress
	assert.True(t, Check(ua.DeadbandTypePercent, 10, nil, 50.5, 50.0))
}

func TestExceedsArrays(t *testing.T) {
	assert.False(t, Exceeds([]float64{1, 2, 3}, []float64{1.5, 2, 2.5}, 1))
	assert.True(t, Exceeds([]float64{1, 2, 3}, []float64{1, 2, 5}, 1))
	assert.True(t, Exceeds([]float64{1, 2}, []float64{1, 2, 3}, 1))
	assert.False(t, Exceeds([2]int64{10, 20}, [2]int64{11, 19}, 1))
	assert.True(t, Exceeds([]byte{1, 2}, []byte{1, 3}, 10))
}

func TestExceedsMixed(t *testing.T) {
	assert.True(t, Exceeds(nil, 1.0, 100))
	assert.False(t, Exceeds(nil, nil, 0))
	assert.True(t, Exceeds(int32(1), 1.0, 100))
	assert.False(t, Exceeds("x", "x", 0))
	assert.True(t, Exceeds("x", "y", 100))
	assert.False(t, Exceeds([]ua.Variant{1.0, 2.0}, []ua.Variant{1.2, 2.0}, 0.5))
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, IsNumeric(1.5))
	assert.True(t, IsNumeric(int16(3)))
	assert.True(t, IsNumeric([]float32{1}))
	assert.False(t, IsNumeric("1"))
	assert.False(t, IsNumeric(true))
	assert.False(t, IsNumeric(nil))
}
