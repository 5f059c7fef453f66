package monitor

import (
	"fmt"
	"reflect"

	"github.com/awcullen/opcua/ua"
)

func sameValue(a, b ua.Variant) bool {
	return reflect.DeepEqual(a, b)
}

// cloneVariant copies slice values so later writes to the node's array do not
// alter queued notifications.
func cloneVariant(v ua.Variant) ua.Variant {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.IsNil() {
		return v
	}
	return cloneSlice(rv).Interface()
}

func cloneSlice(rv reflect.Value) reflect.Value {
	out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
	reflect.Copy(out, rv)
	for i := 0; i < out.Len(); i++ {
		el := out.Index(i)
		switch {
		case el.Kind() == reflect.Slice && !el.IsNil():
			el.Set(cloneSlice(el))
		case el.Kind() == reflect.Interface && !el.IsNil() && el.Elem().Kind() == reflect.Slice && !el.Elem().IsNil():
			el.Set(cloneSlice(el.Elem()))
		}
	}
	return out
}

func statusLabel(status ua.StatusCode) string {
	return fmt.Sprintf("0x%08X", uint32(status))
}
