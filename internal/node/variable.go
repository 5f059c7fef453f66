package node

import (
	"context"
	"time"

	"github.com/amine-amaach/simulators/uaMonitor/internal/numrange"
	"github.com/awcullen/opcua/ua"
)

// Variable is an in-memory variable node.
type Variable struct {
	base
	value                   ua.DataValue
	minimumSamplingInterval float64
	euRange                 *ua.Range
}

var (
	_ Node            = (*Variable)(nil)
	_ SamplingLimiter = (*Variable)(nil)
	_ EURanger        = (*Variable)(nil)
)

// NewVariable returns a variable holding value. minimumSamplingInterval is in
// milliseconds; 0 means the node reports changes as they happen.
func NewVariable(nodeID ua.NodeID, browseName ua.QualifiedName, value ua.DataValue, minimumSamplingInterval float64) *Variable {
	v := &Variable{
		value:                   value,
		minimumSamplingInterval: minimumSamplingInterval,
	}
	v.init(nodeID, browseName)
	return v
}

// Value returns the current value.
func (n *Variable) Value() ua.DataValue {
	n.RLock()
	defer n.RUnlock()
	return n.value
}

// SetValue stores value and notifies value listeners.
func (n *Variable) SetValue(value ua.DataValue) {
	n.SetValueInRange(value, nil)
}

// SetValueInRange stores value, which was written through the index range r,
// and notifies value listeners with r.
func (n *Variable) SetValueInRange(value ua.DataValue, r numrange.Range) {
	n.Lock()
	if n.disposed {
		n.Unlock()
		return
	}
	n.value = value
	n.Unlock()
	for _, fn := range n.valueListeners.snapshot() {
		fn(value, r)
	}
}

// MinimumSamplingInterval returns the MinimumSamplingInterval attribute in milliseconds.
func (n *Variable) MinimumSamplingInterval() float64 {
	n.RLock()
	defer n.RUnlock()
	return n.minimumSamplingInterval
}

// EURange returns the engineering units range, if the variable is an analog item.
func (n *Variable) EURange() (ua.Range, bool) {
	n.RLock()
	defer n.RUnlock()
	if n.euRange == nil {
		return ua.Range{}, false
	}
	return *n.euRange, true
}

// SetEURange changes the engineering units range. Consumers comparing values
// against the old range see it as a semantic change.
func (n *Variable) SetEURange(r ua.Range) {
	n.Lock()
	changed := n.euRange != nil
	n.euRange = &r
	n.Unlock()
	if changed {
		n.BumpSemanticVersion()
	}
}

// ReadAttribute implements Node.
func (n *Variable) ReadAttribute(ctx context.Context, attributeID uint32) ua.DataValue {
	if dv, ok := n.readCommon(attributeID, ua.NodeClassVariable); ok {
		return dv
	}
	n.RLock()
	defer n.RUnlock()
	switch attributeID {
	case ua.AttributeIDValue:
		return n.value
	case ua.AttributeIDMinimumSamplingInterval:
		return ua.NewDataValue(n.minimumSamplingInterval, ua.Good, time.Time{}, 0, time.Now(), 0)
	}
	return badAttribute()
}
