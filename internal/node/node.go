// Package node defines the observable node a monitored item watches, plus
// in-memory Variable and Object implementations.
package node

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/amine-amaach/simulators/uaMonitor/internal/numrange"
	"github.com/awcullen/opcua/ua"
)

// Unsubscribe removes a listener. Calling it more than once is harmless.
type Unsubscribe func()

// Node is the part of an address space node a monitored item depends on.
// Listeners are called outside of any node lock, in the goroutine that made
// the change.
type Node interface {
	NodeID() ua.NodeID
	BrowseName() ua.QualifiedName
	// ReadAttribute returns a snapshot of the attribute. Unknown attributes
	// yield BadAttributeIDInvalid.
	ReadAttribute(ctx context.Context, attributeID uint32) ua.DataValue
	// SemanticVersion increases whenever the meaning of the value changes.
	SemanticVersion() uint32

	// OnValueChanged is called with the new value and, for a partial write,
	// the range that was written (nil for the whole value).
	OnValueChanged(fn func(ua.DataValue, numrange.Range)) Unsubscribe
	OnSemanticChanged(fn func()) Unsubscribe
	OnAttributeChanged(attributeID uint32, fn func(ua.DataValue)) Unsubscribe
	OnEvent(fn func(ua.Event)) Unsubscribe
	OnDispose(fn func()) Unsubscribe
}

// SamplingLimiter is implemented by nodes that cannot be sampled faster than
// a given interval in milliseconds.
type SamplingLimiter interface {
	MinimumSamplingInterval() float64
}

// EURanger is implemented by analog items exposing an engineering units range.
type EURanger interface {
	EURange() (ua.Range, bool)
}

// listeners is a registration set that hands out idempotent Unsubscribe funcs.
type listeners[T any] struct {
	mu   sync.Mutex
	next uint64
	fns  map[uint64]T
}

func (l *listeners[T]) add(fn T) Unsubscribe {
	l.mu.Lock()
	if l.fns == nil {
		l.fns = make(map[uint64]T)
	}
	l.next++
	id := l.next
	l.fns[id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

// snapshot returns the registered listeners in registration order.
func (l *listeners[T]) snapshot() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]uint64, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, len(ids))
	for i, id := range ids {
		out[i] = l.fns[id]
	}
	return out
}

func (l *listeners[T]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}

// base carries the attributes and listener sets shared by every node class.
type base struct {
	sync.RWMutex
	nodeID      ua.NodeID
	browseName  ua.QualifiedName
	displayName ua.LocalizedText
	description ua.LocalizedText
	semantic    uint32
	disposed    bool

	valueListeners    listeners[func(ua.DataValue, numrange.Range)]
	semanticListeners listeners[func()]
	eventListeners    listeners[func(ua.Event)]
	disposeListeners  listeners[func()]
	attrMu            sync.Mutex
	attrListeners     map[uint32]*listeners[func(ua.DataValue)]
}

func (n *base) init(nodeID ua.NodeID, browseName ua.QualifiedName) {
	n.nodeID = nodeID
	n.browseName = browseName
	n.displayName = ua.NewLocalizedText(browseName.Name, "")
	n.attrListeners = map[uint32]*listeners[func(ua.DataValue)]{}
}

func (n *base) NodeID() ua.NodeID {
	return n.nodeID
}

func (n *base) BrowseName() ua.QualifiedName {
	return n.browseName
}

func (n *base) DisplayName() ua.LocalizedText {
	n.RLock()
	defer n.RUnlock()
	return n.displayName
}

func (n *base) SemanticVersion() uint32 {
	n.RLock()
	defer n.RUnlock()
	return n.semantic
}

// Disposed reports whether Dispose was called.
func (n *base) Disposed() bool {
	n.RLock()
	defer n.RUnlock()
	return n.disposed
}

func (n *base) OnValueChanged(fn func(ua.DataValue, numrange.Range)) Unsubscribe {
	return n.valueListeners.add(fn)
}

func (n *base) OnSemanticChanged(fn func()) Unsubscribe {
	return n.semanticListeners.add(fn)
}

func (n *base) OnEvent(fn func(ua.Event)) Unsubscribe {
	return n.eventListeners.add(fn)
}

func (n *base) OnDispose(fn func()) Unsubscribe {
	return n.disposeListeners.add(fn)
}

func (n *base) OnAttributeChanged(attributeID uint32, fn func(ua.DataValue)) Unsubscribe {
	n.attrMu.Lock()
	l, ok := n.attrListeners[attributeID]
	if !ok {
		l = &listeners[func(ua.DataValue)]{}
		n.attrListeners[attributeID] = l
	}
	n.attrMu.Unlock()
	return l.add(fn)
}

// ListenerCount returns how many listeners of every kind are registered.
func (n *base) ListenerCount() int {
	count := n.valueListeners.len() + n.semanticListeners.len() + n.eventListeners.len() + n.disposeListeners.len()
	n.attrMu.Lock()
	for _, l := range n.attrListeners {
		count += l.len()
	}
	n.attrMu.Unlock()
	return count
}

func (n *base) attributeChanged(attributeID uint32, dv ua.DataValue) {
	n.attrMu.Lock()
	l, ok := n.attrListeners[attributeID]
	n.attrMu.Unlock()
	if !ok {
		return
	}
	for _, fn := range l.snapshot() {
		fn(dv)
	}
}

// SetDisplayName changes the DisplayName attribute and notifies its listeners.
func (n *base) SetDisplayName(text ua.LocalizedText) {
	n.Lock()
	n.displayName = text
	n.Unlock()
	now := time.Now()
	n.attributeChanged(ua.AttributeIDDisplayName, ua.NewDataValue(text, ua.Good, now, 0, now, 0))
}

// BumpSemanticVersion records a change in the meaning of the node's value.
func (n *base) BumpSemanticVersion() {
	n.Lock()
	n.semantic++
	n.Unlock()
	for _, fn := range n.semanticListeners.snapshot() {
		fn()
	}
}

// Dispose notifies dispose listeners once. Reads afterwards return BadNodeIDUnknown.
func (n *base) Dispose() {
	n.Lock()
	if n.disposed {
		n.Unlock()
		return
	}
	n.disposed = true
	n.Unlock()
	for _, fn := range n.disposeListeners.snapshot() {
		fn()
	}
}

// readCommon serves the attributes every node class has.
func (n *base) readCommon(attributeID uint32, nodeClass ua.NodeClass) (ua.DataValue, bool) {
	now := time.Now()
	n.RLock()
	defer n.RUnlock()
	if n.disposed {
		return ua.NewDataValue(nil, ua.BadNodeIDUnknown, time.Time{}, 0, now, 0), true
	}
	switch attributeID {
	case ua.AttributeIDNodeID:
		return ua.NewDataValue(n.nodeID, ua.Good, time.Time{}, 0, now, 0), true
	case ua.AttributeIDNodeClass:
		return ua.NewDataValue(int32(nodeClass), ua.Good, time.Time{}, 0, now, 0), true
	case ua.AttributeIDBrowseName:
		return ua.NewDataValue(n.browseName, ua.Good, time.Time{}, 0, now, 0), true
	case ua.AttributeIDDisplayName:
		return ua.NewDataValue(n.displayName, ua.Good, time.Time{}, 0, now, 0), true
	case ua.AttributeIDDescription:
		return ua.NewDataValue(n.description, ua.Good, time.Time{}, 0, now, 0), true
	}
	return ua.DataValue{}, false
}

func badAttribute() ua.DataValue {
	return ua.NewDataValue(nil, ua.BadAttributeIDInvalid, time.Time{}, 0, time.Now(), 0)
}
