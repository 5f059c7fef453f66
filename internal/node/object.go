package node

import (
	"context"
	"time"

	"github.com/awcullen/opcua/ua"
	"github.com/google/uuid"
)

// Object is an in-memory object node that can notify events.
type Object struct {
	base
	eventNotifier byte
}

var _ Node = (*Object)(nil)

func NewObject(nodeID ua.NodeID, browseName ua.QualifiedName, eventNotifier byte) *Object {
	o := &Object{eventNotifier: eventNotifier}
	o.init(nodeID, browseName)
	return o
}

// EventNotifier returns the EventNotifier attribute.
func (n *Object) EventNotifier() byte {
	return n.eventNotifier
}

// EmitEvent delivers evt to every event listener. Objects that do not
// subscribe to events drop it.
func (n *Object) EmitEvent(evt ua.Event) {
	if n.eventNotifier&ua.EventNotifierSubscribeToEvents == 0 || n.Disposed() {
		return
	}
	for _, fn := range n.eventListeners.snapshot() {
		fn(evt)
	}
}

// NewBaseEvent builds a BaseEvent raised by this object with a fresh EventId.
func (n *Object) NewBaseEvent(eventType ua.NodeID, message string, severity uint16) *ua.BaseEvent {
	id := uuid.New()
	now := time.Now()
	return &ua.BaseEvent{
		EventID:     ua.ByteString(id[:]),
		EventType:   eventType,
		SourceNode:  n.nodeID,
		SourceName:  n.browseName.Name,
		Time:        now,
		ReceiveTime: now,
		Message:     ua.NewLocalizedText(message, ""),
		Severity:    severity,
	}
}

// ReadAttribute implements Node.
func (n *Object) ReadAttribute(ctx context.Context, attributeID uint32) ua.DataValue {
	if dv, ok := n.readCommon(attributeID, ua.NodeClassObject); ok {
		return dv
	}
	if attributeID == ua.AttributeIDEventNotifier {
		return ua.NewDataValue(n.eventNotifier, ua.Good, time.Time{}, 0, time.Now(), 0)
	}
	return badAttribute()
}
