package models

import (
	"fmt"
	"time"

	"github.com/awcullen/opcua/ua"
)

// Message is the JSON form of one notification handed to a sink.
type Message struct {
	ItemTopic        string        `json:"ItemTopic,omitempty"`
	ItemId           uint32        `json:"ItemId"`
	ItemName         string        `json:"ItemName"`
	ClientHandle     uint32        `json:"ClientHandle"`
	Kind             string        `json:"Kind"`
	ItemValue        interface{}   `json:"ItemValue,omitempty"`
	StatusCode       string        `json:"StatusCode,omitempty"`
	Overflow         bool          `json:"Overflow,omitempty"`
	SemanticsChanged bool          `json:"SemanticsChanged,omitempty"`
	SourceTimestamp  string        `json:"SourceTimestamp,omitempty"`
	ServerTimestamp  string        `json:"ServerTimestamp,omitempty"`
	EventFields      []interface{} `json:"EventFields,omitempty"`
}

const (
	KindData  = "data"
	KindEvent = "event"
)

// NewMessage converts a ua.MonitoredItemNotification or ua.EventFieldList.
// ok is false for anything else.
func NewMessage(itemID uint32, itemName string, notification any) (msg Message, ok bool) {
	msg = Message{ItemId: itemID, ItemName: itemName}
	switch n := notification.(type) {
	case ua.MonitoredItemNotification:
		msg.Kind = KindData
		msg.ClientHandle = n.ClientHandle
		msg.ItemValue = n.Value.Value
		msg.StatusCode = fmt.Sprintf("0x%08X", uint32(n.Value.StatusCode))
		msg.Overflow = n.Value.StatusCode.IsOverflow()
		msg.SemanticsChanged = n.Value.StatusCode.IsSemanticsChanged()
		msg.SourceTimestamp = timestamp(n.Value.SourceTimestamp)
		msg.ServerTimestamp = timestamp(n.Value.ServerTimestamp)
	case ua.EventFieldList:
		msg.Kind = KindEvent
		msg.ClientHandle = n.ClientHandle
		msg.EventFields = make([]interface{}, len(n.EventFields))
		for i, f := range n.EventFields {
			msg.EventFields[i] = eventField(f)
		}
	default:
		return msg, false
	}
	return msg, true
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// eventField renders OPC UA structured values as text so they encode cleanly.
func eventField(v ua.Variant) interface{} {
	switch f := v.(type) {
	case ua.ByteString:
		return fmt.Sprintf("%x", string(f))
	case ua.LocalizedText:
		return f.Text
	case ua.QualifiedName:
		return f.Name
	case ua.NodeID:
		return fmt.Sprint(f)
	case time.Time:
		return timestamp(f)
	}
	return v
}
