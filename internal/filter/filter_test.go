package filter

import (
	"testing"
	"time"

	"github.com/awcullen/opcua/ua"
	"github.com/stretchr/testify/assert"
)

func dv(v ua.Variant, status ua.StatusCode, ts time.Time) ua.DataValue {
	return ua.NewDataValue(v, status, ts, 0, ts, 0)
}

func TestIsDataChangeStatus(t *testing.T) {
	now := time.Now()
	dcf := ua.DataChangeFilter{Trigger: ua.DataChangeTriggerStatus}
	assert.False(t, IsDataChange(dv(2.0, ua.Good, now), dv(1.0, ua.Good, now), dcf, nil))
	assert.True(t, IsDataChange(dv(1.0, ua.BadDataUnavailable, now), dv(1.0, ua.Good, now), dcf, nil))
}

func TestIsDataChangeStatusValue(t *testing.T) {
	now := time.Now()
	assert.False(t, IsDataChange(dv(10.0, ua.Good, now), dv(10.0, ua.Good, now), Default, nil))
	assert.True(t, IsDataChange(dv(11.0, ua.Good, now), dv(10.0, ua.Good, now), Default, nil))
	assert.True(t, IsDataChange(dv(10.0, ua.BadDataUnavailable, now), dv(10.0, ua.Good, now), Default, nil))
	// a changed timestamp alone is not a StatusValue change
	assert.False(t, IsDataChange(dv(10.0, ua.Good, now.Add(time.Second)), dv(10.0, ua.Good, now), Default, nil))
}

func TestIsDataChangeStatusValueTimestamp(t *testing.T) {
	now := time.Now()
	dcf := ua.DataChangeFilter{Trigger: ua.DataChangeTriggerStatusValueTimestamp}
	assert.True(t, IsDataChange(dv(10.0, ua.Good, now.Add(time.Second)), dv(10.0, ua.Good, now), dcf, nil))
	assert.False(t, IsDataChange(dv(10.0, ua.Good, now), dv(10.0, ua.Good, now), dcf, nil))
}

func TestIsDataChangeDeadbands(t *testing.T) {
	now := time.Now()
	abs := ua.DataChangeFilter{
		Trigger:       ua.DataChangeTriggerStatusValue,
		DeadbandType:  uint32(ua.DeadbandTypeAbsolute),
		DeadbandValue: 5,
	}
	assert.False(t, IsDataChange(dv(104.0, ua.Good, now), dv(100.0, ua.Good, now), abs, nil))
	assert.True(t, IsDataChange(dv(106.0, ua.Good, now), dv(100.0, ua.Good, now), abs, nil))

	pct := ua.DataChangeFilter{
		Trigger:       ua.DataChangeTriggerStatusValue,
		DeadbandType:  uint32(ua.DeadbandTypePercent),
		DeadbandValue: 10,
	}
	r := &ua.Range{Low: 0, High: 200}
	assert.False(t, IsDataChange(dv(69.0, ua.Good, now), dv(50.0, ua.Good, now), pct, r))
	assert.True(t, IsDataChange(dv(71.0, ua.Good, now), dv(50.0, ua.Good, now), pct, r))
}

func TestValidate(t *testing.T) {
	r := &ua.Range{Low: 0, High: 100}
	tests := []struct {
		name   string
		filter ua.ExtensionObject
		target Target
		want   ua.StatusCode
	}{
		{"nil on value", nil, Target{AttributeID: ua.AttributeIDValue, Value: 1.0}, ua.Good},
		{"nil on display name", nil, Target{AttributeID: ua.AttributeIDDisplayName}, ua.Good},
		{"data change on display name", Default, Target{AttributeID: ua.AttributeIDDisplayName}, ua.BadFilterNotAllowed},
		{"event filter on value", ua.EventFilter{}, Target{AttributeID: ua.AttributeIDValue}, ua.BadFilterNotAllowed},
		{"data change on notifier", Default, Target{AttributeID: ua.AttributeIDEventNotifier}, ua.BadFilterNotAllowed},
		{"missing event filter", nil, Target{AttributeID: ua.AttributeIDEventNotifier}, ua.BadFilterNotAllowed},
		{"event filter", ua.EventFilter{SelectClauses: ua.BaseEventSelectClauses}, Target{AttributeID: ua.AttributeIDEventNotifier}, ua.Good},
		{
			"negative absolute",
			ua.DataChangeFilter{Trigger: ua.DataChangeTriggerStatusValue, DeadbandType: uint32(ua.DeadbandTypeAbsolute), DeadbandValue: -1},
			Target{AttributeID: ua.AttributeIDValue, Value: 1.0},
			ua.BadDeadbandFilterInvalid,
		},
		{
			"percent over 100",
			ua.DataChangeFilter{Trigger: ua.DataChangeTriggerStatusValue, DeadbandType: uint32(ua.DeadbandTypePercent), DeadbandValue: 101},
			Target{AttributeID: ua.AttributeIDValue, Value: 1.0, EURange: r},
			ua.BadDeadbandFilterInvalid,
		},
		{
			"percent without range",
			ua.DataChangeFilter{Trigger: ua.DataChangeTriggerStatusValue, DeadbandType: uint32(ua.DeadbandTypePercent), DeadbandValue: 10},
			Target{AttributeID: ua.AttributeIDValue, Value: 1.0},
			ua.BadMonitoredItemFilterUnsupported,
		},
		{
			"percent with range",
			ua.DataChangeFilter{Trigger: ua.DataChangeTriggerStatusValue, DeadbandType: uint32(ua.DeadbandTypePercent), DeadbandValue: 10},
			Target{AttributeID: ua.AttributeIDValue, Value: 1.0, EURange: r},
			ua.Good,
		},
		{
			"absolute on string",
			ua.DataChangeFilter{Trigger: ua.DataChangeTriggerStatusValue, DeadbandType: uint32(ua.DeadbandTypeAbsolute), DeadbandValue: 1},
			Target{AttributeID: ua.AttributeIDValue, Value: "text"},
			ua.BadFilterNotAllowed,
		},
		{
			"unknown deadband type",
			ua.DataChangeFilter{Trigger: ua.DataChangeTriggerStatusValue, DeadbandType: 7},
			Target{AttributeID: ua.AttributeIDValue, Value: 1.0},
			ua.BadDeadbandFilterInvalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.filter, tt.target))
		})
	}
}

type testEvent struct {
	ua.BaseEvent
}

func TestEventFields(t *testing.T) {
	evtType := ua.NewNodeIDNumeric(0, 2041)
	evt := &testEvent{ua.BaseEvent{
		EventID:    ua.ByteString("id-1"),
		EventType:  evtType,
		SourceName: "Boiler",
		Severity:   500,
	}}
	ef := ua.EventFilter{SelectClauses: ua.BaseEventSelectClauses}

	fields, ok := EventFields(ef, evt, nil)
	assert.True(t, ok)
	assert.Len(t, fields, len(ua.BaseEventSelectClauses))
	assert.Equal(t, ua.Variant(ua.ByteString("id-1")), fields[0])
	assert.Equal(t, ua.Variant(uint16(500)), fields[7])

	ef.WhereClause = ua.ContentFilter{Elements: []ua.ContentFilterElement{
		{FilterOperator: ua.FilterOperatorOfType, FilterOperands: []ua.ExtensionObject{ua.LiteralOperand{Value: evtType}}},
	}}
	_, ok = EventFields(ef, evt, nil)
	assert.True(t, ok)

	other := ua.NewNodeIDNumeric(0, 9999)
	ef.WhereClause.Elements[0].FilterOperands[0] = ua.LiteralOperand{Value: other}
	_, ok = EventFields(ef, evt, nil)
	assert.False(t, ok)

	_, ok = EventFields(ef, evt, func(sub, super ua.NodeID) bool { return super == other })
	assert.True(t, ok)

	ef.WhereClause = ua.ContentFilter{Elements: []ua.ContentFilterElement{
		{FilterOperator: ua.FilterOperatorEquals, FilterOperands: []ua.ExtensionObject{
			ua.BaseEventSelectClauses[7], ua.LiteralOperand{Value: uint16(500)},
		}},
	}}
	_, ok = EventFields(ef, evt, nil)
	assert.True(t, ok)
}
