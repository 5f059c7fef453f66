// Package filter evaluates and validates the filters attached to monitored items.
package filter

import (
	"github.com/amine-amaach/simulators/uaMonitor/internal/deadband"
	"github.com/awcullen/opcua/ua"
)

// Default is the data change filter in effect when none is configured:
// report any change of status or value.
var Default = ua.DataChangeFilter{Trigger: ua.DataChangeTriggerStatusValue}

// IsDataChange reports whether current is a reportable change from previous
// according to dcf. euRange is only consulted by percent deadbands.
func IsDataChange(current, previous ua.DataValue, dcf ua.DataChangeFilter, euRange *ua.Range) bool {
	switch dcf.Trigger {
	case ua.DataChangeTriggerStatus:
		return current.StatusCode != previous.StatusCode
	case ua.DataChangeTriggerStatusValue:
		if current.StatusCode != previous.StatusCode {
			return true
		}
		return deadband.Check(ua.DeadbandType(dcf.DeadbandType), dcf.DeadbandValue, euRange, current.Value, previous.Value)
	case ua.DataChangeTriggerStatusValueTimestamp:
		if current.StatusCode != previous.StatusCode {
			return true
		}
		if !current.SourceTimestamp.Equal(previous.SourceTimestamp) {
			return true
		}
		return deadband.Check(ua.DeadbandType(dcf.DeadbandType), dcf.DeadbandValue, euRange, current.Value, previous.Value)
	}
	return true
}
