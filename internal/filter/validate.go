package filter

import (
	"github.com/amine-amaach/simulators/uaMonitor/internal/deadband"
	"github.com/awcullen/opcua/ua"
)

// Target describes what a filter is about to be applied to.
type Target struct {
	AttributeID uint32
	// Value is the current value of the monitored attribute.
	Value ua.Variant
	// EURange is the engineering units range of the node, nil when it has none.
	EURange *ua.Range
}

// Validate checks that f can be applied to target. A nil filter is always valid.
func Validate(f ua.ExtensionObject, target Target) ua.StatusCode {
	switch target.AttributeID {
	case ua.AttributeIDValue:
		if f == nil {
			return ua.Good
		}
		dcf, ok := f.(ua.DataChangeFilter)
		if !ok {
			return ua.BadFilterNotAllowed
		}
		return validateDataChange(dcf, target)
	case ua.AttributeIDEventNotifier:
		ef, ok := f.(ua.EventFilter)
		if !ok {
			return ua.BadFilterNotAllowed
		}
		return validateEvent(ef)
	default:
		if f != nil {
			return ua.BadFilterNotAllowed
		}
		return ua.Good
	}
}

func validateDataChange(dcf ua.DataChangeFilter, target Target) ua.StatusCode {
	switch dcf.Trigger {
	case ua.DataChangeTriggerStatus, ua.DataChangeTriggerStatusValue, ua.DataChangeTriggerStatusValueTimestamp:
	default:
		return ua.BadDeadbandFilterInvalid
	}
	switch ua.DeadbandType(dcf.DeadbandType) {
	case ua.DeadbandTypeNone:
		return ua.Good
	case ua.DeadbandTypeAbsolute:
		if dcf.DeadbandValue < 0 {
			return ua.BadDeadbandFilterInvalid
		}
	case ua.DeadbandTypePercent:
		if dcf.DeadbandValue < 0 || dcf.DeadbandValue > 100 {
			return ua.BadDeadbandFilterInvalid
		}
		if target.EURange == nil {
			return ua.BadMonitoredItemFilterUnsupported
		}
	default:
		return ua.BadDeadbandFilterInvalid
	}
	if target.Value != nil && !deadband.IsNumeric(target.Value) {
		return ua.BadFilterNotAllowed
	}
	return ua.Good
}

func validateEvent(ef ua.EventFilter) ua.StatusCode {
	for _, element := range ef.WhereClause.Elements {
		switch element.FilterOperator {
		case ua.FilterOperatorEquals:
			if len(element.FilterOperands) != 2 {
				return ua.BadMonitoredItemFilterUnsupported
			}
		case ua.FilterOperatorOfType:
			if len(element.FilterOperands) != 1 {
				return ua.BadMonitoredItemFilterUnsupported
			}
		default:
			return ua.BadMonitoredItemFilterUnsupported
		}
	}
	return ua.Good
}
