package config

import (
	"strings"

	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
)

// Request converts the configured parameters into a create request for the
// Value attribute of nodeID.
func (i Item) Request(nodeID ua.NodeID, clientHandle uint32) (ua.MonitoredItemCreateRequest, ua.TimestampsToReturn, error) {
	var req ua.MonitoredItemCreateRequest
	mode, err := ParseMode(i.Mode)
	if err != nil {
		return req, 0, err
	}
	ts, err := ParseTimestamps(i.Timestamps)
	if err != nil {
		return req, 0, err
	}
	f, err := i.filter()
	if err != nil {
		return req, 0, err
	}
	req = ua.MonitoredItemCreateRequest{
		ItemToMonitor: ua.ReadValueID{
			NodeID:      nodeID,
			AttributeID: ua.AttributeIDValue,
			IndexRange:  i.IndexRange,
		},
		MonitoringMode: mode,
		RequestedParameters: ua.MonitoringParameters{
			ClientHandle:     clientHandle,
			SamplingInterval: i.SamplingInterval,
			Filter:           f,
			QueueSize:        i.QueueSize,
			DiscardOldest:    i.DiscardOldest,
		},
	}
	return req, ts, nil
}

// filter returns nil when neither trigger nor deadband were configured.
func (i Item) filter() (ua.ExtensionObject, error) {
	if i.Trigger == "" && i.DeadbandType == "" {
		return nil, nil
	}
	var dcf ua.DataChangeFilter
	switch strings.ToLower(i.Trigger) {
	case "status":
		dcf.Trigger = ua.DataChangeTriggerStatus
	case "", "status_value":
		dcf.Trigger = ua.DataChangeTriggerStatusValue
	case "status_value_timestamp":
		dcf.Trigger = ua.DataChangeTriggerStatusValueTimestamp
	default:
		return nil, errors.Errorf("unknown trigger %q", i.Trigger)
	}
	switch strings.ToLower(i.DeadbandType) {
	case "", "none":
		dcf.DeadbandType = uint32(ua.DeadbandTypeNone)
	case "absolute":
		dcf.DeadbandType = uint32(ua.DeadbandTypeAbsolute)
	case "percent":
		dcf.DeadbandType = uint32(ua.DeadbandTypePercent)
	default:
		return nil, errors.Errorf("unknown deadband_type %q", i.DeadbandType)
	}
	dcf.DeadbandValue = i.DeadbandValue
	return dcf, nil
}

func ParseMode(s string) (ua.MonitoringMode, error) {
	switch strings.ToLower(s) {
	case "", "reporting":
		return ua.MonitoringModeReporting, nil
	case "sampling":
		return ua.MonitoringModeSampling, nil
	case "disabled":
		return ua.MonitoringModeDisabled, nil
	}
	return 0, errors.Errorf("unknown monitoring mode %q", s)
}

func ParseTimestamps(s string) (ua.TimestampsToReturn, error) {
	switch strings.ToLower(s) {
	case "", "both":
		return ua.TimestampsToReturnBoth, nil
	case "source":
		return ua.TimestampsToReturnSource, nil
	case "server":
		return ua.TimestampsToReturnServer, nil
	case "neither":
		return ua.TimestampsToReturnNeither, nil
	}
	return 0, errors.Errorf("unknown timestamps to return %q", s)
}
