package monitor

import (
	"context"

	"github.com/amine-amaach/simulators/uaMonitor/internal/filter"
	"github.com/amine-amaach/simulators/uaMonitor/internal/node"
	"github.com/amine-amaach/simulators/uaMonitor/internal/numrange"
	"github.com/awcullen/opcua/ua"
)

// Create validates a create request against n and, when it is acceptable,
// returns an attached item already switched to the requested monitoring mode.
// On failure the item is nil and only the result status is set.
func Create(ctx context.Context, n node.Node, req ua.MonitoredItemCreateRequest, timestampsToReturn ua.TimestampsToReturn, opts Options) (*MonitoredItem, ua.MonitoredItemCreateResult) {
	opts = opts.withDefaults()
	item := req.ItemToMonitor
	if n == nil {
		return nil, ua.MonitoredItemCreateResult{StatusCode: ua.BadNodeIDUnknown}
	}

	current := n.ReadAttribute(ctx, item.AttributeID)
	if current.StatusCode == ua.BadAttributeIDInvalid || current.StatusCode == ua.BadNodeIDUnknown {
		return nil, ua.MonitoredItemCreateResult{StatusCode: current.StatusCode}
	}
	if _, status := numrange.Parse(item.IndexRange); status != ua.Good {
		return nil, ua.MonitoredItemCreateResult{StatusCode: status}
	}

	target := filter.Target{AttributeID: item.AttributeID}
	if item.AttributeID == ua.AttributeIDValue {
		target.Value = current.Value
		if r, ok := n.(node.EURanger); ok {
			if eu, ok := r.EURange(); ok {
				target.EURange = &eu
			}
		}
	}
	if status := filter.Validate(req.RequestedParameters.Filter, target); status != ua.Good {
		opts.Metrics.FilterRejections.WithLabelValues(statusLabel(status)).Inc()
		opts.Logger.WithField("nodeId", n.NodeID()).WithField("status", statusLabel(status)).
			Warnln("Rejected monitored item filter ⛔")
		return nil, ua.MonitoredItemCreateResult{StatusCode: status}
	}

	mi := New(item, timestampsToReturn, req.RequestedParameters, opts)
	mi.Attach(n)
	mi.SetMonitoringMode(req.MonitoringMode)
	return mi, ua.MonitoredItemCreateResult{
		StatusCode:              ua.Good,
		MonitoredItemID:         mi.ID(),
		RevisedSamplingInterval: mi.SamplingInterval(),
		RevisedQueueSize:        uint32(mi.QueueSize()),
	}
}
