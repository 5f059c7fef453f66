// Package monitor implements OPC UA monitored items: the state machine that
// binds a client's monitoring request to a node, samples or listens to it,
// filters the changes and queues notifications for the publish cycle.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/amine-amaach/simulators/uaMonitor/internal/filter"
	"github.com/amine-amaach/simulators/uaMonitor/internal/node"
	"github.com/amine-amaach/simulators/uaMonitor/internal/numrange"
	"github.com/amine-amaach/simulators/uaMonitor/internal/queue"
	"github.com/amine-amaach/simulators/uaMonitor/internal/sampler"
	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// delivery is the mechanism currently feeding the item.
type delivery int

const (
	deliveryNone delivery = iota
	// raw events of an EventNotifier
	deliveryEvents
	// attribute changed notifications of a non Value attribute
	deliveryAttribute
	// value and semantic changed notifications, sampling interval 0
	deliveryValueChanged
	// the shared sampling timer
	deliveryTimer
)

func (d delivery) String() string {
	switch d {
	case deliveryEvents:
		return "events"
	case deliveryAttribute:
		return "attribute"
	case deliveryValueChanged:
		return "value-changed"
	case deliveryTimer:
		return "timer"
	}
	return "none"
}

// MonitoredItem watches one attribute of one node on behalf of a client.
//
// All state is guarded by mu. Node callbacks, timer ticks, sampling completions
// and publish cycle calls are serialized on it, so values are recorded in the
// order they arrive.
type MonitoredItem struct {
	mu   sync.Mutex
	id   uint32
	opts Options
	log  logrus.FieldLogger

	node               node.Node
	itemToMonitor      ua.ReadValueID
	indexRange         numrange.Range
	clientHandle       uint32
	timestampsToReturn ua.TimestampsToReturn
	mode               ua.MonitoringMode
	modeSet            bool
	requestedInterval  float64
	samplingInterval   float64
	filter             ua.ExtensionObject
	dataChangeFilter   ua.DataChangeFilter
	eventFilter        ua.EventFilter
	queue              *queue.Queue[any]
	last               ua.DataValue
	semanticVersion    uint32

	delivery         delivery
	unsubscribes     []node.Unsubscribe
	timerHandle      sampler.Handle
	generation       uint64
	samplingInFlight bool
	pendingInitial   bool
	ctx              context.Context
	cancel           context.CancelFunc

	disposeUnsubscribe node.Unsubscribe
	terminated         bool
	disposed           bool
	// nodeGone is set once the node reported its disposal. The node
	// reference is dropped and the item stays terminated.
	nodeGone bool
}

// New creates a monitored item in the implicit Invalid mode and registers it
// with opts.Registry. The filter is expected to have been validated already;
// Create does that. The item does nothing until Attach and SetMonitoringMode.
func New(itemToMonitor ua.ReadValueID, timestampsToReturn ua.TimestampsToReturn, params ua.MonitoringParameters, opts Options) *MonitoredItem {
	opts = opts.withDefaults()
	indexRange, _ := numrange.Parse(itemToMonitor.IndexRange)
	mi := &MonitoredItem{
		opts:               opts,
		itemToMonitor:      itemToMonitor,
		indexRange:         indexRange,
		clientHandle:       params.ClientHandle,
		timestampsToReturn: timestampsToReturn,
		requestedInterval:  params.SamplingInterval,
		queue:              queue.New[any](int(params.QueueSize), params.DiscardOldest, markOverflow),
		last:               initialValue(),
	}
	mi.setFilter(params.Filter)
	mi.samplingInterval = opts.Limits.adjustSamplingInterval(params.SamplingInterval, 0, itemToMonitor.AttributeID)
	mi.id = opts.Registry.register(mi)
	mi.log = opts.Logger.WithField("monitoredItemId", mi.id)
	return mi
}

func initialValue() ua.DataValue {
	return ua.NewDataValue(nil, ua.BadDataUnavailable, time.Time{}, 0, time.Time{}, 0)
}

// Attach binds the item to n and starts observing its disposal. The sampling
// interval is revised against the node's own minimum.
func (mi *MonitoredItem) Attach(n node.Node) {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	if mi.node != nil || mi.nodeGone {
		panic(errors.Wrapf(ErrAlreadyAttached, "monitored item %d", mi.id))
	}
	mi.node = n
	mi.semanticVersion = n.SemanticVersion()
	mi.samplingInterval = mi.opts.Limits.adjustSamplingInterval(mi.requestedInterval, mi.nodeMinimumSamplingInterval(), mi.itemToMonitor.AttributeID)
	mi.disposeUnsubscribe = n.OnDispose(mi.onNodeDisposed)
	mi.log = mi.log.WithField("nodeId", n.NodeID())
}

func (mi *MonitoredItem) setFilter(f ua.ExtensionObject) {
	mi.filter = f
	mi.dataChangeFilter = filter.Default
	mi.eventFilter = ua.EventFilter{}
	switch f := f.(type) {
	case ua.DataChangeFilter:
		mi.dataChangeFilter = f
	case ua.EventFilter:
		mi.eventFilter = f
	}
}

func (mi *MonitoredItem) nodeMinimumSamplingInterval() float64 {
	if l, ok := mi.node.(node.SamplingLimiter); ok {
		return l.MinimumSamplingInterval()
	}
	return 0
}

func (mi *MonitoredItem) euRange() *ua.Range {
	if r, ok := mi.node.(node.EURanger); ok {
		if eu, ok := r.EURange(); ok {
			return &eu
		}
	}
	return nil
}

func (mi *MonitoredItem) mustHaveNode() {
	if mi.node == nil && !mi.nodeGone {
		panic(errors.Wrapf(ErrNotAttached, "monitored item %d", mi.id))
	}
}

func (mi *MonitoredItem) enabled() bool {
	return mi.modeSet && mi.mode != ua.MonitoringModeDisabled && !mi.terminated
}

// SetMonitoringMode switches between Disabled, Sampling and Reporting.
// Enabling an item reports its current value as soon as possible. Disabling
// it stops delivery and empties the queue.
func (mi *MonitoredItem) SetMonitoringMode(mode ua.MonitoringMode) {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	mi.mustHaveNode()
	if mi.modeSet && mi.mode == mode {
		return
	}
	wasEnabled := mi.enabled()
	mi.mode = mode
	mi.modeSet = true
	mi.log.WithField("mode", mode).Debugln("Monitoring mode changed 🔔")

	if mode == ua.MonitoringModeDisabled {
		mi.stopDelivery()
		mi.queue.Clear()
		return
	}
	if !wasEnabled && !mi.terminated {
		mi.startDelivery(true)
	}
}

// Modify applies new monitoring parameters. An invalid filter is reported in
// the result and leaves the item untouched. Delivery restarts only when the
// revised sampling interval differs from the current one.
func (mi *MonitoredItem) Modify(timestampsToReturn ua.TimestampsToReturn, params ua.MonitoringParameters) ua.MonitoredItemModifyResult {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	mi.mustHaveNode()
	if mi.nodeGone {
		return ua.MonitoredItemModifyResult{StatusCode: ua.BadNodeIDUnknown}
	}

	if status := filter.Validate(params.Filter, mi.filterTarget()); status != ua.Good {
		mi.opts.Metrics.FilterRejections.WithLabelValues(statusLabel(status)).Inc()
		mi.log.WithField("status", status).Warnln("Rejected monitoring parameters ⛔")
		return ua.MonitoredItemModifyResult{StatusCode: status}
	}

	old := mi.samplingInterval
	requested := params.SamplingInterval
	if old != 0 && requested == 0 {
		requested = mi.opts.Limits.MinimumSamplingInterval
	}
	mi.timestampsToReturn = timestampsToReturn
	mi.clientHandle = params.ClientHandle
	mi.setFilter(params.Filter)
	mi.requestedInterval = requested
	mi.samplingInterval = mi.opts.Limits.adjustSamplingInterval(requested, mi.nodeMinimumSamplingInterval(), mi.itemToMonitor.AttributeID)
	mi.queue.Resize(int(params.QueueSize), params.DiscardOldest)

	if mi.samplingInterval != old && mi.enabled() {
		mi.startDelivery(false)
	}
	return ua.MonitoredItemModifyResult{
		StatusCode:              ua.Good,
		RevisedSamplingInterval: mi.samplingInterval,
		RevisedQueueSize:        uint32(mi.queue.Size()),
	}
}

// filterTarget describes the monitored attribute for filter validation.
func (mi *MonitoredItem) filterTarget() filter.Target {
	target := filter.Target{AttributeID: mi.itemToMonitor.AttributeID, EURange: mi.euRange()}
	if target.AttributeID == ua.AttributeIDValue {
		target.Value = mi.node.ReadAttribute(context.Background(), ua.AttributeIDValue).Value
	}
	return target
}

// ResendInitialValues restarts delivery so the current value is reported
// again. Event items and disabled items are left alone.
func (mi *MonitoredItem) ResendInitialValues() {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	mi.mustHaveNode()
	if !mi.enabled() || mi.itemToMonitor.AttributeID == ua.AttributeIDEventNotifier {
		return
	}
	mi.startDelivery(true)
}

// Terminate stops delivery and stops watching the node for disposal. Queued
// notifications stay available.
func (mi *MonitoredItem) Terminate() {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	mi.stopDelivery()
	mi.detachDispose()
	mi.terminated = true
}

func (mi *MonitoredItem) detachDispose() {
	if mi.disposeUnsubscribe != nil {
		mi.disposeUnsubscribe()
		mi.disposeUnsubscribe = nil
	}
}

// Dispose terminates the item, leaves the registry and releases the node.
// It is safe to call more than once.
func (mi *MonitoredItem) Dispose() {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	if mi.disposed {
		return
	}
	mi.stopDelivery()
	mi.terminated = true
	mi.disposed = true
	mi.opts.Registry.unregister(mi.id)
	mi.detachDispose()
	mi.queue.Clear()
	mi.last = initialValue()
	mi.node = nil
	mi.log.Debugln("Monitored item disposed 🔔")
}

// onNodeDisposed reports a final BadNodeIDInvalid notification and terminates
// the item. The node is never read again.
func (mi *MonitoredItem) onNodeDisposed() {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	if mi.node == nil {
		return
	}
	if mi.enabled() {
		now := time.Now()
		mi.enqueueValue(ua.NewDataValue(nil, ua.BadNodeIDInvalid, now, 0, now, 0), false)
	}
	mi.stopDelivery()
	mi.detachDispose()
	mi.terminated = true
	mi.nodeGone = true
	mi.node = nil
	mi.log.Warnln("Monitored node disposed ⛔")
}

// HasNotifications reports whether ExtractNotifications would return anything.
func (mi *MonitoredItem) HasNotifications() bool {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.modeSet && mi.mode == ua.MonitoringModeReporting && mi.queue.Len() > 0
}

// ExtractNotifications removes and returns every queued notification, oldest
// first, as ua.MonitoredItemNotification or ua.EventFieldList values. Only
// items in Reporting mode yield notifications.
func (mi *MonitoredItem) ExtractNotifications() []any {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	if !mi.modeSet || mi.mode != ua.MonitoringModeReporting {
		return nil
	}
	out := mi.queue.Drain()
	if len(out) > 0 {
		mi.opts.Metrics.ExtractedBatches.Inc()
	}
	return out
}

func (mi *MonitoredItem) ID() uint32 {
	return mi.id
}

func (mi *MonitoredItem) ClientHandle() uint32 {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.clientHandle
}

func (mi *MonitoredItem) ItemToMonitor() ua.ReadValueID {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.itemToMonitor
}

// MonitoringMode returns the current mode. ok is false before the first
// SetMonitoringMode.
func (mi *MonitoredItem) MonitoringMode() (mode ua.MonitoringMode, ok bool) {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.mode, mi.modeSet
}

// SamplingInterval returns the revised sampling interval in milliseconds.
func (mi *MonitoredItem) SamplingInterval() float64 {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.samplingInterval
}

func (mi *MonitoredItem) QueueSize() int {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.queue.Size()
}

func (mi *MonitoredItem) DiscardOldest() bool {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.queue.DiscardOldest()
}

// QueueLen returns the number of queued notifications regardless of mode.
func (mi *MonitoredItem) QueueLen() int {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.queue.Len()
}

// Overflow reports whether the queue dropped a notification since the last extraction.
func (mi *MonitoredItem) Overflow() bool {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.queue.Overflow()
}

// Filter returns the active filter, nil when none was requested.
func (mi *MonitoredItem) Filter() ua.ExtensionObject {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.filter
}

// SamplingInFlight reports whether a timer driven sample is being taken.
func (mi *MonitoredItem) SamplingInFlight() bool {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.samplingInFlight
}

// IsSampling reports whether any delivery mechanism is active.
func (mi *MonitoredItem) IsSampling() bool {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.delivery != deliveryNone
}
