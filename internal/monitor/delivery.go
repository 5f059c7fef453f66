package monitor

import (
	"context"
	"time"

	"github.com/amine-amaach/simulators/uaMonitor/internal/filter"
	"github.com/amine-amaach/simulators/uaMonitor/internal/numrange"
	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
)

// tick is the timer registration of one delivery generation.
type tick struct {
	mi         *MonitoredItem
	generation uint64
}

func (t tick) Poll() { t.mi.onTick(t.generation) }

// startDelivery (re)arms the mechanism matching the monitored attribute and
// sampling interval. With recordInitial the current value is reported as soon
// as it is known, even if it did not change. Callers hold mi.mu.
func (mi *MonitoredItem) startDelivery(recordInitial bool) {
	mi.stopDelivery()
	mi.last = initialValue()
	mi.ctx, mi.cancel = context.WithCancel(context.Background())
	gen := mi.generation
	n := mi.node

	switch {
	case mi.itemToMonitor.AttributeID == ua.AttributeIDEventNotifier:
		mi.delivery = deliveryEvents
		mi.unsubscribes = append(mi.unsubscribes, n.OnEvent(func(evt ua.Event) {
			mi.onEvent(gen, evt)
		}))

	case mi.itemToMonitor.AttributeID != ua.AttributeIDValue:
		mi.delivery = deliveryAttribute
		mi.unsubscribes = append(mi.unsubscribes, n.OnAttributeChanged(mi.itemToMonitor.AttributeID, func(dv ua.DataValue) {
			mi.onValueChanged(gen, dv, nil)
		}))
		if recordInitial {
			mi.recordValue(n.ReadAttribute(mi.ctx, mi.itemToMonitor.AttributeID), true, nil)
		}

	case mi.samplingInterval == 0:
		mi.delivery = deliveryValueChanged
		mi.unsubscribes = append(mi.unsubscribes,
			n.OnValueChanged(func(dv ua.DataValue, changed numrange.Range) {
				mi.onValueChanged(gen, dv, changed)
			}),
			n.OnSemanticChanged(func() {
				mi.onSemanticChanged(gen)
			}),
		)
		if recordInitial {
			ctx := mi.ctx
			mi.opts.Executor.Submit(func() {
				dv := n.ReadAttribute(ctx, ua.AttributeIDValue)
				mi.mu.Lock()
				defer mi.mu.Unlock()
				if !mi.current(gen) {
					return
				}
				mi.recordValue(dv, true, nil)
			})
		}

	default:
		if mi.opts.Timer == nil {
			panic(errors.Wrapf(ErrNoTimer, "monitored item %d", mi.id))
		}
		mi.delivery = deliveryTimer
		mi.pendingInitial = recordInitial
		interval := time.Duration(mi.samplingInterval * float64(time.Millisecond))
		mi.timerHandle = mi.opts.Timer.Register(interval, tick{mi: mi, generation: gen})
		if recordInitial {
			mi.opts.Timer.Kick(mi.timerHandle)
		}
	}
	mi.log.WithField("delivery", mi.delivery).Debugln("Delivery started 🔔")
}

// stopDelivery detaches every listener and timer and invalidates pending
// callbacks of the previous generation. Callers hold mi.mu.
func (mi *MonitoredItem) stopDelivery() {
	for _, unsubscribe := range mi.unsubscribes {
		unsubscribe()
	}
	mi.unsubscribes = nil
	if mi.delivery == deliveryTimer && mi.opts.Timer != nil {
		mi.opts.Timer.Unregister(mi.timerHandle)
	}
	mi.timerHandle = 0
	if mi.cancel != nil {
		mi.cancel()
		mi.cancel = nil
	}
	mi.generation++
	mi.samplingInFlight = false
	mi.pendingInitial = false
	mi.delivery = deliveryNone
}

func (mi *MonitoredItem) current(gen uint64) bool {
	return mi.generation == gen && mi.node != nil
}

func (mi *MonitoredItem) onValueChanged(gen uint64, dv ua.DataValue, changed numrange.Range) {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	if !mi.current(gen) {
		return
	}
	mi.recordValue(dv, false, changed)
}

func (mi *MonitoredItem) onSemanticChanged(gen uint64) {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	if !mi.current(gen) {
		return
	}
	mi.recordValue(mi.node.ReadAttribute(mi.ctx, ua.AttributeIDValue), false, nil)
}

func (mi *MonitoredItem) onEvent(gen uint64, evt ua.Event) {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	if !mi.current(gen) || !mi.enabled() {
		return
	}
	fields, ok := filter.EventFields(mi.eventFilter, evt, mi.opts.IsSubtype)
	if !ok {
		return
	}
	mi.enqueue(ua.EventFieldList{ClientHandle: mi.clientHandle, EventFields: fields}, "event")
}

// onTick starts one asynchronous sample unless the previous one is still
// running.
func (mi *MonitoredItem) onTick(gen uint64) {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	if !mi.current(gen) || mi.delivery != deliveryTimer {
		return
	}
	if mi.samplingInFlight {
		mi.opts.Metrics.SkippedTicks.Inc()
		return
	}
	mi.samplingInFlight = true
	ctx, n, item, last, sample := mi.ctx, mi.node, mi.itemToMonitor, mi.last, mi.opts.Sample
	mi.opts.Executor.Submit(func() {
		dv, err := sample(ctx, n, item, last)
		mi.onSampled(gen, dv, err)
	})
}

func (mi *MonitoredItem) onSampled(gen uint64, dv ua.DataValue, err error) {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	if !mi.current(gen) {
		return
	}
	mi.samplingInFlight = false
	if err != nil {
		mi.opts.Metrics.SamplingErrors.Inc()
		mi.log.WithError(err).Warnln("Sampling failed ⛔")
		return
	}
	initial := mi.pendingInitial
	mi.pendingInitial = false
	mi.recordValue(dv, initial, nil)
}

// recordValue is the single funnel every observed value goes through before
// it may be queued. changed is the range written by a partial update, nil
// when unknown or the whole value. Callers hold mi.mu.
func (mi *MonitoredItem) recordValue(dv ua.DataValue, skipChangeTest bool, changed numrange.Range) {
	mi.mustHaveNode()
	if !mi.modeSet {
		panic(errors.Wrapf(ErrNotStarted, "monitored item %d", mi.id))
	}
	if !mi.enabled() {
		return
	}

	version := mi.node.SemanticVersion()
	semanticChanged := version != mi.semanticVersion
	if !semanticChanged && !mi.indexRange.IsEmpty() && !changed.IsEmpty() && !numrange.Overlap(mi.indexRange, changed) {
		return
	}

	dv = numrange.Extract(dv, mi.indexRange)
	dv.Value = cloneVariant(dv.Value)

	if semanticChanged {
		mi.semanticVersion = version
		mi.last = dv
		dv.StatusCode = ua.StatusCode(uint32(dv.StatusCode) | ua.SemanticsChanged)
		mi.enqueueValue(dv, true)
		return
	}

	if !skipChangeTest {
		if mi.sameDataValue(dv, mi.last) {
			return
		}
		if !filter.IsDataChange(dv, mi.last, mi.dataChangeFilter, mi.euRange()) {
			return
		}
		if !mi.indexRange.IsEmpty() && sameValue(dv.Value, mi.last.Value) && dv.StatusCode == mi.last.StatusCode {
			return
		}
	}
	mi.last = dv
	mi.enqueueValue(dv, false)
}

// sameDataValue compares status, value and source timestamps. Timestamps count
// when the client asked for them or the trigger reports timestamp changes.
func (mi *MonitoredItem) sameDataValue(a, b ua.DataValue) bool {
	if a.StatusCode != b.StatusCode || !sameValue(a.Value, b.Value) {
		return false
	}
	if mi.dataChangeFilter.Trigger == ua.DataChangeTriggerStatusValueTimestamp {
		return a.SourceTimestamp.Equal(b.SourceTimestamp)
	}
	switch mi.timestampsToReturn {
	case ua.TimestampsToReturnSource, ua.TimestampsToReturnBoth:
		return a.SourceTimestamp.Equal(b.SourceTimestamp)
	}
	return true
}

func (mi *MonitoredItem) enqueueValue(dv ua.DataValue, semantic bool) {
	n := ua.MonitoredItemNotification{
		ClientHandle: mi.clientHandle,
		Value:        withTimestamps(dv, mi.timestampsToReturn),
	}
	mi.enqueue(n, "data")
	if semantic {
		mi.log.Debugln("Semantics changed 🔔")
	}
}

func (mi *MonitoredItem) enqueue(n any, kind string) {
	mi.opts.Metrics.Notifications.WithLabelValues(kind).Inc()
	if mi.queue.Push(n) {
		mi.opts.Metrics.Overflows.Inc()
	}
}

const overflowBits = ua.InfoTypeDataValue | ua.Overflow

// markOverflow sets or clears the overflow info bits of a data change
// notification. Event notifications carry no marker.
func markOverflow(item any, overflow bool) any {
	n, ok := item.(ua.MonitoredItemNotification)
	if !ok {
		return item
	}
	if overflow {
		n.Value.StatusCode = ua.StatusCode(uint32(n.Value.StatusCode) | overflowBits)
	} else {
		n.Value.StatusCode = ua.StatusCode(uint32(n.Value.StatusCode) &^ overflowBits)
	}
	return n
}

func withTimestamps(value ua.DataValue, timestampsToReturn ua.TimestampsToReturn) ua.DataValue {
	switch timestampsToReturn {
	case ua.TimestampsToReturnSource:
		return ua.NewDataValue(value.Value, value.StatusCode, value.SourceTimestamp, value.SourcePicoseconds, time.Time{}, 0)
	case ua.TimestampsToReturnServer:
		return ua.NewDataValue(value.Value, value.StatusCode, time.Time{}, 0, value.ServerTimestamp, value.ServerPicoseconds)
	case ua.TimestampsToReturnNeither:
		return ua.NewDataValue(value.Value, value.StatusCode, time.Time{}, 0, time.Time{}, 0)
	default:
		return value
	}
}
