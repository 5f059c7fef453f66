package monitor

import (
	"context"
	"math"
	"time"

	"github.com/amine-amaach/simulators/uaMonitor/internal/filter"
	"github.com/amine-amaach/simulators/uaMonitor/internal/metrics"
	"github.com/amine-amaach/simulators/uaMonitor/internal/node"
	"github.com/amine-amaach/simulators/uaMonitor/internal/sampler"
	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Limits bounds the sampling intervals granted to monitored items, in milliseconds.
type Limits struct {
	MinimumSamplingInterval float64 `mapstructure:"minimum_sampling_interval"`
	MaximumSamplingInterval float64 `mapstructure:"maximum_sampling_interval"`
	// DefaultSamplingInterval replaces negative requested intervals.
	DefaultSamplingInterval float64 `mapstructure:"default_sampling_interval"`
}

// DefaultLimits are the limits used when Options.Limits is left zero.
var DefaultLimits = Limits{
	MinimumSamplingInterval: 50,
	MaximumSamplingInterval: 3600000,
	DefaultSamplingInterval: 1500,
}

// Timer is the shared sampling timer. *sampler.Scheduler implements it.
type Timer interface {
	Register(interval time.Duration, listener sampler.Listener) sampler.Handle
	Unregister(h sampler.Handle)
	Kick(h sampler.Handle)
}

// Executor runs asynchronous sampling work. *workerpool.WorkerPool implements it.
type Executor interface {
	Submit(task func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(task func())

func (f ExecutorFunc) Submit(task func()) { f(task) }

// SamplingFunc produces the current value of the monitored attribute for a
// timer driven item. last is the most recently recorded value.
type SamplingFunc func(ctx context.Context, n node.Node, item ua.ReadValueID, last ua.DataValue) (ua.DataValue, error)

// ReadValue is the default SamplingFunc. It reads the attribute from the node.
func ReadValue(ctx context.Context, n node.Node, item ua.ReadValueID, _ ua.DataValue) (ua.DataValue, error) {
	if err := ctx.Err(); err != nil {
		return ua.DataValue{}, errors.Wrap(err, "sampling canceled")
	}
	return n.ReadAttribute(ctx, item.AttributeID), nil
}

// Options carries the collaborators shared by the monitored items of a
// subscription.
type Options struct {
	Timer    Timer
	Executor Executor
	Sample   SamplingFunc
	Registry *Registry
	Metrics  *metrics.Metrics
	Logger   logrus.FieldLogger
	Limits   Limits
	// IsSubtype resolves OfType where clauses against derived event types.
	IsSubtype filter.SubtypeChecker
}

// defaultRegistry holds items created without an explicit Registry.
var defaultRegistry = NewRegistry(nil)

func (o Options) withDefaults() Options {
	if o.Executor == nil {
		o.Executor = ExecutorFunc(func(task func()) { go task() })
	}
	if o.Sample == nil {
		o.Sample = ReadValue
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New(nil)
	}
	if o.Registry == nil {
		o.Registry = defaultRegistry
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	if o.Limits == (Limits{}) {
		o.Limits = DefaultLimits
	}
	return o
}

// adjustSamplingInterval revises a requested interval for attribute
// attributeID of a node whose own minimum is nodeMin.
func (l Limits) adjustSamplingInterval(requested, nodeMin float64, attributeID uint32) float64 {
	if attributeID != ua.AttributeIDValue {
		return 0
	}
	if requested < 0 || math.IsNaN(requested) {
		requested = l.DefaultSamplingInterval
	}
	if requested == 0 {
		if nodeMin == 0 {
			return 0
		}
		return math.Min(math.Max(l.MinimumSamplingInterval, nodeMin), l.MaximumSamplingInterval)
	}
	requested = math.Max(requested, l.MinimumSamplingInterval)
	requested = math.Min(requested, l.MaximumSamplingInterval)
	if nodeMin > requested {
		requested = math.Min(nodeMin, l.MaximumSamplingInterval)
	}
	return requested
}
