package cli

import (
	"context"
	"sync"

	"github.com/amine-amaach/simulators/uaMonitor/internal/config"
	"github.com/amine-amaach/simulators/uaMonitor/internal/metrics"
	"github.com/amine-amaach/simulators/uaMonitor/internal/monitor"
	"github.com/amine-amaach/simulators/uaMonitor/internal/node"
	"github.com/amine-amaach/simulators/uaMonitor/internal/ports"
	"github.com/amine-amaach/simulators/uaMonitor/internal/sampler"
	"github.com/amine-amaach/simulators/uaMonitor/internal/services"
	"github.com/amine-amaach/simulators/uaMonitor/internal/simulators"
	"github.com/awcullen/opcua/ua"
	"github.com/gammazero/workerpool"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

// namespaceIndex of the simulated nodes.
const namespaceIndex = 2

// app owns the simulated address space, the monitored items watching it and
// the publish loop draining them.
type app struct {
	cfg       config.Cfg
	log       logrus.FieldLogger
	promReg   *prometheus.Registry
	metrics   *metrics.Metrics
	scheduler *sampler.Scheduler
	pool      *workerpool.WorkerPool
	registry  *monitor.Registry
	sink      ports.SinkPort
	publisher *services.PublisherSvc

	sims  []ports.SimulatorPort
	items []*monitor.MonitoredItem
}

// newApp builds nodes, simulators and monitored items. Items whose request is
// rejected are logged and skipped. sink may be nil for logging only.
func newApp(ctx context.Context, cfg config.Cfg, log logrus.FieldLogger, sink ports.SinkPort) (*app, error) {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promReg)
	a := &app{
		cfg:       cfg,
		log:       log,
		promReg:   promReg,
		metrics:   m,
		scheduler: sampler.NewScheduler(cfg.Sampler.MinimumInterval),
		pool:      workerpool.New(cfg.Sampler.Workers),
		registry:  monitor.NewRegistry(m),
	}
	if sink == nil {
		sink = services.LogSink{Log: log}
	}
	a.sink = sink
	a.publisher = services.NewPublisherSvc(a.registry, sink, cfg.PublishInterval, log)

	opts := monitor.Options{
		Timer:    a.scheduler,
		Executor: a.pool,
		Registry: a.registry,
		Metrics:  m,
		Logger:   log,
		Limits:   cfg.Limits,
	}

	handle := uint32(0)
	for _, s := range cfg.Simulators {
		handle++
		if err := a.addSensor(ctx, s, handle, opts); err != nil {
			a.close()
			return nil, err
		}
	}
	for _, al := range cfg.Alarms {
		handle++
		a.addAlarm(ctx, al, handle, opts)
	}
	return a, nil
}

func (a *app) addSensor(ctx context.Context, s config.Sensor, handle uint32, opts monitor.Options) error {
	target := node.NewVariable(
		ua.NewNodeIDString(namespaceIndex, s.SensorId),
		ua.NewQualifiedName(namespaceIndex, s.SensorId),
		ua.DataValue{StatusCode: ua.BadDataUnavailable},
		s.MinimumSamplingInterval,
	)
	if s.EUHigh > s.EULow {
		target.SetEURange(ua.Range{Low: s.EULow, High: s.EUHigh})
	}
	sim, err := simulators.NewIoTSensorSim(s.SensorId, s.Mean, s.Std, s.DelayMin, s.DelayMax, s.Randomize, target)
	if err != nil {
		return err
	}
	sim.Step()
	a.sims = append(a.sims, sim)

	req, ts, err := s.Item.Request(target.NodeID(), handle)
	if err != nil {
		return errors.Wrapf(err, "sensor %q", s.SensorId)
	}
	a.create(ctx, target, req, ts, opts)
	return nil
}

func (a *app) addAlarm(ctx context.Context, al config.Alarm, handle uint32, opts monitor.Options) {
	target := node.NewObject(
		ua.NewNodeIDString(namespaceIndex, al.ObjectId),
		ua.NewQualifiedName(namespaceIndex, al.ObjectId),
		ua.EventNotifierSubscribeToEvents,
	)
	a.sims = append(a.sims, simulators.NewAlarmSim(target, al.Interval, al.SeverityMin, al.SeverityMax))

	req := ua.MonitoredItemCreateRequest{
		ItemToMonitor:  ua.ReadValueID{NodeID: target.NodeID(), AttributeID: ua.AttributeIDEventNotifier},
		MonitoringMode: ua.MonitoringModeReporting,
		RequestedParameters: ua.MonitoringParameters{
			ClientHandle:  handle,
			Filter:        ua.EventFilter{SelectClauses: ua.BaseEventSelectClauses},
			QueueSize:     al.QueueSize,
			DiscardOldest: true,
		},
	}
	a.create(ctx, target, req, ua.TimestampsToReturnBoth, opts)
}

func (a *app) create(ctx context.Context, n node.Node, req ua.MonitoredItemCreateRequest, ts ua.TimestampsToReturn, opts monitor.Options) {
	mi, res := monitor.Create(ctx, n, req, ts, opts)
	entry := a.log.WithField("nodeId", n.NodeID())
	if mi == nil {
		entry.WithField("status", res.StatusCode).Errorln("Monitored item rejected ⛔")
		return
	}
	entry.WithFields(logrus.Fields{
		"monitoredItemId":  res.MonitoredItemID,
		"samplingInterval": res.RevisedSamplingInterval,
		"queueSize":        res.RevisedQueueSize,
	}).Infoln("Monitored item created ✅")
	a.items = append(a.items, mi)
}

// run starts simulators and the publish loop and blocks until ctx is done.
func (a *app) run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, s := range a.sims {
		s.Run(ctx, &wg, a.log)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.publisher.Run(ctx)
	}()
	<-ctx.Done()
	wg.Wait()
}

// close disposes every item, stops sampling and flushes what is left.
func (a *app) close() {
	for _, mi := range a.items {
		mi.Terminate()
	}
	a.scheduler.Close()
	a.pool.StopWait()
	if _, err := a.publisher.PublishOnce(context.Background()); err != nil {
		a.log.WithError(err).Warnln("Final publish incomplete ⛔")
	}
	for _, mi := range a.items {
		mi.Dispose()
	}
}
