package services

import (
	"context"
	"fmt"
	"time"

	"github.com/amine-amaach/simulators/uaMonitor/internal/monitor"
	"github.com/amine-amaach/simulators/uaMonitor/internal/ports"
	"github.com/amine-amaach/simulators/uaMonitor/internal/services/models"
	"github.com/sirupsen/logrus"
)

// MultiSink fans messages out to several sinks.
type MultiSink []ports.SinkPort

func (m MultiSink) Publish(ctx context.Context, msgs []models.Message) error {
	var firstErr error
	for _, s := range m {
		if err := s.Publish(ctx, msgs); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m MultiSink) Close(ctx context.Context) {
	for _, s := range m {
		s.Close(ctx)
	}
}

// PublisherSvc plays the publish cycle of a subscription: it periodically
// drains every reporting item of a registry into a sink.
type PublisherSvc struct {
	Registry *monitor.Registry
	Sink     ports.SinkPort
	Interval time.Duration
	Log      logrus.FieldLogger
}

func NewPublisherSvc(registry *monitor.Registry, sink ports.SinkPort, interval time.Duration, log logrus.FieldLogger) *PublisherSvc {
	return &PublisherSvc{
		Registry: registry,
		Sink:     sink,
		Interval: interval,
		Log:      log,
	}
}

// PublishOnce drains the items once and returns how many messages were sent.
func (p *PublisherSvc) PublishOnce(ctx context.Context) (int, error) {
	var msgs []models.Message
	for _, mi := range p.Registry.Items() {
		if !mi.HasNotifications() {
			continue
		}
		name := fmt.Sprint(mi.ItemToMonitor().NodeID)
		for _, n := range mi.ExtractNotifications() {
			if msg, ok := models.NewMessage(mi.ID(), name, n); ok {
				msgs = append(msgs, msg)
			}
		}
	}
	if len(msgs) == 0 {
		return 0, nil
	}
	return len(msgs), p.Sink.Publish(ctx, msgs)
}

// Run publishes every Interval until ctx is done.
func (p *PublisherSvc) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := p.PublishOnce(ctx)
			if err != nil {
				p.Log.WithError(err).Warnln("Publish cycle incomplete ⛔")
				continue
			}
			if count > 0 {
				p.Log.WithField("Notifications", count).Debugln("Publish cycle done ✅")
			}
		}
	}
}
