package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/amine-amaach/simulators/uaMonitor/internal/monitor"
	"github.com/amine-amaach/simulators/uaMonitor/internal/node"
	"github.com/amine-amaach/simulators/uaMonitor/internal/services/models"
	"github.com/awcullen/opcua/ua"
	"github.com/eclipse/paho.golang/paho"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	mu           sync.Mutex
	published    []*paho.Publish
	fail         bool
	disconnected bool
}

func (f *fakeBroker) Publish(_ context.Context, p *paho.Publish) (*paho.PublishResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("not connected")
	}
	f.published = append(f.published, p)
	return &paho.PublishResponse{}, nil
}

func (f *fakeBroker) Disconnect(context.Context) error {
	f.disconnected = true
	return nil
}

type captureSink struct {
	mu   sync.Mutex
	msgs []models.Message
}

func (c *captureSink) Publish(_ context.Context, msgs []models.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func (c *captureSink) Close(context.Context) {}

func TestNewMessage(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	status := ua.StatusCode(uint32(ua.Good) | uint32(ua.InfoTypeDataValue) | uint32(ua.Overflow))
	msg, ok := models.NewMessage(4, "ns=2;s=Temperature", ua.MonitoredItemNotification{
		ClientHandle: 9,
		Value:        ua.NewDataValue(21.5, status, now, 0, time.Time{}, 0),
	})
	require.True(t, ok)
	assert.Equal(t, models.KindData, msg.Kind)
	assert.Equal(t, uint32(9), msg.ClientHandle)
	assert.Equal(t, 21.5, msg.ItemValue)
	assert.True(t, msg.Overflow)
	assert.False(t, msg.SemanticsChanged)
	assert.Equal(t, "2024-03-01T12:00:00Z", msg.SourceTimestamp)
	assert.Empty(t, msg.ServerTimestamp)

	msg, ok = models.NewMessage(5, "ns=2;s=Boiler", ua.EventFieldList{
		ClientHandle: 3,
		EventFields:  []ua.Variant{ua.NewLocalizedText("Pressure high", ""), uint16(700)},
	})
	require.True(t, ok)
	assert.Equal(t, models.KindEvent, msg.Kind)
	assert.Equal(t, []interface{}{"Pressure high", uint16(700)}, msg.EventFields)

	_, ok = models.NewMessage(1, "x", "not a notification")
	assert.False(t, ok)
}

func TestMqttSinkPublish(t *testing.T) {
	logger, _ := test.NewNullLogger()
	broker := &fakeBroker{}
	sink := &MqttSinkSvc{Log: logger, Topic: "plant/uamonitor", QoS: 1, MqttClient: broker}

	err := sink.Publish(context.Background(), []models.Message{
		{ItemId: 1, ItemName: "Temperature", Kind: models.KindData, ItemValue: 20.5},
	})
	require.NoError(t, err)
	require.Len(t, broker.published, 1)
	p := broker.published[0]
	assert.Equal(t, "plant/uamonitor/Temperature", p.Topic)
	assert.Equal(t, byte(1), p.QoS)

	var decoded models.Message
	require.NoError(t, json.Unmarshal(p.Payload, &decoded))
	assert.Equal(t, "plant/uamonitor/Temperature", decoded.ItemTopic)
	assert.Equal(t, 20.5, decoded.ItemValue)

	broker.fail = true
	err = sink.Publish(context.Background(), []models.Message{{ItemName: "Pressure"}})
	assert.ErrorContains(t, err, "plant/uamonitor/Pressure")

	sink.Close(context.Background())
	assert.True(t, broker.disconnected)
}

func TestLogSink(t *testing.T) {
	logger, hook := test.NewNullLogger()
	err := LogSink{Log: logger}.Publish(context.Background(), []models.Message{
		{ItemId: 1, Kind: models.KindData, ItemValue: 1.0},
		{ItemId: 2, Kind: models.KindEvent, EventFields: []interface{}{"x"}},
	})
	require.NoError(t, err)
	require.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, logrus.InfoLevel, hook.AllEntries()[0].Level)
	assert.Equal(t, 1.0, hook.AllEntries()[0].Data["ItemValue"])
	assert.Contains(t, hook.LastEntry().Message, "Event notification")
}

func TestPublisherDrainsReportingItems(t *testing.T) {
	logger, _ := test.NewNullLogger()
	registry := monitor.NewRegistry(nil)
	opts := monitor.Options{Registry: registry, Logger: logger}

	now := time.Now()
	newVar := func(name string) *node.Variable {
		return node.NewVariable(ua.NewNodeIDString(2, name), ua.NewQualifiedName(2, name), ua.NewDataValue(1.0, ua.Good, now, 0, now, 0), 0)
	}
	req := func(name string, mode ua.MonitoringMode) ua.MonitoredItemCreateRequest {
		return ua.MonitoredItemCreateRequest{
			ItemToMonitor:       ua.ReadValueID{NodeID: ua.NewNodeIDString(2, name), AttributeID: ua.AttributeIDValue},
			MonitoringMode:      mode,
			RequestedParameters: ua.MonitoringParameters{ClientHandle: 1, QueueSize: 5, DiscardOldest: true},
		}
	}
	reporting, res := monitor.Create(context.Background(), newVar("Temperature"), req("Temperature", ua.MonitoringModeReporting), ua.TimestampsToReturnBoth, opts)
	require.Equal(t, ua.Good, res.StatusCode)
	sampling, _ := monitor.Create(context.Background(), newVar("Pressure"), req("Pressure", ua.MonitoringModeSampling), ua.TimestampsToReturnBoth, opts)
	defer reporting.Dispose()
	defer sampling.Dispose()

	require.Eventually(t, reporting.HasNotifications, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return sampling.QueueLen() == 1 }, time.Second, 5*time.Millisecond)

	sink := &captureSink{}
	pub := NewPublisherSvc(registry, MultiSink{sink, LogSink{Log: logger}}, time.Second, logger)
	count, err := pub.PublishOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, sink.msgs, 1)
	assert.Equal(t, "ns=2;s=Temperature", sink.msgs[0].ItemName)
	assert.Equal(t, reporting.ID(), sink.msgs[0].ItemId)

	count, err = pub.PublishOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, 1, sampling.QueueLen())
}

func TestPublisherRunStopsWithContext(t *testing.T) {
	logger, _ := test.NewNullLogger()
	pub := NewPublisherSvc(monitor.NewRegistry(nil), &captureSink{}, time.Millisecond, logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pub.Run(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop")
	}
}
