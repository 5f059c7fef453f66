package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/awcullen/opcua/ua"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigsDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	logger, hook := test.NewNullLogger()

	cfg, err := GetConfigs("", logger)
	require.NoError(t, err)
	assert.Equal(t, 50.0, cfg.Limits.MinimumSamplingInterval)
	assert.Equal(t, 4, cfg.Sampler.Workers)
	assert.Equal(t, 50*time.Millisecond, cfg.Sampler.MinimumInterval)
	assert.Equal(t, time.Second, cfg.PublishInterval)
	require.Len(t, cfg.Simulators, 2)
	assert.Equal(t, "Temperature", cfg.Simulators[0].SensorId)
	assert.Equal(t, uint32(10), cfg.Simulators[0].Item.QueueSize)
	require.Len(t, cfg.Alarms, 1)
	assert.Equal(t, 5*time.Second, cfg.Alarms[0].Interval)
	assert.False(t, cfg.MqttSink.Enabled)
	assert.Contains(t, hook.LastEntry().Message, "Config file not found")
}

func TestGetConfigsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "uamonitor.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"publish_interval": "250ms",
		"logger": {"level": "DEBUG"},
		"simulators": [{"sensor_id": "Flow", "mean": 3, "standard_deviation": 1, "delay_min": 10, "delay_max": 20}]
	}`), 0o600))
	t.Setenv("UAMONITOR_LOGGER_FORMAT", "JSON")

	logger, _ := test.NewNullLogger()
	cfg, err := GetConfigs(path, logger)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.PublishInterval)
	assert.Equal(t, "DEBUG", cfg.LoggerConfig.Level)
	assert.Equal(t, "JSON", cfg.LoggerConfig.Format)
	require.Len(t, cfg.Simulators, 1)
	assert.Equal(t, "Flow", cfg.Simulators[0].SensorId)
	assert.Equal(t, 4, cfg.Sampler.Workers)
}

func TestGetConfigsErrors(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := GetConfigs(filepath.Join(t.TempDir(), "missing.json"), logger)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"publish_interval": "0s"}`), 0o600))
	_, err = GetConfigs(path, logger)
	assert.ErrorContains(t, err, "publish_interval")

	require.NoError(t, os.WriteFile(path, []byte(`{"mqtt_sink": {"enabled": true, "url": ""}}`), 0o600))
	_, err = GetConfigs(path, logger)
	assert.ErrorContains(t, err, "mqtt_sink.url")
}

func TestItemRequest(t *testing.T) {
	nodeID := ua.NewNodeIDString(2, "Temperature")
	item := Item{
		Mode:             "sampling",
		SamplingInterval: 250,
		QueueSize:        4,
		DiscardOldest:    true,
		Timestamps:       "source",
		DeadbandType:     "percent",
		DeadbandValue:    2.5,
		IndexRange:       "1:2",
	}
	req, ts, err := item.Request(nodeID, 3)
	require.NoError(t, err)
	assert.Equal(t, ua.TimestampsToReturnSource, ts)
	assert.Equal(t, ua.MonitoringModeSampling, req.MonitoringMode)
	assert.Equal(t, ua.ReadValueID{NodeID: nodeID, AttributeID: ua.AttributeIDValue, IndexRange: "1:2"}, req.ItemToMonitor)
	assert.Equal(t, uint32(3), req.RequestedParameters.ClientHandle)
	assert.Equal(t, ua.DataChangeFilter{
		Trigger:       ua.DataChangeTriggerStatusValue,
		DeadbandType:  uint32(ua.DeadbandTypePercent),
		DeadbandValue: 2.5,
	}, req.RequestedParameters.Filter)

	req, _, err = Item{}.Request(nodeID, 1)
	require.NoError(t, err)
	assert.Nil(t, req.RequestedParameters.Filter)
	assert.Equal(t, ua.MonitoringModeReporting, req.MonitoringMode)

	_, _, err = Item{Trigger: "sometimes"}.Request(nodeID, 1)
	assert.Error(t, err)
	_, _, err = Item{Mode: "paused"}.Request(nodeID, 1)
	assert.Error(t, err)
	_, _, err = Item{Timestamps: "local"}.Request(nodeID, 1)
	assert.Error(t, err)
}
