package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "debug", "json", true)
	assert.Equal(t, logrus.DebugLevel, log.Level)

	log.WithField("nodeId", "ns=2;s=Boiler").Debugln("sampled")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "sampled", entry["msg"])
	assert.Equal(t, "ns=2;s=Boiler", entry["nodeId"])
	assert.NotContains(t, entry, "time")
}

func TestNewLoggerDefaults(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "LOUD", "yaml", false)
	assert.Equal(t, logrus.InfoLevel, log.Level)
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
	assert.Contains(t, buf.String(), "Unknown log level")
}
