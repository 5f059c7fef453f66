package config

import (
	"bytes"
	"strings"
	"time"

	"github.com/amine-amaach/simulators/uaMonitor/internal/monitor"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. UAMONITOR_LOGGER_LEVEL.
const EnvPrefix = "UAMONITOR"

type Cfg struct {
	Limits          monitor.Limits `mapstructure:"limits"`
	Sampler         Sampler        `mapstructure:"sampler"`
	LoggerConfig    Logger         `mapstructure:"logger"`
	Simulators      []Sensor       `mapstructure:"simulators"`
	Alarms          []Alarm        `mapstructure:"alarms"`
	PublishInterval time.Duration  `mapstructure:"publish_interval"`
	Prometheus      Prometheus     `mapstructure:"prometheus"`
	MqttSink        MqttSink       `mapstructure:"mqtt_sink"`
}

type Sampler struct {
	// Workers bounds concurrent sampling reads.
	Workers         int           `mapstructure:"workers"`
	MinimumInterval time.Duration `mapstructure:"minimum_interval"`
}

type Logger struct {
	Level            string `mapstructure:"level"`
	Format           string `mapstructure:"format"`
	DisableTimestamp bool   `mapstructure:"disable_timestamp"`
}

// Sensor is a simulated analog variable and the monitored item watching it.
// DelayMin and DelayMax are in milliseconds.
type Sensor struct {
	SensorId                string  `mapstructure:"sensor_id"`
	Mean                    float64 `mapstructure:"mean"`
	Std                     float64 `mapstructure:"standard_deviation"`
	DelayMin                uint32  `mapstructure:"delay_min"`
	DelayMax                uint32  `mapstructure:"delay_max"`
	Randomize               bool    `mapstructure:"randomize"`
	EULow                   float64 `mapstructure:"eu_low"`
	EUHigh                  float64 `mapstructure:"eu_high"`
	MinimumSamplingInterval float64 `mapstructure:"minimum_sampling_interval"`
	Item                    Item    `mapstructure:"item"`
}

// Item holds the monitoring parameters requested for a node.
type Item struct {
	Mode             string  `mapstructure:"mode"`
	SamplingInterval float64 `mapstructure:"sampling_interval"`
	QueueSize        uint32  `mapstructure:"queue_size"`
	DiscardOldest    bool    `mapstructure:"discard_oldest"`
	Timestamps       string  `mapstructure:"timestamps"`
	Trigger          string  `mapstructure:"trigger"`
	DeadbandType     string  `mapstructure:"deadband_type"`
	DeadbandValue    float64 `mapstructure:"deadband_value"`
	IndexRange       string  `mapstructure:"index_range"`
}

// Alarm is a simulated object raising events.
type Alarm struct {
	ObjectId    string        `mapstructure:"object_id"`
	Interval    time.Duration `mapstructure:"interval"`
	SeverityMin uint16        `mapstructure:"severity_min"`
	SeverityMax uint16        `mapstructure:"severity_max"`
	QueueSize   uint32        `mapstructure:"queue_size"`
}

type Prometheus struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	// Users protect the metrics endpoint with basic auth when not empty.
	Users []User `mapstructure:"users"`
}

type User struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type MqttSink struct {
	Enabled        bool   `mapstructure:"enabled"`
	URL            string `mapstructure:"url"`
	Topic          string `mapstructure:"topic"`
	QoS            uint8  `mapstructure:"qos"`
	ClientID       string `mapstructure:"client_id"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	KeepAlive      uint16 `mapstructure:"keep_alive"`
	ConnectTimeout string `mapstructure:"connect_timeout"`
	// Seconds between connection attempts.
	ConnectRetry int64 `mapstructure:"connect_retry"`
}

// GetConfigs loads the configuration. The built-in defaults are merged first,
// then the file at path, or config.json from ./configs/ or /configs/ when
// path is empty, then UAMONITOR_* environment variables. A missing default
// location is not an error.
func GetConfigs(path string, log logrus.FieldLogger) (Cfg, error) {
	var configs Cfg
	v := viper.New()
	v.SetConfigType("json")

	if err := v.MergeConfig(bytes.NewReader(defaultConfig)); err != nil {
		return configs, errors.Wrap(err, "unable to load default configs")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs/")
		v.AddConfigPath("/configs/")
	}

	if err := v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && path == "" {
			log.Warnln("Config file not found! using default configs 🔔")
		} else {
			return configs, errors.Wrap(err, "unable to read config file")
		}
	} else {
		log.WithField("file", v.ConfigFileUsed()).Infoln("Config file found ✅")
	}

	if err := v.Unmarshal(&configs); err != nil {
		return configs, errors.Wrap(err, "unable to unmarshal configs")
	}
	if err := configs.validate(); err != nil {
		return configs, err
	}
	log.Debugln("Configs parsed successfully ✅")
	return configs, nil
}

func (c Cfg) validate() error {
	if c.PublishInterval <= 0 {
		return errors.Errorf("publish_interval must be positive, got %s", c.PublishInterval)
	}
	if c.Sampler.Workers < 1 {
		return errors.Errorf("sampler.workers must be at least 1, got %d", c.Sampler.Workers)
	}
	l := c.Limits
	if l.MinimumSamplingInterval < 0 || l.MaximumSamplingInterval < l.MinimumSamplingInterval {
		return errors.Errorf("invalid sampling limits [%v, %v]", l.MinimumSamplingInterval, l.MaximumSamplingInterval)
	}
	seen := map[string]bool{}
	for _, s := range c.Simulators {
		if s.SensorId != "" && seen[s.SensorId] {
			return errors.Errorf("duplicate sensor_id %q", s.SensorId)
		}
		seen[s.SensorId] = true
		if s.DelayMax < s.DelayMin {
			return errors.Errorf("sensor %q: delay_max is lower than delay_min", s.SensorId)
		}
	}
	for _, a := range c.Alarms {
		if a.Interval <= 0 {
			return errors.Errorf("alarm %q: interval must be positive", a.ObjectId)
		}
	}
	if c.MqttSink.Enabled && c.MqttSink.URL == "" {
		return errors.New("mqtt_sink.url is required when the sink is enabled")
	}
	return nil
}

var defaultConfig = []byte(`
{
	"limits": {
		"minimum_sampling_interval": 50,
		"maximum_sampling_interval": 3600000,
		"default_sampling_interval": 1500
	},

	"sampler": {
		"workers": 4,
		"minimum_interval": "50ms"
	},

	"logger": {
		"level": "INFO",
		"format": "TEXT",
		"disable_timestamp": false
	},

	"simulators": [
		{
			"sensor_id": "Temperature",
			"mean": 30.6,
			"standard_deviation": 3.1,
			"delay_min": 200,
			"delay_max": 800,
			"randomize": true,
			"eu_low": -20,
			"eu_high": 120,
			"item": {
				"mode": "reporting",
				"sampling_interval": 0,
				"queue_size": 10,
				"discard_oldest": true,
				"timestamps": "both",
				"trigger": "status_value",
				"deadband_type": "absolute",
				"deadband_value": 0.2
			}
		},
		{
			"sensor_id": "Pressure",
			"mean": 80.0,
			"standard_deviation": 7.0,
			"delay_min": 100,
			"delay_max": 100,
			"randomize": false,
			"eu_low": 0,
			"eu_high": 200,
			"minimum_sampling_interval": 250,
			"item": {
				"mode": "reporting",
				"sampling_interval": 500,
				"queue_size": 5,
				"discard_oldest": true,
				"timestamps": "source",
				"trigger": "status_value",
				"deadband_type": "percent",
				"deadband_value": 1
			}
		}
	],

	"alarms": [
		{
			"object_id": "Boiler",
			"interval": "5s",
			"severity_min": 100,
			"severity_max": 900,
			"queue_size": 20
		}
	],

	"publish_interval": "1s",

	"prometheus": {
		"enabled": true,
		"address": ":8080",
		"users": []
	},

	"mqtt_sink": {
		"enabled": false,
		"url": "tcp://broker.emqx.io:1883",
		"topic": "uamonitor/notifications",
		"qos": 1,
		"client_id": "",
		"user": "",
		"password": "",
		"keep_alive": 10,
		"connect_timeout": "10s",
		"connect_retry": 5
	}
}
`)
