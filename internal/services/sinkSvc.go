package services

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/amine-amaach/simulators/uaMonitor/internal/config"
	"github.com/amine-amaach/simulators/uaMonitor/internal/ports"
	"github.com/amine-amaach/simulators/uaMonitor/internal/services/models"
	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	nanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	_ ports.SinkPort = LogSink{}
	_ ports.SinkPort = (*MqttSinkSvc)(nil)
	_ ports.SinkPort = MultiSink(nil)
)

// LogSink writes every message to the logger.
type LogSink struct {
	Log logrus.FieldLogger
}

func (s LogSink) Publish(_ context.Context, msgs []models.Message) error {
	for _, m := range msgs {
		entry := s.Log.WithFields(logrus.Fields{
			"ItemId":       m.ItemId,
			"ItemName":     m.ItemName,
			"ClientHandle": m.ClientHandle,
		})
		if m.Kind == models.KindEvent {
			entry.WithField("EventFields", m.EventFields).Infoln("Event notification 🔔")
			continue
		}
		entry.WithFields(logrus.Fields{
			"ItemValue":  m.ItemValue,
			"StatusCode": m.StatusCode,
			"Overflow":   m.Overflow,
		}).Infoln("Data change notification 🔔")
	}
	return nil
}

func (s LogSink) Close(context.Context) {}

// MqttSinkSvc publishes each message as JSON to <topic>/<item name>.
type MqttSinkSvc struct {
	Log        logrus.FieldLogger
	Topic      string
	QoS        byte
	MqttClient ports.MqttPort
}

// NewMqttSinkSvc starts an MQTT session for the sink. The connection is
// established in the background; publishing waits for it.
func NewMqttSinkSvc(ctx context.Context, cfg config.MqttSink, log logrus.FieldLogger) (*MqttSinkSvc, error) {
	connectTimeout, err := time.ParseDuration(cfg.ConnectTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse connect timeout duration string")
	}

	srvURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse server URL [%s]", cfg.URL)
	}

	cliId := cfg.ClientID
	if cliId == "" {
		cliId, err = nanoid.New()
		if err != nil {
			return nil, errors.Wrap(err, "unable to auto-generate client id")
		}
		cliId = "uaMonitor::" + cliId
	}

	cliCfg := autopaho.ClientConfig{
		BrokerUrls:        []*url.URL{srvURL},
		KeepAlive:         cfg.KeepAlive,
		ConnectRetryDelay: time.Duration(cfg.ConnectRetry) * time.Second,
		ConnectTimeout:    connectTimeout,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, c *paho.Connack) {
			log.Infoln("MQTT connection up ✅")
		},
		OnConnectError: func(err error) {
			log.Errorf("Error whilst attempting connection %s ⛔\n", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: cliId,
			OnClientError: func(err error) {
				log.Errorf("Server requested disconnect: %s ⛔\n", err)
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				if d.Properties != nil {
					log.Errorf("Server requested disconnect: %s ⛔\n", d.Properties.ReasonString)
				} else {
					log.Errorf("Server requested disconnect; reason code : %d ⛔\n", d.ReasonCode)
				}
			},
		},
	}
	if cfg.User != "" {
		cliCfg.SetUsernamePassword(cfg.User, []byte(cfg.Password))
	}

	log.Infof("Trying to establish an MQTT Session to %v 🔔\n", cliCfg.BrokerUrls)
	cm, err := autopaho.NewConnection(ctx, cliCfg)
	if err != nil {
		return nil, errors.Wrap(err, "unable to start MQTT connection")
	}
	return &MqttSinkSvc{
		Log:        log.WithField("ClientId", cliId),
		Topic:      cfg.Topic,
		QoS:        cfg.QoS,
		MqttClient: cm,
	}, nil
}

func (s *MqttSinkSvc) Publish(ctx context.Context, msgs []models.Message) error {
	var firstErr error
	for _, m := range msgs {
		m.ItemTopic = s.Topic + "/" + m.ItemName
		payload, err := json.Marshal(m)
		if err != nil {
			s.Log.WithField("ItemId", m.ItemId).Errorln("Couldn't marshal message payload ⛔")
			if firstErr == nil {
				firstErr = errors.Wrap(err, "marshal notification")
			}
			continue
		}
		_, err = s.MqttClient.Publish(ctx, &paho.Publish{
			QoS:     s.QoS,
			Topic:   m.ItemTopic,
			Payload: payload,
		})
		if err != nil {
			s.Log.WithFields(logrus.Fields{"Topic": m.ItemTopic, "Err": err}).Warnln("Couldn't publish notification to the broker ⛔")
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "publish to %s", m.ItemTopic)
			}
		}
	}
	return firstErr
}

func (s *MqttSinkSvc) Close(ctx context.Context) {
	s.Log.Debugln("Closing MQTT connection.. 🔔")
	if err := s.MqttClient.Disconnect(ctx); err == nil {
		s.Log.Infoln("MQTT connection closed ✅")
	}
}
