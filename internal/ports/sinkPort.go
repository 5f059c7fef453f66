package ports

import (
	"context"

	"github.com/amine-amaach/simulators/uaMonitor/internal/services/models"
	"github.com/eclipse/paho.golang/paho"
)

// SinkPort receives the notifications drained in one publish cycle.
type SinkPort interface {
	Publish(ctx context.Context, msgs []models.Message) error
	Close(ctx context.Context)
}

// MqttPort is the subset of autopaho.ConnectionManager the MQTT sink uses.
type MqttPort interface {
	Publish(ctx context.Context, p *paho.Publish) (*paho.PublishResponse, error)
	Disconnect(ctx context.Context) error
}
