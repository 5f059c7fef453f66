package simulators

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/amine-amaach/simulators/uaMonitor/internal/node"
	"github.com/awcullen/opcua/ua"
	"github.com/bxcodec/faker/v3"
	"github.com/sirupsen/logrus"
)

// AlarmSim raises BaseEvents with random severity and text from an object node.
type AlarmSim struct {
	target      *node.Object
	interval    time.Duration
	severityMin uint16
	severityMax uint16
	rnd         *rand.Rand
}

func NewAlarmSim(target *node.Object, interval time.Duration, severityMin, severityMax uint16) *AlarmSim {
	if severityMin < 1 {
		severityMin = 1
	}
	if severityMax > 1000 {
		severityMax = 1000
	}
	if severityMax < severityMin {
		severityMax = severityMin
	}
	return &AlarmSim{
		target:      target,
		interval:    interval,
		severityMin: severityMin,
		severityMax: severityMax,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Raise emits one event and returns it.
func (a *AlarmSim) Raise() *ua.BaseEvent {
	severity := a.severityMin + uint16(a.rnd.Intn(int(a.severityMax-a.severityMin)+1))
	evt := a.target.NewBaseEvent(ua.ObjectTypeIDBaseEventType, faker.Sentence(), severity)
	a.target.EmitEvent(evt)
	return evt
}

// Run raises an event every interval until ctx is done.
func (a *AlarmSim) Run(ctx context.Context, wg *sync.WaitGroup, log logrus.FieldLogger) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				evt := a.Raise()
				log.WithFields(logrus.Fields{
					"Object":   a.target.BrowseName().Name,
					"Severity": evt.Severity,
				}).Debugln("Event raised 🔔")
			}
		}
	}()
}
