package simulators

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/amine-amaach/simulators/uaMonitor/internal/node"
	"github.com/awcullen/opcua/ua"
	nanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// IoTSensorSim drives the value of a variable node with a gaussian random walk
// around a mean.
type IoTSensorSim struct {
	// Sensor Id
	SensorId string
	// sensor data mean value
	mean float64
	// sensor data standard deviation value
	standardDeviation float64
	// sensor data current value
	currentValue float64

	// Delay between each data point
	delayMin time.Duration
	delayMax time.Duration
	// Randomize delay between data points if true,
	// otherwise delayMin will be set as fixed delay
	randomize bool

	target *node.Variable
	rnd    *rand.Rand

	mu        sync.Mutex
	isRunning bool
}

// NewIoTSensorSim returns a simulator writing into target. An empty id is
// replaced by a generated one. Delays are in milliseconds.
func NewIoTSensorSim(
	id string,
	mean,
	standardDeviation float64,
	delayMin,
	delayMax uint32,
	randomize bool,
	target *node.Variable,
) (*IoTSensorSim, error) {
	if id == "" {
		generated, err := nanoid.New()
		if err != nil {
			return nil, errors.Wrap(err, "unable to auto-generate sensor id")
		}
		id = "Sensor::" + generated
	}
	if delayMin == 0 {
		delayMin = 1
	}
	if delayMax < delayMin {
		delayMax = delayMin
	}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &IoTSensorSim{
		SensorId:          id,
		mean:              mean,
		standardDeviation: math.Abs(standardDeviation),
		currentValue:      mean - rnd.Float64(),
		delayMin:          time.Duration(delayMin) * time.Millisecond,
		delayMax:          time.Duration(delayMax) * time.Millisecond,
		randomize:         randomize,
		target:            target,
		rnd:               rnd,
	}, nil
}

// CalculateNextValue advances the walk by one step.
func (s *IoTSensorSim) CalculateNextValue() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	// first calculate how much the value will be changed
	valueChange := s.rnd.Float64() * s.standardDeviation / 10
	// second decide if the value is increased or decreased
	s.currentValue += valueChange * s.decideFactor()
	return s.currentValue
}

func (s *IoTSensorSim) decideFactor() float64 {
	var (
		continueDirection, changeDirection float64
		distance                           float64 // the distance from the mean.
	)
	if s.currentValue > s.mean {
		distance = s.currentValue - s.mean
		continueDirection = 1
		changeDirection = -1
	} else {
		distance = s.mean - s.currentValue
		continueDirection = -1
		changeDirection = 1
	}
	// Half the standard deviation gives a 50/50 chance at the mean; the
	// further away the value drifts, the likelier it turns back.
	chance := (s.standardDeviation / 2) - (distance / 50)
	randomValue := s.standardDeviation * s.rnd.Float64()
	if randomValue < chance {
		return continueDirection
	}
	return changeDirection
}

// UpdateSensorParams recenters the walk.
func (s *IoTSensorSim) UpdateSensorParams(mean, standardDeviation float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mean = mean
	s.currentValue = mean - s.rnd.Float64()
	s.standardDeviation = math.Abs(standardDeviation)
}

// Step writes the next value into the target node.
func (s *IoTSensorSim) Step() {
	t := time.Now().UTC()
	s.target.SetValue(ua.NewDataValue(s.CalculateNextValue(), ua.Good, t, 0, t, 0))
}

func (s *IoTSensorSim) nextDelay() time.Duration {
	if !s.randomize || s.delayMax == s.delayMin {
		return s.delayMin
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delayMin + time.Duration(s.rnd.Int63n(int64(s.delayMax-s.delayMin)))
}

// Run updates the node until ctx is done. wg is released on exit.
func (s *IoTSensorSim) Run(ctx context.Context, wg *sync.WaitGroup, log logrus.FieldLogger) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		log.WithField("Sensor Id", s.SensorId).Debugln("Already running 🔔")
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()
		log.WithField("Sensor Id", s.SensorId).Debugln("Started running 🔔")
		s.Step()
		for {
			select {
			case <-ctx.Done():
				log.WithField("Sensor Id", s.SensorId).Debugln("Got shutdown signal 🔔")
				return
			case <-time.After(s.nextDelay()):
				s.Step()
			}
		}
	}()
}

// IsRunning reports whether Run is active.
func (s *IoTSensorSim) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
