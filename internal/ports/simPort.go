package ports

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// SimulatorPort drives a simulated node until ctx is done. Run registers its
// goroutine with wg.
type SimulatorPort interface {
	Run(ctx context.Context, wg *sync.WaitGroup, log logrus.FieldLogger)
}
