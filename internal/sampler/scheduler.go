// Package sampler coalesces periodic sampling of many monitored items onto one
// ticker per distinct sampling interval.
package sampler

import (
	"sync"
	"time"
)

// Listener is polled on every tick of the group it is registered with.
type Listener interface {
	Poll()
}

// Handle identifies one registration.
type Handle uint64

// Scheduler buckets listeners into PollGroups keyed by interval.
type Scheduler struct {
	sync.Mutex
	tickers             map[time.Duration]*PollGroup
	handles             map[Handle]*PollGroup
	next                Handle
	minSamplingInterval time.Duration
	closed              bool
}

// NewScheduler returns a scheduler that never ticks faster than minSamplingInterval.
func NewScheduler(minSamplingInterval time.Duration) *Scheduler {
	return &Scheduler{
		tickers:             make(map[time.Duration]*PollGroup),
		handles:             make(map[Handle]*PollGroup),
		minSamplingInterval: minSamplingInterval,
	}
}

// Register adds listener to the group ticking at interval and returns the
// handle to unregister it with.
func (s *Scheduler) Register(interval time.Duration, listener Listener) Handle {
	s.Lock()
	defer s.Unlock()
	if interval < s.minSamplingInterval {
		interval = s.minSamplingInterval
	}
	s.next++
	h := s.next
	if s.closed {
		return h
	}
	g, ok := s.tickers[interval]
	if !ok {
		g = newPollGroup(interval)
		s.tickers[interval] = g
	}
	g.subscribe(h, listener)
	s.handles[h] = g
	return h
}

// Unregister stops future polls of the registration. A group left without
// listeners stops its ticker.
func (s *Scheduler) Unregister(h Handle) {
	s.Lock()
	defer s.Unlock()
	g, ok := s.handles[h]
	if !ok {
		return
	}
	delete(s.handles, h)
	if g.unsubscribe(h) == 0 {
		g.close()
		delete(s.tickers, g.interval)
	}
}

// Kick polls the registration on its group's goroutine as soon as possible,
// without waiting for the next tick.
func (s *Scheduler) Kick(h Handle) {
	s.Lock()
	g, ok := s.handles[h]
	s.Unlock()
	if ok {
		g.kick(h)
	}
}

// Groups returns the number of running poll groups.
func (s *Scheduler) Groups() int {
	s.Lock()
	defer s.Unlock()
	return len(s.tickers)
}

// Close stops every poll group. Later registrations are never polled.
func (s *Scheduler) Close() {
	s.Lock()
	defer s.Unlock()
	s.closed = true
	for interval, g := range s.tickers {
		g.close()
		delete(s.tickers, interval)
	}
	for h := range s.handles {
		delete(s.handles, h)
	}
}

// PollGroup polls its listeners from a single goroutine. A listener is never
// polled concurrently with itself.
type PollGroup struct {
	sync.Mutex
	interval time.Duration
	subs     map[Handle]Listener
	pending  map[Handle]struct{}
	wake     chan struct{}
	done     chan struct{}
}

func newPollGroup(interval time.Duration) *PollGroup {
	b := &PollGroup{
		interval: interval,
		subs:     map[Handle]Listener{},
		pending:  map[Handle]struct{}{},
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *PollGroup) run() {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-b.wake:
			b.Lock()
			listeners := make([]Listener, 0, len(b.pending))
			for h := range b.pending {
				if l, ok := b.subs[h]; ok {
					listeners = append(listeners, l)
				}
				delete(b.pending, h)
			}
			b.Unlock()
			for _, listener := range listeners {
				listener.Poll()
			}
		case <-ticker.C:
			b.Lock()
			listeners := make([]Listener, 0, len(b.subs))
			for _, l := range b.subs {
				listeners = append(listeners, l)
			}
			b.Unlock()
			for _, listener := range listeners {
				listener.Poll()
			}
		}
	}
}

func (b *PollGroup) subscribe(h Handle, listener Listener) {
	b.Lock()
	b.subs[h] = listener
	b.Unlock()
}

func (b *PollGroup) unsubscribe(h Handle) int {
	b.Lock()
	defer b.Unlock()
	delete(b.subs, h)
	delete(b.pending, h)
	return len(b.subs)
}

func (b *PollGroup) kick(h Handle) {
	b.Lock()
	b.pending[h] = struct{}{}
	b.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *PollGroup) close() {
	close(b.done)
}
