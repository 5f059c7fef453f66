package monitor

import (
	"sort"
	"sync"

	"github.com/amine-amaach/simulators/uaMonitor/internal/metrics"
)

// Registry assigns monitored item ids and tracks live items. Each subscription
// layer owns one; items join it in New and leave it in Dispose.
type Registry struct {
	mu      sync.Mutex
	next    uint32
	items   map[uint32]*MonitoredItem
	metrics *metrics.Metrics
}

func NewRegistry(m *metrics.Metrics) *Registry {
	if m == nil {
		m = metrics.New(nil)
	}
	return &Registry{
		items:   make(map[uint32]*MonitoredItem),
		metrics: m,
	}
}

func (r *Registry) register(mi *MonitoredItem) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.items[r.next] = mi
	r.metrics.ItemsLive.Inc()
	return r.next
}

func (r *Registry) unregister(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return
	}
	delete(r.items, id)
	r.metrics.ItemsLive.Dec()
}

// Get returns the live item with the given id.
func (r *Registry) Get(id uint32) (*MonitoredItem, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mi, ok := r.items[id]
	return mi, ok
}

// Len returns the number of live items.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Items returns the live items ordered by id.
func (r *Registry) Items() []*MonitoredItem {
	r.mu.Lock()
	ids := make([]uint32, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*MonitoredItem, len(ids))
	for i, id := range ids {
		out[i] = r.items[id]
	}
	r.mu.Unlock()
	return out
}
