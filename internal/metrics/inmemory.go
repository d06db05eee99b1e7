package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	HTTPRequests         uint64
	BillsCreated         uint64
	BillsUpdated         map[string]uint64
	ListDurationCount    uint64
	ListDurationTotalNs  int64
	ReceiversCacheHits   uint64
	ReceiversCacheMisses uint64
	EventsPublished      map[string]uint64 // keyed by "type/status"
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	httpRequests         uint64
	billsCreated         uint64
	listDurationCount    uint64
	listDurationTotalNs  int64
	receiversCacheHits   uint64
	receiversCacheMisses uint64

	mu              sync.Mutex
	billsUpdated    map[string]uint64
	eventsPublished map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		billsUpdated:    make(map[string]uint64),
		eventsPublished: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	updated := make(map[string]uint64, len(m.billsUpdated))
	for k, v := range m.billsUpdated {
		updated[k] = v
	}
	events := make(map[string]uint64, len(m.eventsPublished))
	for k, v := range m.eventsPublished {
		events[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		HTTPRequests:         atomic.LoadUint64(&m.httpRequests),
		BillsCreated:         atomic.LoadUint64(&m.billsCreated),
		BillsUpdated:         updated,
		ListDurationCount:    atomic.LoadUint64(&m.listDurationCount),
		ListDurationTotalNs:  atomic.LoadInt64(&m.listDurationTotalNs),
		ReceiversCacheHits:   atomic.LoadUint64(&m.receiversCacheHits),
		ReceiversCacheMisses: atomic.LoadUint64(&m.receiversCacheMisses),
		EventsPublished:      events,
	}
}

// ObserveHTTPRequest counts a served request.
func (m *InMemoryRecorder) ObserveHTTPRequest(string, string, int, time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
}

// IncBillCreated increments bill created counter.
func (m *InMemoryRecorder) IncBillCreated() {
	atomic.AddUint64(&m.billsCreated, 1)
}

// IncBillUpdated increments the update counter for field.
func (m *InMemoryRecorder) IncBillUpdated(field string) {
	m.mu.Lock()
	m.billsUpdated[field]++
	m.mu.Unlock()
}

// ObserveListDuration records a bill listing duration.
func (m *InMemoryRecorder) ObserveListDuration(duration time.Duration) {
	atomic.AddUint64(&m.listDurationCount, 1)
	atomic.AddInt64(&m.listDurationTotalNs, duration.Nanoseconds())
}

// IncReceiversCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncReceiversCacheHit() {
	atomic.AddUint64(&m.receiversCacheHits, 1)
}

// IncReceiversCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncReceiversCacheMiss() {
	atomic.AddUint64(&m.receiversCacheMisses, 1)
}

// IncEventPublished counts a publish attempt.
func (m *InMemoryRecorder) IncEventPublished(eventType, status string) {
	m.mu.Lock()
	m.eventsPublished[eventType+"/"+status]++
	m.mu.Unlock()
}
