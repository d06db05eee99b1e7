// Package metrics provides instrumentation hooks for the bill API.
package metrics

import "time"

// Update fields reported by IncBillUpdated.
const (
	FieldPaid       = "paid"
	FieldPaymentRef = "payment_ref"
)

// Recorder captures metric events for the application.
type Recorder interface {
	// HTTP metrics. route is the chi route pattern, never the raw path.
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)

	// Bill metrics
	IncBillCreated()
	IncBillUpdated(field string)
	ObserveListDuration(duration time.Duration)

	// Cache metrics
	IncReceiversCacheHit()
	IncReceiversCacheMiss()

	// Event metrics. status: "success" or "failed".
	IncEventPublished(eventType, status string)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
