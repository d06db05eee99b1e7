package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) ObserveHTTPRequest(string, string, int, time.Duration) {}

func (n *NoopRecorder) IncBillCreated() {}

func (n *NoopRecorder) IncBillUpdated(string) {}

func (n *NoopRecorder) ObserveListDuration(time.Duration) {}

func (n *NoopRecorder) IncReceiversCacheHit() {}

func (n *NoopRecorder) IncReceiversCacheMiss() {}

func (n *NoopRecorder) IncEventPublished(string, string) {}
