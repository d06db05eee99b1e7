package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

var (
	_ Recorder    = (*NoopRecorder)(nil)
	_ Recorder    = (*InMemoryRecorder)(nil)
	_ Recorder    = (*PrometheusRecorder)(nil)
	_ Snapshotter = (*InMemoryRecorder)(nil)
)

func TestNoopRecorder_Discards(t *testing.T) {
	t.Parallel()

	m := NewNoop()
	m.ObserveHTTPRequest("GET", "/bills/", 200, time.Millisecond)
	m.IncBillCreated()
	m.IncBillUpdated("paid")
	m.ObserveListDuration(time.Millisecond)
	m.IncReceiversCacheHit()
	m.IncReceiversCacheMiss()
	m.IncEventPublished("bill.created", "ok")

	if _, ok := m.(Snapshotter); ok {
		t.Error("noop recorder should not expose a snapshot")
	}
}

func TestInMemoryRecorder_Snapshot(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncBillCreated()
	m.IncBillUpdated(FieldPaid)
	m.IncBillUpdated(FieldPaid)
	m.IncBillUpdated(FieldPaymentRef)
	m.IncReceiversCacheHit()
	m.IncReceiversCacheMiss()
	m.IncReceiversCacheMiss()
	m.ObserveListDuration(2 * time.Millisecond)
	m.IncEventPublished("bill.created", "success")

	snap := m.Snapshot()
	if snap.BillsCreated != 1 {
		t.Errorf("BillsCreated = %d, want 1", snap.BillsCreated)
	}
	if snap.BillsUpdated[FieldPaid] != 2 || snap.BillsUpdated[FieldPaymentRef] != 1 {
		t.Errorf("BillsUpdated = %v", snap.BillsUpdated)
	}
	if snap.ReceiversCacheHits != 1 || snap.ReceiversCacheMisses != 2 {
		t.Errorf("cache hits/misses = %d/%d, want 1/2", snap.ReceiversCacheHits, snap.ReceiversCacheMisses)
	}
	if snap.ListDurationCount != 1 || snap.ListDurationTotalNs != int64(2*time.Millisecond) {
		t.Errorf("list duration = %d/%d", snap.ListDurationCount, snap.ListDurationTotalNs)
	}
	if snap.EventsPublished["bill.created/success"] != 1 {
		t.Errorf("EventsPublished = %v", snap.EventsPublished)
	}

	// Snapshot maps are copies.
	snap.BillsUpdated[FieldPaid] = 99
	if m.Snapshot().BillsUpdated[FieldPaid] != 2 {
		t.Error("mutating a snapshot leaked into the recorder")
	}
}

func TestPrometheusRecorder_Counters(t *testing.T) {
	t.Parallel()

	r := NewPrometheus()
	r.IncBillCreated()
	r.IncBillCreated()
	r.IncBillUpdated(FieldPaid)

	if got := testutil.ToFloat64(r.billsCreated); got != 2 {
		t.Errorf("bills_created_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.billsUpdated.WithLabelValues(FieldPaid)); got != 1 {
		t.Errorf("bills_updated_total{field=paid} = %v, want 1", got)
	}

	n, err := testutil.GatherAndCount(r.Registry(), "billtrack_bills_created_total", "billtrack_bills_updated_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 2 {
		t.Errorf("gathered %d series, want 2", n)
	}
}

func TestPrometheusRecorder_Handler(t *testing.T) {
	t.Parallel()

	r := NewPrometheus()
	r.ObserveHTTPRequest(http.MethodGet, "/bills/{billId}", http.StatusOK, 5*time.Millisecond)
	r.IncReceiversCacheHit()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`billtrack_http_request_duration_seconds_count{method="GET",route="/bills/{billId}",status="200"} 1`,
		`billtrack_receivers_cache_requests_total{result="hit"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
