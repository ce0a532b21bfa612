package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/recfile/pkg/store"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New(reg), reg
}

func TestMetrics_ImplementsObserver(t *testing.T) {
	var _ store.Observer = (*Metrics)(nil)
}

func TestMetrics_ObserveOperation(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.ObserveOperation("read", nil, time.Millisecond)
	m.ObserveOperation("read", &store.Error{Op: "read", Kind: store.KindReadFailed}, time.Millisecond)
	m.ObserveOperation("read", &store.Error{Op: "read", Kind: store.KindReadFailed}, time.Millisecond)
	m.ObserveOperation("swap", errors.New("plain"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOperationsTotal.WithLabelValues("read", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.storeOperationsTotal.WithLabelValues("read", "read_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOperationsTotal.WithLabelValues("swap", "unknown")))
}

func TestMetrics_UpdateStoreStats(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.UpdateStoreStats(&store.Stats{Records: 6, SizeBytes: 342})

	assert.Equal(t, 6.0, testutil.ToFloat64(m.storeRecords))
	assert.Equal(t, 342.0, testutil.ToFloat64(m.storeSizeBytes))
}

func TestMetrics_InstrumentHandler(t *testing.T) {
	m, _ := newTestMetrics(t)

	handler := m.InstrumentHandler("GET", "/api/v1/records/{index}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	handler(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/records/9", nil))
	handler(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/records/8", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(
		m.httpRequestsTotal.WithLabelValues("GET", "/api/v1/records/{index}", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(
		m.httpRequestsInFlight.WithLabelValues("GET", "/api/v1/records/{index}")))
}

func TestMetrics_InstrumentAuthMiddleware(t *testing.T) {
	m, _ := newTestMetrics(t)

	deny := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != "good" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	handler := m.InstrumentAuthMiddleware(deny)(ok)

	for _, key := range []string{"good", "bad", ""} {
		req := httptest.NewRequest("GET", "/", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.authRequestsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authRequestsTotal.WithLabelValues("error")))
}

func TestMetrics_Registry(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.RecordHealthCheck(true)
	m.ObserveOperation("write", nil, time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "recfile_health_checks_total")
	assert.Contains(t, names, "recfile_store_operations_total")
	assert.Contains(t, names, "recfile_store_records")

	// a second set on the same registry collides
	assert.Panics(t, func() { New(reg) })
}
