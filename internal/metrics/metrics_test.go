package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
)

func TestObserveVerdict(t *testing.T) {
	m := New()

	m.ObserveVerdict(domain.Allow("iot_dev-1", nil), time.Millisecond)
	m.ObserveVerdict(domain.Deny(domain.ReasonMalformedPayload), time.Millisecond)
	m.ObserveVerdict(domain.Deny(domain.ReasonMalformedPayload), time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.hookVerdicts.WithLabelValues("allow", "")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.hookVerdicts.WithLabelValues("deny", domain.ReasonMalformedPayload)))
}

func TestObserveLifecycle(t *testing.T) {
	m := New()

	m.ObserveLifecycle(domain.RequestDelete, domain.Succeeded("g", map[string]string{domain.DataKeyStatus: domain.OutcomeAlreadyAbsent}))
	m.ObserveLifecycle(domain.RequestCreate, domain.Failed("g", "boom"))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.lifecycleResults.WithLabelValues("Delete", "SUCCESS", domain.OutcomeAlreadyAbsent)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.lifecycleResults.WithLabelValues("Create", "FAILED", "")))
}

func TestObserveLifecycle_BoundsRequestTypeLabel(t *testing.T) {
	m := New()

	m.ObserveLifecycle(domain.RequestType("Frobnicate"), domain.Failed("g", "unsupported"))
	m.ObserveLifecycle(domain.RequestType("Frobnicate-2"), domain.Failed("g", "unsupported"))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.lifecycleResults.WithLabelValues("unknown", "FAILED", "")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.lifecycleResults))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveVerdict(domain.Deny("x"), time.Second)
		m.ObserveLifecycle(domain.RequestCreate, domain.Failed("g", "x"))
	})
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	assert.NotNil(t, m.InstrumentHandler("/v1/hook", next))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveVerdict(domain.Allow("iot_dev-1", nil), time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fleet_provisioner_hook_verdicts_total")
}
