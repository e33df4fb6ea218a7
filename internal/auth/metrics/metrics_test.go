package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { RegisterMetrics(reg) })
	assert.Panics(t, func() { RegisterMetrics(reg) }, "double registration must panic")
}

func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(Operations.WithLabelValues("login", OutcomeSuccess))
	RecordOperation("login", OutcomeSuccess, 5*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(Operations.WithLabelValues("login", OutcomeSuccess)))

	before = testutil.ToFloat64(SuppressedErrors.WithLabelValues("forgot_password", "too_many_requests"))
	RecordSuppressed("forgot_password", "too_many_requests")
	assert.Equal(t, before+1, testutil.ToFloat64(SuppressedErrors.WithLabelValues("forgot_password", "too_many_requests")))

	before = testutil.ToFloat64(HousekeepingDeleted.WithLabelValues("sessions"))
	RecordHousekeeping("sessions", 0)
	RecordHousekeeping("sessions", 3)
	assert.Equal(t, before+3, testutil.ToFloat64(HousekeepingDeleted.WithLabelValues("sessions")))

	before = testutil.ToFloat64(RefreshRaces)
	RecordRefreshRace()
	assert.Equal(t, before+1, testutil.ToFloat64(RefreshRaces))
}
