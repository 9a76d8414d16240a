package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndHandler(t *testing.T) {
	m := New(nil)

	m.ProgressionOutcome("ROUND_CREATED")
	m.ProgressionOutcome("ROUND_CREATED")
	m.ProgressionOutcome("FINALIZED")
	m.RewardsWritten(4)
	m.RewardsSkipped(1)
	m.SideEffectFailed("ledger")
	m.ObserveSubmit(25 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.outcomes.WithLabelValues("ROUND_CREATED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("FINALIZED")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.rewards.WithLabelValues("written")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rewards.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sideEffects.WithLabelValues("ledger")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "tournament_engine_submit_result_duration_seconds_count 1"))
	assert.Contains(t, body, `tournament_engine_side_effect_failures_total{kind="ledger"} 1`)
}
