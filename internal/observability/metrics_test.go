package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestRecordGoalProgress(t *testing.T) {
	beforeEvaluated := testutil.ToFloat64(goalsEvaluatedCounter)
	beforeCompleted := testutil.ToFloat64(goalsCompletedCounter)
	beforeSamples := histogramSampleCount(t)

	RecordGoalProgress(3, 1, 15*time.Millisecond)

	require.InDelta(t, beforeEvaluated+3, testutil.ToFloat64(goalsEvaluatedCounter), 0.0001)
	require.InDelta(t, beforeCompleted+1, testutil.ToFloat64(goalsCompletedCounter), 0.0001)
	require.Equal(t, beforeSamples+1, histogramSampleCount(t))
}

func TestRecordActivityLogged(t *testing.T) {
	ts := time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)
	before := testutil.ToFloat64(activityLoggedCounter.WithLabelValues("running"))

	RecordActivityLogged("running", ts)
	RecordActivityLogged("running", time.Time{})

	require.InDelta(t, before+2, testutil.ToFloat64(activityLoggedCounter.WithLabelValues("running")), 0.0001)
	require.Equal(t, float64(ts.Unix()), testutil.ToFloat64(activityLoggedGauge))
}

func histogramSampleCount(t *testing.T) uint64 {
	t.Helper()
	var metric dto.Metric
	require.NoError(t, progressDuration.Write(&metric))
	return metric.GetHistogram().GetSampleCount()
}
