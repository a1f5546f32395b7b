package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("test", reg)

	assert.NotNil(t, m.InvocationsTotal)
	assert.NotNil(t, m.StageDuration)
	assert.NotNil(t, m.BreakerState)

	m.RecordInvocation("", time.Millisecond)
	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_pipeline_invocations_total")
	assert.Contains(t, names, "test_pipeline_invocation_duration_seconds")
}

func TestNew_DefaultNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("", reg)

	m.RecordEventReceived("lambda")
	count, err := testutil.GatherAndCount(reg, "upload_notifier_source_events_received_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_RecordInvocation(t *testing.T) {
	m := New("test", prometheus.NewRegistry())

	m.RecordInvocation("", 10*time.Millisecond)
	m.RecordInvocation("", 10*time.Millisecond)
	m.RecordInvocation("DISPATCH_ERROR", 10*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.InvocationsTotal.WithLabelValues(OutcomeSuccess, "")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.InvocationsTotal.WithLabelValues(OutcomeFailure, "DISPATCH_ERROR")))
}

func TestMetrics_RecordStage(t *testing.T) {
	m := New("test", prometheus.NewRegistry())

	m.RecordStage(StageIssue, nil, time.Millisecond)
	m.RecordStage(StageRecord, errors.New("throttled"), time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.StageTotal.WithLabelValues(StageIssue, OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StageTotal.WithLabelValues(StageRecord, OutcomeFailure)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.StageTotal.WithLabelValues(StageDispatch, OutcomeSuccess)))
}

func TestMetrics_SourceAndBreaker(t *testing.T) {
	m := New("test", prometheus.NewRegistry())

	m.RecordEventSkipped("sqs", "test_event")
	m.SetBreakerState("sns", 2)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsSkippedTotal.WithLabelValues("sqs", "test_event")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.BreakerState.WithLabelValues("sns")))
}
