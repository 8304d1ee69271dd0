package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()

	var out dto.Metric
	require.NoError(t, m.Write(&out))
	switch {
	case out.Counter != nil:
		return out.Counter.GetValue()
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	}
	t.Fatalf("unsupported metric type")
	return 0
}

func TestRecordOperation(t *testing.T) {
	rejected := DefaultMetrics.OperationsTotal.WithLabelValues("SubmitValue", "rejected")
	before := value(t, rejected)

	RecordOperation("SubmitValue", 0.01, errors.New("zero weight"))
	RecordOperation("SubmitValue", 0.01, nil)

	assert.Equal(t, before+1, value(t, rejected))
}

func TestRecordSubmission(t *testing.T) {
	RecordSubmission("oracle-a", true, 2550, 250)

	assert.Equal(t, 2550.0, value(t, DefaultMetrics.AggregatedPrice.WithLabelValues("oracle-a")))
	assert.Equal(t, 250.0, value(t, DefaultMetrics.RewardsPaid.WithLabelValues("oracle-a")))
	assert.Equal(t, 1.0, value(t, DefaultMetrics.SubmissionsTotal.WithLabelValues("oracle-a", "true")))
}
