package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordCall(t *testing.T) {
	tests := []struct {
		name       string
		action     string
		duration   float64
		success    bool
		wantStatus string
	}{
		{
			name:       "successful call",
			action:     "query",
			duration:   0.1,
			success:    true,
			wantStatus: "success",
		},
		{
			name:       "failed call",
			action:     "edit",
			duration:   0.5,
			success:    false,
			wantStatus: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordCall(tt.action, tt.duration, tt.success)

			counter, err := APICallsTotal.GetMetricWithLabelValues(tt.action, tt.wantStatus)
			if err != nil {
				t.Fatalf("failed to get metric: %v", err)
			}

			var m dto.Metric
			if err := counter.Write(&m); err != nil {
				t.Fatalf("failed to write metric: %v", err)
			}

			if m.Counter.GetValue() < 1 {
				t.Error("expected counter to be incremented")
			}
		})
	}
}

func TestRecordEdit(t *testing.T) {
	RecordEdit("move", true)

	counter, err := EditOperations.GetMetricWithLabelValues("move", "success")
	if err != nil {
		t.Fatalf("failed to get metric: %v", err)
	}

	var m dto.Metric
	if err := counter.Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if m.Counter.GetValue() < 1 {
		t.Error("expected counter to be incremented")
	}
}

func TestPlainCounters(t *testing.T) {
	initialRetries := getCounterValue(t, RetriesTotal)
	initialWaits := getCounterValue(t, ThrottleWaits)
	initialTransport := getCounterValue(t, TransportErrors)

	RetriesTotal.Inc()
	ThrottleWaits.Inc()
	TransportErrors.Inc()

	if getCounterValue(t, RetriesTotal) != initialRetries+1 {
		t.Error("expected retries counter to increment")
	}
	if getCounterValue(t, ThrottleWaits) != initialWaits+1 {
		t.Error("expected throttle waits counter to increment")
	}
	if getCounterValue(t, TransportErrors) != initialTransport+1 {
		t.Error("expected transport errors counter to increment")
	}
}

func TestMetricsRegistered(t *testing.T) {
	metrics := []prometheus.Collector{
		APICallsTotal,
		APICallDuration,
		RetriesTotal,
		ThrottleWaits,
		TransportErrors,
		EditOperations,
	}

	for i, m := range metrics {
		if m == nil {
			t.Errorf("metric at index %d is nil", i)
		}
	}
}

func TestNamespace(t *testing.T) {
	if Namespace != "ceterach" {
		t.Errorf("expected namespace 'ceterach', got '%s'", Namespace)
	}
}

// Helper to get counter value
func getCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return m.Counter.GetValue()
}
