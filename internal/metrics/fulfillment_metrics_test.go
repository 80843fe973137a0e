package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewFulfillmentMetrics(t *testing.T) {
	metrics := newFulfillmentMetricsWithRegisterer(prometheus.NewRegistry())

	if metrics == nil {
		t.Fatal("newFulfillmentMetricsWithRegisterer should not return nil")
	}

	if metrics.ordersCreated == nil {
		t.Error("ordersCreated counter should not be nil")
	}
	if metrics.transitions == nil {
		t.Error("transitions counter vec should not be nil")
	}
	if metrics.transitionsDenied == nil {
		t.Error("transitionsDenied counter vec should not be nil")
	}
	if metrics.insufficientStock == nil {
		t.Error("insufficientStock counter should not be nil")
	}
	if metrics.versionConflicts == nil {
		t.Error("versionConflicts counter should not be nil")
	}
	if metrics.transitionDuration == nil {
		t.Error("transitionDuration histogram vec should not be nil")
	}
	if metrics.outboxEvents == nil {
		t.Error("outboxEvents counter should not be nil")
	}
	if metrics.expeditionQueue == nil {
		t.Error("expeditionQueue gauge should not be nil")
	}
}

func TestFulfillmentMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := newFulfillmentMetricsWithRegisterer(reg)
	second := newFulfillmentMetricsWithRegisterer(reg)

	first.RecordOrderCreated()
	second.RecordOrderCreated()

	metric := &dto.Metric{}
	if err := first.ordersCreated.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	// Повторная регистрация возвращает уже существующий collector.
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected shared counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordTransition(t *testing.T) {
	metrics := newFulfillmentMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordTransition("approved")
	metrics.RecordTransition("approved")
	metrics.RecordTransition("shipped")

	metric := &dto.Metric{}
	counter, err := metrics.transitions.GetMetricWithLabelValues("approved")
	if err != nil {
		t.Fatalf("failed to get counter: %v", err)
	}
	if err := counter.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordTransitionDenied(t *testing.T) {
	metrics := newFulfillmentMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordTransitionDenied("transition_not_allowed")
	metrics.RecordTransitionDenied("role_not_allowed")
	metrics.RecordTransitionDenied("transition_not_allowed")

	metric := &dto.Metric{}
	counter, err := metrics.transitionsDenied.GetMetricWithLabelValues("transition_not_allowed")
	if err != nil {
		t.Fatalf("failed to get counter: %v", err)
	}
	if err := counter.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordTransitionDuration(t *testing.T) {
	metrics := newFulfillmentMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordTransitionDuration("payment_confirmed", 100*time.Millisecond)
	metrics.RecordTransitionDuration("payment_confirmed", 500*time.Millisecond)
	metrics.RecordTransitionDuration("payment_confirmed", time.Second)

	observer, err := metrics.transitionDuration.GetMetricWithLabelValues("payment_confirmed")
	if err != nil {
		t.Fatalf("failed to get histogram: %v", err)
	}

	metric := &dto.Metric{}
	if err := observer.(prometheus.Histogram).Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Histogram.GetSampleCount() != 3 {
		t.Errorf("expected 3 samples, got %d", metric.Histogram.GetSampleCount())
	}

	// 0.1 + 0.5 + 1.0 = 1.6
	sum := metric.Histogram.GetSampleSum()
	if sum < 1.5 || sum > 1.7 {
		t.Errorf("expected sum around 1.6, got %f", sum)
	}
}

func TestSetExpeditionQueueSize(t *testing.T) {
	metrics := newFulfillmentMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.SetExpeditionQueueSize(7)
	metrics.SetExpeditionQueueSize(4)

	metric := &dto.Metric{}
	if err := metrics.expeditionQueue.Write(metric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}

	if metric.Gauge.GetValue() != 4.0 {
		t.Errorf("expected gauge value 4.0, got %f", metric.Gauge.GetValue())
	}
}
