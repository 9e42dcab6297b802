package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewCheckoutMetrics(t *testing.T) {
	metrics := newCheckoutMetricsWithRegisterer(prometheus.NewRegistry())

	if metrics == nil {
		t.Fatal("NewCheckoutMetrics should not return nil")
	}

	if metrics.checkoutStarted == nil {
		t.Error("checkoutStarted counter should not be nil")
	}
	if metrics.checkoutSucceeded == nil {
		t.Error("checkoutSucceeded counter should not be nil")
	}
	if metrics.checkoutFailed == nil {
		t.Error("checkoutFailed counter should not be nil")
	}
	if metrics.ordersPaid == nil {
		t.Error("ordersPaid counter should not be nil")
	}
	if metrics.ordersCancelled == nil {
		t.Error("ordersCancelled counter should not be nil")
	}
	if metrics.stockShortfalls == nil {
		t.Error("stockShortfalls counter should not be nil")
	}
	if metrics.outboxEvents == nil {
		t.Error("outboxEvents counter should not be nil")
	}
	if metrics.checkoutDuration == nil {
		t.Error("checkoutDuration histogram should not be nil")
	}
	if metrics.reconcileDuration == nil {
		t.Error("reconcileDuration histogram vec should not be nil")
	}
	if metrics.activeCheckouts == nil {
		t.Error("activeCheckouts gauge should not be nil")
	}
}

func TestNewCheckoutMetrics_ReuseRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := newCheckoutMetricsWithRegisterer(reg)
	second := newCheckoutMetricsWithRegisterer(reg)

	// Повторная регистрация тех же имён должна вернуть существующие коллекторы.
	first.RecordOrderPaid()
	second.RecordOrderPaid()

	metric := &dto.Metric{}
	if err := first.ordersPaid.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected shared counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordCheckoutStarted(t *testing.T) {
	metrics := newCheckoutMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordCheckoutStarted()

	metric := &dto.Metric{}
	if err := metrics.checkoutStarted.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1.0 {
		t.Errorf("expected counter value 1.0, got %f", metric.Counter.GetValue())
	}

	gaugeMetric := &dto.Metric{}
	if err := metrics.activeCheckouts.Write(gaugeMetric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	if gaugeMetric.Gauge.GetValue() != 1.0 {
		t.Errorf("expected active checkouts 1.0, got %f", gaugeMetric.Gauge.GetValue())
	}

	metrics.RecordCheckoutFinished()
	gaugeMetric = &dto.Metric{}
	if err := metrics.activeCheckouts.Write(gaugeMetric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	if gaugeMetric.Gauge.GetValue() != 0.0 {
		t.Errorf("expected active checkouts 0.0, got %f", gaugeMetric.Gauge.GetValue())
	}
}

func TestRecordStockShortfalls(t *testing.T) {
	metrics := newCheckoutMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordStockShortfalls(3)
	metrics.RecordStockShortfalls(0)
	metrics.RecordStockShortfalls(-1)

	metric := &dto.Metric{}
	if err := metrics.stockShortfalls.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 3.0 {
		t.Errorf("expected counter value 3.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordDurations(t *testing.T) {
	metrics := newCheckoutMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordCheckoutDuration(150 * time.Millisecond)
	metrics.RecordReconcileDuration("paid", 20*time.Millisecond)
	metrics.RecordReconcileDuration("cancelled", 10*time.Millisecond)

	metric := &dto.Metric{}
	if err := metrics.checkoutDuration.Write(metric); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 1 {
		t.Errorf("expected 1 checkout sample, got %d", metric.Histogram.GetSampleCount())
	}
}
