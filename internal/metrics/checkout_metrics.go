package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics содержит метрики оформления заказа и сверки платежей.
type CheckoutMetrics struct {
	// Счётчики операций
	checkoutStarted   prometheus.Counter
	checkoutSucceeded prometheus.Counter
	checkoutFailed    prometheus.Counter
	ordersPaid        prometheus.Counter
	ordersCancelled   prometheus.Counter
	stockShortfalls   prometheus.Counter
	outboxEvents      prometheus.Counter

	// Гистограммы времени выполнения
	checkoutDuration  prometheus.Histogram
	reconcileDuration *prometheus.HistogramVec

	// Gauge для открытых платёжных сессий
	activeCheckouts prometheus.Gauge
}

// NewCheckoutMetrics создаёт новый экземпляр метрик checkout.
func NewCheckoutMetrics() *CheckoutMetrics {
	return newCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		checkoutStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ecom_checkout_started_total",
			Help: "Total number of checkout attempts started",
		}),
		checkoutSucceeded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ecom_checkout_succeeded_total",
			Help: "Total number of checkouts that opened a payment session",
		}),
		checkoutFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ecom_checkout_failed_total",
			Help: "Total number of checkouts rejected or failed",
		}),
		ordersPaid: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ecom_orders_paid_total",
			Help: "Total number of orders transitioned to paid",
		}),
		ordersCancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ecom_orders_cancelled_total",
			Help: "Total number of orders transitioned to cancelled",
		}),
		stockShortfalls: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ecom_stock_shortfalls_total",
			Help: "Total number of paid order lines that could not be decremented from stock",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ecom_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "ecom_checkout_duration_seconds",
			Help:    "Duration of checkout initiation in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		reconcileDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "ecom_reconcile_duration_seconds",
			Help:    "Duration of payment reconciliation in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"outcome"}),
		activeCheckouts: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "ecom_active_checkouts",
			Help: "Number of currently running checkout initiations",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordCheckoutStarted увеличивает счётчик начатых checkout и активный gauge.
func (m *CheckoutMetrics) RecordCheckoutStarted() {
	m.checkoutStarted.Inc()
	m.activeCheckouts.Inc()
}

// RecordCheckoutFinished уменьшает количество активных checkout.
func (m *CheckoutMetrics) RecordCheckoutFinished() {
	m.activeCheckouts.Dec()
}

// RecordCheckoutSucceeded увеличивает счётчик открытых платёжных сессий.
func (m *CheckoutMetrics) RecordCheckoutSucceeded() {
	m.checkoutSucceeded.Inc()
}

// RecordCheckoutFailed увеличивает счётчик неудачных checkout.
func (m *CheckoutMetrics) RecordCheckoutFailed() {
	m.checkoutFailed.Inc()
}

// RecordOrderPaid увеличивает счётчик оплаченных заказов.
func (m *CheckoutMetrics) RecordOrderPaid() {
	m.ordersPaid.Inc()
}

// RecordOrderCancelled увеличивает счётчик отменённых заказов.
func (m *CheckoutMetrics) RecordOrderCancelled() {
	m.ordersCancelled.Inc()
}

// RecordStockShortfalls увеличивает счётчик недостач при списании остатков.
func (m *CheckoutMetrics) RecordStockShortfalls(n int) {
	if n <= 0 {
		return
	}
	m.stockShortfalls.Add(float64(n))
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *CheckoutMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// RecordCheckoutDuration записывает время инициации checkout.
func (m *CheckoutMetrics) RecordCheckoutDuration(duration time.Duration) {
	m.checkoutDuration.Observe(duration.Seconds())
}

// RecordReconcileDuration записывает время сверки платежа с меткой исхода.
func (m *CheckoutMetrics) RecordReconcileDuration(outcome string, duration time.Duration) {
	m.reconcileDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}
