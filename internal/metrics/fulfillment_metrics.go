package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FulfillmentMetrics содержит метрики контура исполнения заказов.
type FulfillmentMetrics struct {
	// Счётчики операций
	ordersCreated     prometheus.Counter
	transitions       *prometheus.CounterVec
	transitionsDenied *prometheus.CounterVec
	insufficientStock prometheus.Counter
	versionConflicts  prometheus.Counter

	// Гистограммы времени выполнения
	transitionDuration *prometheus.HistogramVec

	// Счётчики событий outbox
	outboxEvents prometheus.Counter

	// Gauge для текущего размера экспедиционной очереди
	expeditionQueue prometheus.Gauge
}

// NewFulfillmentMetrics создаёт новый экземпляр метрик исполнения заказов.
func NewFulfillmentMetrics() *FulfillmentMetrics {
	return newFulfillmentMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newFulfillmentMetricsWithRegisterer(registerer prometheus.Registerer) *FulfillmentMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &FulfillmentMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "fulfillment_orders_created_total",
			Help: "Total number of orders created",
		}),
		transitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "fulfillment_status_transitions_total",
			Help: "Total number of successful status transitions",
		}, []string{"to_status"}),
		transitionsDenied: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "fulfillment_status_transitions_denied_total",
			Help: "Total number of denied status transition attempts",
		}, []string{"reason"}),
		insufficientStock: registerCounter(registerer, prometheus.CounterOpts{
			Name: "fulfillment_insufficient_stock_total",
			Help: "Total number of transitions rejected due to insufficient stock",
		}),
		versionConflicts: registerCounter(registerer, prometheus.CounterOpts{
			Name: "fulfillment_version_conflicts_total",
			Help: "Total number of optimistic concurrency conflicts on save",
		}),
		transitionDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "fulfillment_transition_duration_seconds",
			Help:    "Duration of status transitions including side effects",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"to_status"}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "fulfillment_outbox_events_total",
			Help: "Total number of outbox events published",
		}),
		expeditionQueue: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "fulfillment_expedition_queue_size",
			Help: "Number of orders currently ready for expedition",
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

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
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

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *FulfillmentMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordTransition увеличивает счётчик успешных переходов в целевой статус.
func (m *FulfillmentMetrics) RecordTransition(toStatus string) {
	m.transitions.WithLabelValues(toStatus).Inc()
}

// RecordTransitionDenied увеличивает счётчик отклонённых переходов.
func (m *FulfillmentMetrics) RecordTransitionDenied(reason string) {
	m.transitionsDenied.WithLabelValues(reason).Inc()
}

// RecordInsufficientStock увеличивает счётчик отказов склада.
func (m *FulfillmentMetrics) RecordInsufficientStock() {
	m.insufficientStock.Inc()
}

// RecordVersionConflict увеличивает счётчик конфликтов оптимистичной записи.
func (m *FulfillmentMetrics) RecordVersionConflict() {
	m.versionConflicts.Inc()
}

// RecordTransitionDuration записывает длительность перехода со всеми сайд-эффектами.
func (m *FulfillmentMetrics) RecordTransitionDuration(toStatus string, duration time.Duration) {
	m.transitionDuration.WithLabelValues(toStatus).Observe(duration.Seconds())
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *FulfillmentMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// SetExpeditionQueueSize публикует текущий размер экспедиционной очереди.
func (m *FulfillmentMetrics) SetExpeditionQueueSize(n int) {
	m.expeditionQueue.Set(float64(n))
}
