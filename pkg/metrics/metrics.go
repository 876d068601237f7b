package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the cutplan service exports
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Storage metrics
	StoreOperations        *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec

	// Event delivery metrics
	KafkaEventsPublished *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec
	OutboxPending        prometheus.Gauge
	OutboxRetries        *prometheus.CounterVec

	// Planning metrics
	AllocationsTotal    *prometheus.CounterVec
	AllocationWasteMM   prometheus.Histogram
	NewRailsNeeded      prometheus.Counter
	RemaindersReused    prometheus.Counter
	UnallocatedPieces   prometheus.Counter
	WorkOrderTransition *prometheus.CounterVec
	RailCuts            *prometheus.CounterVec
	InventoryRails      *prometheus.GaugeVec

	// Indicator metrics
	IndicatorSignals    *prometheus.CounterVec
	CircuitBreakerState *prometheus.GaugeVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "cutplan",
	}
}

// New creates a new Metrics instance with its own registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ns := config.Namespace
	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"service", "method", "path", "status"})

	m.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"service", "method", "path"})

	m.HTTPRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "http_requests_in_flight",
		Help:        "Number of HTTP requests currently being processed",
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})

	m.StoreOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "store_operations_total",
		Help:      "Total number of repository operations",
	}, []string{"service", "backend", "collection", "operation", "status"})

	m.StoreOperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "store_operation_duration_seconds",
		Help:      "Repository operation duration in seconds",
		Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"service", "backend", "collection", "operation"})

	m.KafkaEventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "kafka_events_published_total",
		Help:      "Total number of Kafka events published",
	}, []string{"service", "topic", "event_type", "status"})

	m.KafkaPublishDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "kafka_publish_duration_seconds",
		Help:      "Kafka publish duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"service", "topic"})

	m.OutboxPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "outbox_pending_events",
		Help:        "Unpublished events found in the last outbox poll",
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})

	m.OutboxRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "outbox_retries_total",
		Help:      "Outbox events scheduled for another delivery attempt",
	}, []string{"service", "event_type"})

	m.AllocationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "allocations_total",
		Help:      "Material plans generated, by purpose (preview or work order)",
	}, []string{"service", "purpose"})

	m.AllocationWasteMM = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   ns,
		Name:        "allocation_waste_millimetres",
		Help:        "Total waste per generated material plan in millimetres",
		Buckets:     []float64{0, 10, 25, 50, 100, 250, 500, 1000, 2500},
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})

	m.NewRailsNeeded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   ns,
		Name:        "new_rails_needed_total",
		Help:        "New standard rails requested by generated material plans",
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})

	m.RemaindersReused = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   ns,
		Name:        "remainders_reused_total",
		Help:        "Remainder rails consumed by generated material plans",
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})

	m.UnallocatedPieces = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   ns,
		Name:        "unallocated_pieces_total",
		Help:        "Pieces longer than every standard stock length",
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})

	m.WorkOrderTransition = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "work_order_transitions_total",
		Help:      "Work order lifecycle transitions",
	}, []string{"service", "transition"})

	m.RailCuts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "rail_cuts_total",
		Help:      "Cuts applied to the live stock pool by outcome",
	}, []string{"service", "outcome"})

	m.InventoryRails = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "inventory_rails",
		Help:      "Rails currently in the live stock pool",
	}, []string{"service", "kind"})

	m.IndicatorSignals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "indicator_signals_total",
		Help:      "Remainder box LED signals by box and status",
	}, []string{"service", "box", "status"})

	m.CircuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"service", "name"})

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.StoreOperations,
		m.StoreOperationDuration,
		m.KafkaEventsPublished,
		m.KafkaPublishDuration,
		m.OutboxPending,
		m.OutboxRetries,
		m.AllocationsTotal,
		m.AllocationWasteMM,
		m.NewRailsNeeded,
		m.RemaindersReused,
		m.UnallocatedPieces,
		m.WorkOrderTransition,
		m.RailCuts,
		m.InventoryRails,
		m.IndicatorSignals,
		m.CircuitBreakerState,
	)

	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// RecordStoreOperation records a repository call
func (m *Metrics) RecordStoreOperation(backend, collection, operation string, success bool, duration time.Duration) {
	m.StoreOperations.WithLabelValues(m.serviceName, backend, collection, operation, statusLabel(success)).Inc()
	m.StoreOperationDuration.WithLabelValues(m.serviceName, backend, collection, operation).Observe(duration.Seconds())
}

// RecordKafkaPublish records a Kafka publish attempt
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, statusLabel(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// SetOutboxPending sets the pending outbox gauge
func (m *Metrics) SetOutboxPending(count int) {
	m.OutboxPending.Set(float64(count))
}

// RecordOutboxRetry records a failed outbox delivery that will be retried
func (m *Metrics) RecordOutboxRetry(eventType string) {
	m.OutboxRetries.WithLabelValues(m.serviceName, eventType).Inc()
}

// RecordAllocation records the outcome of one material plan generation
func (m *Metrics) RecordAllocation(purpose string, totalWaste, newRails, usedRemainders, unallocated int) {
	m.AllocationsTotal.WithLabelValues(m.serviceName, purpose).Inc()
	m.AllocationWasteMM.Observe(float64(totalWaste))
	m.NewRailsNeeded.Add(float64(newRails))
	m.RemaindersReused.Add(float64(usedRemainders))
	m.UnallocatedPieces.Add(float64(unallocated))
}

// RecordWorkOrderTransition records a work order lifecycle transition
func (m *Metrics) RecordWorkOrderTransition(transition string) {
	m.WorkOrderTransition.WithLabelValues(m.serviceName, transition).Inc()
}

// RecordRailCut records a cut applied to the live pool
func (m *Metrics) RecordRailCut(outcome string) {
	m.RailCuts.WithLabelValues(m.serviceName, outcome).Inc()
}

// SetInventoryRails sets the live pool gauges
func (m *Metrics) SetInventoryRails(fullLength, remainders int) {
	m.InventoryRails.WithLabelValues(m.serviceName, "full-length").Set(float64(fullLength))
	m.InventoryRails.WithLabelValues(m.serviceName, "remainder").Set(float64(remainders))
}

// RecordIndicatorSignal records one remainder box LED signal
func (m *Metrics) RecordIndicatorSignal(box int, success bool) {
	m.IndicatorSignals.WithLabelValues(m.serviceName, strconv.Itoa(box), statusLabel(success)).Inc()
}

// SetCircuitBreakerState records a breaker state change
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
