package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	JobReasonDeadlineExceeded = "deadline_exceeded"
	JobReasonCanceled         = "canceled"
	JobReasonDBLockTimeout    = "db_lock_timeout"
	JobReasonUniqueViolation  = "unique_violation"
	JobReasonUnknown          = "unknown"
)

const (
	FailClosedSourceAccessError   = "access_error"
	FailClosedSourceAccessTimeout = "access_timeout"
	FailClosedSourceAuthTimeout   = "auth_timeout"
)

// GateMetrics captures access gate and background job signals.
type GateMetrics struct {
	transitions *prometheus.CounterVec
	navigations *prometheus.CounterVec
	failClosed  *prometheus.CounterVec
	activeGates prometheus.Gauge
	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	jobErrors   *prometheus.CounterVec
}

var (
	gateMetricsOnce sync.Once
	gateMetrics     *GateMetrics
)

// Gate returns the singleton gate metrics registry.
func Gate() *GateMetrics {
	return GateWithConfig(Config{})
}

// GateWithConfig returns the singleton gate metrics registry using config labels.
func GateWithConfig(cfg Config) *GateMetrics {
	gateMetricsOnce.Do(func() {
		gateMetrics = newGateMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return gateMetrics
}

// ResetGateMetricsForTest resets the gate metrics singleton for tests.
func ResetGateMetricsForTest() {
	gateMetricsOnce = sync.Once{}
	gateMetrics = nil
}

func newGateMetrics(registerer prometheus.Registerer, cfg Config) *GateMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "streamgate"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "streamgate_gate_transitions_total",
		Help:        "Access gate state transitions.",
		ConstLabels: constLabels,
	}, []string{"from", "to"})
	navigations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "streamgate_gate_navigations_total",
		Help:        "Navigation effects emitted by the access gate.",
		ConstLabels: constLabels,
	}, []string{"target"})
	failClosed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "streamgate_gate_fail_closed_total",
		Help:        "Gate resolutions forced to a denied or unavailable outcome.",
		ConstLabels: constLabels,
	}, []string{"source"})
	activeGates := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "streamgate_gate_active",
		Help:        "Gate runners currently observing a session.",
		ConstLabels: constLabels,
	})
	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "streamgate_sweeper_job_runs_total",
		Help:        "Sweeper job runs by name.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "streamgate_sweeper_job_duration_seconds",
		Help:        "Sweeper job latency.",
		Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		ConstLabels: constLabels,
	}, []string{"job"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "streamgate_sweeper_job_errors_total",
		Help:        "Sweeper job errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"job", "reason"})

	registerer.MustRegister(
		transitions,
		navigations,
		failClosed,
		activeGates,
		jobRuns,
		jobDuration,
		jobErrors,
	)

	return &GateMetrics{
		transitions: transitions,
		navigations: navigations,
		failClosed:  failClosed,
		activeGates: activeGates,
		jobRuns:     jobRuns,
		jobDuration: jobDuration,
		jobErrors:   jobErrors,
	}
}

func (m *GateMetrics) RecordTransition(from, to string) {
	if m == nil || from == to {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *GateMetrics) RecordNavigation(target string) {
	if m == nil {
		return
	}
	m.navigations.WithLabelValues(target).Inc()
}

func (m *GateMetrics) RecordFailClosed(source string) {
	if m == nil {
		return
	}
	m.failClosed.WithLabelValues(source).Inc()
}

func (m *GateMetrics) GateStarted() {
	if m == nil {
		return
	}
	m.activeGates.Inc()
}

func (m *GateMetrics) GateStopped() {
	if m == nil {
		return
	}
	m.activeGates.Dec()
}

// ObserveJob records a sweeper job run with its duration and failure reason.
func (m *GateMetrics) ObserveJob(job string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
	if err != nil {
		m.jobErrors.WithLabelValues(job, ClassifyJobReason(err)).Inc()
	}
}

// ClassifyJobReason maps an error to a low-cardinality reason label.
func ClassifyJobReason(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return JobReasonDeadlineExceeded
	}
	if errors.Is(err, context.Canceled) {
		return JobReasonCanceled
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return JobReasonUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return JobReasonDBLockTimeout
		case "23505":
			return JobReasonUniqueViolation
		}
	}
	return JobReasonUnknown
}
