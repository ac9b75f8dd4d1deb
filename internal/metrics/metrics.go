package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a dedicated registry. All record methods are safe on a nil
// receiver so components can run without instrumentation.
type Metrics struct {
	Registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	conflicts       prometheus.Counter
	resolutions     *prometheus.CounterVec
	scenarios       *prometheus.CounterVec
	budgetExhausted prometheus.Counter
	resolveDuration prometheus.Histogram
	lookupCache     *prometheus.CounterVec
	lookupFallbacks prometheus.Counter
	plans           prometheus.Counter
	plannedDays     prometheus.Counter
	droppedInputs   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
			[]string{"method", "path", "status"},
		),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "visitplan_conflicts_detected_total",
			Help: "Appointment conflicts detected by the resolver.",
		}),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "visitplan_resolutions_total", Help: "Conflict resolutions produced, by whether a fix was recommended."},
			[]string{"recommended"},
		),
		scenarios: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "visitplan_scenarios_tested_total", Help: "Simulated scenarios by strategy."},
			[]string{"strategy"},
		),
		budgetExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "visitplan_budget_exhausted_total",
			Help: "Resolver runs that stopped on the time budget.",
		}),
		resolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "visitplan_resolve_duration_seconds",
			Help:    "Wall-clock time spent resolving conflicts.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		lookupCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "visitplan_lookup_cache_total", Help: "Lookup cache reads by kind and result."},
			[]string{"kind", "result"},
		),
		lookupFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "visitplan_lookup_fallbacks_total",
			Help: "Travel lookups answered by the geodesic estimate.",
		}),
		plans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "visitplan_plans_total",
			Help: "Completed planning runs.",
		}),
		plannedDays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "visitplan_planned_days_total",
			Help: "Dates routed across all planning runs.",
		}),
		droppedInputs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "visitplan_dropped_inputs_total",
			Help: "Appointments dropped before routing.",
		}),
	}

	m.Registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.conflicts,
		m.resolutions,
		m.scenarios,
		m.budgetExhausted,
		m.resolveDuration,
		m.lookupCache,
		m.lookupFallbacks,
		m.plans,
		m.plannedDays,
		m.droppedInputs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, path, code).Inc()
	m.httpDuration.WithLabelValues(method, path, code).Observe(d.Seconds())
}

func (m *Metrics) ConflictsDetected(n int) {
	if m == nil {
		return
	}
	m.conflicts.Add(float64(n))
}

func (m *Metrics) Resolution(recommended bool) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(strconv.FormatBool(recommended)).Inc()
}

func (m *Metrics) ScenariosTested(strategy string, n int) {
	if m == nil {
		return
	}
	m.scenarios.WithLabelValues(strategy).Add(float64(n))
}

func (m *Metrics) BudgetExhausted() {
	if m == nil {
		return
	}
	m.budgetExhausted.Inc()
}

func (m *Metrics) ResolveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.resolveDuration.Observe(d.Seconds())
}

// LookupCache records a cache read; kind is "distance" or "geocode".
func (m *Metrics) LookupCache(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookupCache.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) LookupFallback() {
	if m == nil {
		return
	}
	m.lookupFallbacks.Inc()
}

func (m *Metrics) PlanCompleted(days, dropped int) {
	if m == nil {
		return
	}
	m.plans.Inc()
	m.plannedDays.Add(float64(days))
	m.droppedInputs.Add(float64(dropped))
}
