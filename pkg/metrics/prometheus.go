package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Исходы расчёта
const (
	OutcomeSolved   = "solved"
	OutcomeReused   = "reused"
	OutcomeCapped   = "capped"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

// Metrics глобальный контейнер метрик
type Metrics struct {
	// Расчёт
	SolveOperationsTotal *prometheus.CounterVec
	SolveDuration        *prometheus.HistogramVec
	StageDuration        *prometheus.HistogramVec
	PathsEnumerated      *prometheus.HistogramVec
	CandidatesExamined   prometheus.Histogram
	MatchingsReturned    prometheus.Histogram
	EnumerationCapHits   prometheus.Counter

	// Переиспользование результатов
	CacheRequestsTotal *prometheus.CounterVec
	StoreLookupsTotal  *prometheus.CounterVec

	// Блокировка
	LockWaitDuration prometheus.Histogram
	SolvesInFlight   prometheus.Gauge

	// Информация о сервисе
	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics инициализирует метрики
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		SolveOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_operations_total",
				Help:      "Total number of solve requests by outcome",
			},
			[]string{"outcome"},
		),

		SolveDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_duration_seconds",
				Help:      "Duration of solve requests",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300, 900},
			},
			[]string{"outcome"},
		),

		StageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stage_duration_seconds",
				Help:      "Duration of individual pipeline stages",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30, 120, 600},
			},
			[]string{"stage"},
		),

		PathsEnumerated: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "paths_enumerated",
				Help:      "Number of enumerated paths per solve",
				Buckets:   []float64{0, 1, 10, 50, 100, 500, 1000, 5000, 10000, 50000},
			},
			[]string{"kind"},
		),

		CandidatesExamined: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "candidates_examined",
				Help:      "Number of candidate matchings examined per solve",
				Buckets:   prometheus.ExponentialBuckets(1, 10, 8),
			},
		),

		MatchingsReturned: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "matchings_returned",
				Help:      "Number of ranked matchings returned per solve",
				Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000},
			},
		),

		EnumerationCapHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "enumeration_cap_hits_total",
				Help:      "Number of solves stopped by the enumeration cap",
			},
		),

		CacheRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_requests_total",
				Help:      "Hot result cache lookups by result",
			},
			[]string{"result"},
		),

		StoreLookupsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "store_lookups_total",
				Help:      "Persistent result store lookups by result",
			},
			[]string{"result"},
		),

		LockWaitDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "lock_wait_seconds",
				Help:      "Time spent waiting for the solver lock",
				Buckets:   []float64{.001, .01, .1, .5, 1, 5, 30, 120, 600},
			},
		),

		SolvesInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solves_in_flight",
				Help:      "Number of solves holding the solver lock",
			},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}

	defaultMetrics = m
	return m
}

// Get возвращает глобальные метрики
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("txmatching", "")
	}
	return defaultMetrics
}

// RecordSolve записывает итог запроса расчёта
func (m *Metrics) RecordSolve(outcome string, duration time.Duration) {
	m.SolveOperationsTotal.WithLabelValues(outcome).Inc()
	m.SolveDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordStage записывает длительность этапа пайплайна
func (m *Metrics) RecordStage(stage string, duration time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordPaths записывает число найденных циклов и цепочек
func (m *Metrics) RecordPaths(cycles, sequences, retained int) {
	m.PathsEnumerated.WithLabelValues("cycle").Observe(float64(cycles))
	m.PathsEnumerated.WithLabelValues("sequence").Observe(float64(sequences))
	m.PathsEnumerated.WithLabelValues("retained").Observe(float64(retained))
}

// RecordRanking записывает итог ранжирования
func (m *Metrics) RecordRanking(examined, returned int, capped bool) {
	m.CandidatesExamined.Observe(float64(examined))
	m.MatchingsReturned.Observe(float64(returned))
	if capped {
		m.EnumerationCapHits.Inc()
	}
}

// RecordCache записывает обращение к кэшу
func (m *Metrics) RecordCache(hit bool) {
	m.CacheRequestsTotal.WithLabelValues(hitLabel(hit)).Inc()
}

// RecordStoreLookup записывает поиск в хранилище результатов
func (m *Metrics) RecordStoreLookup(hit bool) {
	m.StoreLookupsTotal.WithLabelValues(hitLabel(hit)).Inc()
}

// RecordLockWait записывает время ожидания блокировки
func (m *Metrics) RecordLockWait(d time.Duration) {
	m.LockWaitDuration.Observe(d.Seconds())
}

// SetServiceInfo устанавливает информацию о сервисе
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

func hitLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// Handler возвращает HTTP handler для /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer запускает HTTP сервер для метрик
func StartMetricsServer(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK")) //nolint:errcheck // health endpoint, ошибка записи не критична
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
