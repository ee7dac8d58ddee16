package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"txmatching/pkg/cache"
	"txmatching/pkg/logger"
)

// CacheCollector отдаёт статистику бэкенда кэша результатов в момент scrape
type CacheCollector struct {
	cache   cache.Cache
	timeout time.Duration

	keys   *prometheus.Desc
	hits   *prometheus.Desc
	misses *prometheus.Desc
	memory *prometheus.Desc
}

// NewCacheCollector создаёт коллектор для бэкенда кэша
func NewCacheCollector(namespace, subsystem string, c cache.Cache) *CacheCollector {
	labels := []string{"backend"}
	return &CacheCollector{
		cache:   c,
		timeout: 2 * time.Second,
		keys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "result_cache_keys"),
			"Number of keys in the result cache backend",
			labels, nil,
		),
		hits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "result_cache_backend_hits_total"),
			"Hits reported by the result cache backend",
			labels, nil,
		),
		misses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "result_cache_backend_misses_total"),
			"Misses reported by the result cache backend",
			labels, nil,
		),
		memory: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "result_cache_memory_bytes"),
			"Memory used by the result cache backend",
			labels, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *CacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.hits
	ch <- c.misses
	ch <- c.memory
}

// Collect implements prometheus.Collector. Ошибка бэкенда даёт пустой scrape.
func (c *CacheCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	stats, err := c.cache.Stats(ctx)
	if err != nil {
		logger.Log.Debug("result cache stats unavailable", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(stats.TotalKeys), stats.Backend)
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(stats.Hits), stats.Backend)
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(stats.Misses), stats.Backend)
	ch <- prometheus.MustNewConstMetric(c.memory, prometheus.GaugeValue, float64(stats.MemoryBytes), stats.Backend)
}

// RegisterCacheCollector регистрирует коллектор в реестре по умолчанию
func RegisterCacheCollector(namespace, subsystem string, c cache.Cache) error {
	return prometheus.Register(NewCacheCollector(namespace, subsystem, c))
}

// Timer для измерения времени выполнения этапа
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer создаёт новый таймер
func NewTimer(histogram *prometheus.HistogramVec, labels ...string) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram.WithLabelValues(labels...),
	}
}

// StageTimer создаёт таймер этапа пайплайна
func (m *Metrics) StageTimer(stage string) *Timer {
	return NewTimer(m.StageDuration, stage)
}

// ObserveDuration записывает длительность
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	t.observer.Observe(duration.Seconds())
	return duration
}
