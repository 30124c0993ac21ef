package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: длительность обработки HTTP-запросов
	RequestDuration *prometheus.HistogramVec

	// Исходы элементов батча коммита (type: text/file/existing)
	CommitItems *prometheus.CounterVec

	// Трафик Upload Relay
	UploadBytes prometheus.Counter

	// Исходы фоновых ingest-триггеров
	TriggerResults *prometheus.CounterVec

	// Заполненность очереди диспетчера (backpressure)
	TriggerQueueFill prometheus.Gauge

	// Состояние Circuit Breaker клиента ингестии (0 - ок, 1 - выбило)
	UpstreamBreakerState prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern — если рег не передан, используем локальный,
	// который никуда не подключен (удобно в тестах).
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ragbase_request_duration_seconds",
			Help:    "Histogram of request latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route", "method", "status"}),

		CommitItems: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ragbase_commit_items_total",
			Help: "Per-item commit outcomes by source type and status.",
		}, []string{"type", "status"}),

		UploadBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "ragbase_upload_bytes_total",
			Help: "Total bytes accepted by the upload relay.",
		}),

		TriggerResults: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ragbase_ingest_triggers_total",
			Help: "Background ingest trigger outcomes.",
		}, []string{"status"}), // ok, failed, dropped

		TriggerQueueFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "ragbase_ingest_trigger_queue_fill",
			Help: "Current number of jobs in the trigger dispatcher queue.",
		}),

		UpstreamBreakerState: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "ragbase_ingest_breaker_state",
			Help: "Ingest client circuit breaker state (0=closed, 1=open).",
		}),
	}
}
