package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Очередь.
var (
	QueueMessagesReserved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_messages_reserved_total",
			Help: "Number of messages reserved from the queue",
		},
		[]string{"queue"},
	)
	QueueReserveFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_reserve_failed_total",
			Help: "Number of failed reserve calls",
		},
		[]string{"queue"},
	)
)

// Загрузка в БД.
var (
	LoadCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "load_cycles_total",
			Help: "Number of load cycles by outcome",
		},
		[]string{"table", "outcome"}, // success|data_error|db_error|skipped
	)
	LoadCycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "load_cycle_duration_seconds",
			Help:    "Load cycle wall time",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"table"},
	)
	LoadRowsCopied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "load_rows_copied_total",
			Help: "Number of rows committed by COPY",
		},
		[]string{"table"},
	)
	WorkerRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_restarts_total",
			Help: "Number of loader worker restarts",
		},
		[]string{"table"},
	)
)

// Приём событий по HTTP.
var EventsIngested = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "events_ingested_total",
		Help: "Number of events received over HTTP by status",
	},
	[]string{"event", "status"}, // ok|invalid|failed
)

var registerOnce sync.Once

// MustRegister — регистрирует метрики в default registry; повторный вызов ничего не делает.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			QueueMessagesReserved, QueueReserveFailed,
			LoadCycles, LoadCycleDuration, LoadRowsCopied, WorkerRestarts,
			EventsIngested,
		)
	})
}
