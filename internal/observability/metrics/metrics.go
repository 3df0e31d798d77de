package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Outcome string

const (
	Success                  Outcome       = "success"
	Error                    Outcome       = "error"
	MetricRequestTimeout     time.Duration = 5 * time.Second
	MetricRequestIdleTimeout time.Duration = 10 * time.Second
)

func (O Outcome) String() string {
	return string(O)
}

var (
	once                    sync.Once
	metricsRouter           *chi.Mux
	ledgerOpDuration        *prometheus.HistogramVec
	queueSendErrorCounter   prometheus.Counter
	reentrancyRejectCounter prometheus.Counter
	poolsCountGauge         prometheus.Gauge
	poolTotalStakedGauge    *prometheus.GaugeVec
	dbLatency               *prometheus.HistogramVec
)

// Init initializes the metrics package.
func Init(metricsPort int) {
	once.Do(func() {
		initMetricsRouter(metricsPort)
		registerMetrics()
	})
}

// initMetricsRouter initializes the metrics router.
func initMetricsRouter(metricsPort int) {
	metricsRouter = chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	metricsAddr := fmt.Sprintf(":%d", metricsPort)
	server := &http.Server{
		Addr:         metricsAddr,
		Handler:      metricsRouter,
		ReadTimeout:  MetricRequestTimeout,
		WriteTimeout: MetricRequestTimeout,
		IdleTimeout:  MetricRequestIdleTimeout,
	}

	go func() {
		log.Printf("Starting metrics server on %s", metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msgf("Error starting metrics server on %s", metricsAddr)
		}
	}()
}

// registerMetrics initializes and register the Prometheus metrics.
func registerMetrics() {
	defaultHistogramBucketsSeconds := []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5}

	ledgerOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Histogram of ledger operation durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"operation", "status"},
	)

	queueSendErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_send_error_count",
			Help: "The total number of errors when publishing events to the queue",
		},
	)

	reentrancyRejectCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_reentrancy_reject_count",
			Help: "Number of nested calls rejected by the reentrancy guard",
		},
	)

	poolsCountGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_pools_count",
			Help: "Number of registered pools",
		},
	)

	poolTotalStakedGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledger_pool_total_staked",
			Help: "Total staked balance per pool (approximate, float precision)",
		},
		[]string{"pool_id"},
	)

	dbLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "db_latency_seconds",
			Help: "DB latency in seconds splitted by method and execution status",
		},
		[]string{"method", "status"},
	)

	prometheus.MustRegister(
		ledgerOpDuration,
		queueSendErrorCounter,
		reentrancyRejectCounter,
		poolsCountGauge,
		poolTotalStakedGauge,
		dbLatency,
	)
}

func RecordLedgerOpDuration(d time.Duration, operation string, failure bool) {
	status := Success
	if failure {
		status = Error
	}

	ledgerOpDuration.WithLabelValues(operation, status.String()).Observe(d.Seconds())
}

func RecordDbLatency(d time.Duration, method string, failure bool) {
	status := Success
	if failure {
		status = Error
	}

	dbLatency.WithLabelValues(method, status.String()).Observe(d.Seconds())
}

func RecordQueueSendError() {
	queueSendErrorCounter.Inc()
}

func IncReentrancyRejects() {
	reentrancyRejectCounter.Inc()
}

func RecordPoolsCount(count int) {
	poolsCountGauge.Set(float64(count))
}

func RecordPoolTotalStaked(poolID uint64, totalStaked float64) {
	poolTotalStakedGauge.WithLabelValues(fmt.Sprintf("%d", poolID)).Set(totalStaked)
}
