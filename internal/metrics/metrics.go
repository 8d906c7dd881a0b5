package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	MetricsEndpoint = "0.0.0.0:9090"
)

var (
	UpsertCounter *prometheus.CounterVec

	VaultSyncCounter        *prometheus.CounterVec
	VaultSyncRunTimeSummary *prometheus.SummaryVec

	APIRequestDurationSummary *prometheus.SummaryVec

	StoreQueryErrorCount *prometheus.CounterVec
)

func init() {
	UpsertCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_asset_upserts",
			Help: "A counter metric to measure the total count of asset upserts, by outcome",
		},
		[]string{"outcome"}, // outcome is created/updated/error
	)

	VaultSyncCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_vault_syncs",
			Help: "A counter metric to measure the total count of vault credential syncs, successful and failed",
		},
		[]string{"operation", "outcome"},
	)

	VaultSyncRunTimeSummary = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "inventory_vault_sync_duration_seconds",
			Help: "A summary metric to measure the total time spent in each vault sync",
		},
		[]string{"operation"},
	)

	APIRequestDurationSummary = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "inventory_api_request_duration_seconds",
			Help: "A summary metric to measure the time spent serving API requests",
		},
		[]string{"method", "route", "status"},
	)

	StoreQueryErrorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_store_query_error_count",
			Help: "A counter metric to measure the total count of errors querying the relational store.",
		},
		[]string{"query"},
	)
}

// ListenAndServe exposes prometheus metrics as /metrics
func ListenAndServe() {
	go func() {
		http.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              MetricsEndpoint,
			ReadHeaderTimeout: 2 * time.Second, // nolint:gomnd // time duration value is clear as is.
		}

		if err := server.ListenAndServe(); err != nil {
			log.Println(err)
		}
	}()
}
