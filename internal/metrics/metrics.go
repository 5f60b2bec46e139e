package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "demomap_requests_total",
		Help: "Total number of API requests by route",
	}, []string{"route"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "demomap_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"route"})
	ReconcileTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "demomap_reconcile_total",
		Help: "Total filter reconciliation passes",
	})
	ReconcileChangedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "demomap_reconcile_changed_total",
		Help: "Reconciliation passes that changed the filter state",
	})
	PrunedSelectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "demomap_pruned_selections_total",
		Help: "Selected values dropped because they were no longer valid options",
	}, []string{"dimension"})
	FilterResetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "demomap_filter_resets_total",
		Help: "Explicit filter resets",
	})
	SessionErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "demomap_session_errors_total",
		Help: "Session store errors by operation",
	}, []string{"op"})
	DatasetReloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "demomap_dataset_reloads_total",
		Help: "Dataset load attempts by status",
	}, []string{"status"})
	DatasetRows = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "demomap_dataset_rows",
		Help: "Rows in the currently served tables",
	}, []string{"table"})
	EmptyViewsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "demomap_empty_views_total",
		Help: "Dashboard views whose filtered result had no rows",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(ReconcileTotal)
	prometheus.MustRegister(ReconcileChangedTotal)
	prometheus.MustRegister(PrunedSelectionsTotal)
	prometheus.MustRegister(FilterResetsTotal)
	prometheus.MustRegister(SessionErrorsTotal)
	prometheus.MustRegister(DatasetReloadsTotal)
	prometheus.MustRegister(DatasetRows)
	prometheus.MustRegister(EmptyViewsTotal)
}

// 文档注释：返回 Prometheus 指标处理器，由主入口挂载到 <API_BASE>/metrics
func Handler() http.Handler { return promhttp.Handler() }
