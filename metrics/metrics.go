package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collectors of the service. A nil *Metrics records nothing.
type Metrics struct {
	submissions     *prometheus.CounterVec
	txSent          *prometheus.CounterVec
	confirmLatency  *prometheus.HistogramVec
	blocksScanned   prometheus.Counter
	resolves        *prometheus.CounterVec
	componentUp     *prometheus.GaugeVec
	requestDuration *prometheus.HistogramVec
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anchor_pipeline_submissions_total",
			Help: "anchor pipeline submissions by outcome",
		}, []string{"outcome"}),
		txSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anchor_ledger_transactions_sent_total",
			Help: "ledger transactions broadcast by result",
		}, []string{"result"}),
		confirmLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "anchor_ledger_confirm_seconds",
			Help:    "time from broadcast to receipt by final state",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
		}, []string{"state"}),
		blocksScanned: factory.NewCounter(prometheus.CounterOpts{
			Name: "anchor_resolver_blocks_scanned_total",
			Help: "blocks fetched by provenance scans",
		}),
		resolves: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anchor_resolver_lookups_total",
			Help: "provenance lookups by outcome",
		}, []string{"outcome"}),
		componentUp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "anchor_component_up",
			Help: "whether a dependency answered its last health probe (0 or 1)",
		}, []string{"component"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "anchor_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor exposes a specific registry
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) Submission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TxSent(result string) {
	if m == nil {
		return
	}
	m.txSent.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveConfirm(state string, d time.Duration) {
	if m == nil {
		return
	}
	m.confirmLatency.WithLabelValues(state).Observe(d.Seconds())
}

func (m *Metrics) BlockScanned() {
	if m == nil {
		return
	}
	m.blocksScanned.Inc()
}

func (m *Metrics) Resolve(outcome string) {
	if m == nil {
		return
	}
	m.resolves.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetComponentUp(component string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	m.componentUp.WithLabelValues(component).Set(v)
}

func (m *Metrics) ObserveRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}
