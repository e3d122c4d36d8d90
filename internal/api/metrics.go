package api

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"taxsun/internal/errors"
	"taxsun/internal/taxonomy"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	datasets         *prometheus.CounterVec
	pipelineDuration prometheus.Histogram
	hitsIngested     prometheus.Counter
	taxaProduced     prometheus.Histogram
	lookups          *prometheus.CounterVec
	cacheRequests    *prometheus.CounterVec
}

// NewMetrics registers the taxsun collectors, plus the Go runtime and
// process collectors, on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		datasets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taxsun_datasets_total",
			Help: "Hit tables processed, by outcome",
		}, []string{"endpoint", "outcome"}),
		pipelineDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "taxsun_pipeline_duration_seconds",
			Help:    "Time to aggregate one hit table",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		}),
		hitsIngested: f.NewCounter(prometheus.CounterOpts{
			Name: "taxsun_hits_ingested_total",
			Help: "Hits counted at the root across all aggregated tables",
		}),
		taxaProduced: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "taxsun_result_taxa",
			Help:    "Distinct taxa per aggregation result",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		lookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taxsun_directory_lookups_total",
			Help: "Taxonomy directory calls, by operation and outcome",
		}, []string{"op", "outcome"}),
		cacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taxsun_result_cache_requests_total",
			Help: "Result cache lookups, by result",
		}, []string{"result"}),
	}
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observeDataset(endpoint string, err error) {
	m.datasets.WithLabelValues(endpoint, outcomeOf(err)).Inc()
}

func (m *Metrics) observeResult(s taxonomy.Summary, elapsed time.Duration) {
	m.pipelineDuration.Observe(elapsed.Seconds())
	m.hitsIngested.Add(float64(s.Hits))
	m.taxaProduced.Observe(float64(s.Taxa))
}

func (m *Metrics) observeCache(hit bool) {
	if hit {
		m.cacheRequests.WithLabelValues("hit").Inc()
		return
	}
	m.cacheRequests.WithLabelValues("miss").Inc()
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	switch errors.CodeOf(err) {
	case errors.UnknownIdentifier, errors.MalformedRecord, errors.InvalidRequest, errors.NameNotFound, errors.UploadTooLarge:
		return "rejected"
	case errors.TaxonomyUnavailable:
		return "unavailable"
	default:
		return "error"
	}
}

// instrumentedDirectory counts directory calls.
type instrumentedDirectory struct {
	next    taxonomy.Directory
	metrics *Metrics
}

func (d instrumentedDirectory) Resolve(ctx context.Context, id string) (*taxonomy.Resolution, error) {
	res, err := d.next.Resolve(ctx, id)
	d.metrics.lookups.WithLabelValues("resolve", lookupOutcome(err)).Inc()
	return res, err
}

func (d instrumentedDirectory) LookupIDsByName(ctx context.Context, name string) ([]string, error) {
	ids, err := d.next.LookupIDsByName(ctx, name)
	outcome := lookupOutcome(err)
	if err == nil && len(ids) == 0 {
		outcome = "not_found"
	}
	d.metrics.lookups.WithLabelValues("lookup_name", outcome).Inc()
	return ids, err
}

func lookupOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.CodeOf(err) == errors.UnknownIdentifier:
		return "unknown"
	default:
		return "error"
	}
}
