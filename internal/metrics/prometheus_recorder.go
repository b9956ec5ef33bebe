package metrics

import (
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const (
	namespaceConstant      = "depflow"
	resultSucceededLabel   = "success"
	resultFailedLabel      = "failed"
	cacheHitLabel          = "hit"
	cacheMissLabel         = "miss"
	resolutionMatchLabel   = "matched"
	resolutionNoMatchLabel = "unmatched"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	gitCommandDuration *prom.HistogramVec
	apiRequests        *prom.CounterVec
	rateLimitRetries   *prom.CounterVec
	blobCacheLookups   *prom.CounterVec
	buildFetches       prom.Counter
	dependencyResolved *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them with registry.
// A nil registry gets a private one.
func NewPrometheusRecorder(registry *prom.Registry) *PrometheusRecorder {
	if registry == nil {
		registry = prom.NewRegistry()
	}
	recorder := &PrometheusRecorder{
		gitCommandDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespaceConstant,
			Name:      "git_command_duration_seconds",
			Help:      "Duration of git subprocesses by subcommand and result",
			Buckets:   prom.DefBuckets,
		}, []string{"subcommand", "result"}),
		apiRequests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespaceConstant,
			Name:      "hosted_api_requests_total",
			Help:      "Hosted git provider API requests by operation and status code",
		}, []string{"operation", "status"}),
		rateLimitRetries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespaceConstant,
			Name:      "hosted_api_rate_limit_retries_total",
			Help:      "Requests retried after a rate limit response",
		}, []string{"operation"}),
		blobCacheLookups: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespaceConstant,
			Name:      "blob_cache_lookups_total",
			Help:      "Blob cache lookups by outcome",
		}, []string{"outcome"}),
		buildFetches: prom.NewCounter(prom.CounterOpts{
			Namespace: namespaceConstant,
			Name:      "build_registry_build_fetches_total",
			Help:      "Build metadata requests issued to the build registry",
		}),
		dependencyResolved: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespaceConstant,
			Name:      "dependencies_resolved_total",
			Help:      "Dependencies processed by the asset location resolver",
		}, []string{"outcome"}),
	}
	registry.MustRegister(
		recorder.gitCommandDuration,
		recorder.apiRequests,
		recorder.rateLimitRetries,
		recorder.blobCacheLookups,
		recorder.buildFetches,
		recorder.dependencyResolved,
	)
	return recorder
}

func (p *PrometheusRecorder) ObserveGitCommand(subcommand string, duration time.Duration, succeeded bool) {
	if p == nil {
		return
	}
	result := resultFailedLabel
	if succeeded {
		result = resultSucceededLabel
	}
	p.gitCommandDuration.WithLabelValues(subcommand, result).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) IncAPIRequest(operation string, statusCode int) {
	if p == nil {
		return
	}
	p.apiRequests.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
}

func (p *PrometheusRecorder) IncRateLimitRetry(operation string) {
	if p == nil {
		return
	}
	p.rateLimitRetries.WithLabelValues(operation).Inc()
}

func (p *PrometheusRecorder) IncBlobCache(hit bool) {
	if p == nil {
		return
	}
	outcome := cacheMissLabel
	if hit {
		outcome = cacheHitLabel
	}
	p.blobCacheLookups.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncBuildFetch() {
	if p == nil {
		return
	}
	p.buildFetches.Inc()
}

func (p *PrometheusRecorder) IncDependencyResolved(matched bool) {
	if p == nil {
		return
	}
	outcome := resolutionNoMatchLabel
	if matched {
		outcome = resolutionMatchLabel
	}
	p.dependencyResolved.WithLabelValues(outcome).Inc()
}
