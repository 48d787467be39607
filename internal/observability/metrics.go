// Package observability carries the engine's metrics and tracing
// instrumentation. Neither is load-bearing for correctness: both are
// best-effort side channels an operator can wire a scrape/export target to.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the rule engine.
type Metrics struct {
	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration *prometheus.HistogramVec
	RulesApplicable    prometheus.Gauge
	RulesMatched       *prometheus.HistogramVec
	RuleErrorsTotal    *prometheus.CounterVec
	ASTCacheHits       prometheus.Counter
	ASTCacheMisses     prometheus.Counter
}

// NewMetrics creates and registers every collector against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		EvaluationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rulecore",
				Name:      "evaluations_total",
				Help:      "Total number of evaluate_rules calls, by final action",
			},
			[]string{"final_action"},
		),
		EvaluationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rulecore",
				Name:      "evaluation_duration_seconds",
				Help:      "Wall time of a full evaluate_rules pass",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"timed_out"},
		),
		RulesApplicable: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "rulecore",
				Name:      "rules_applicable",
				Help:      "Number of rules considered in the most recent evaluation",
			},
		),
		RulesMatched: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rulecore",
				Name:      "rules_matched_count",
				Help:      "Distribution of matched-rule counts per evaluation",
				Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
			},
			[]string{"scope"},
		),
		RuleErrorsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rulecore",
				Name:      "rule_errors_total",
				Help:      "Total structured errors surfaced by the tool surface, by code",
			},
			[]string{"code"},
		),
		ASTCacheHits: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "rulecore",
				Name:      "ast_cache_hits_total",
				Help:      "Compiled-expression cache hits",
			},
		),
		ASTCacheMisses: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "rulecore",
				Name:      "ast_cache_misses_total",
				Help:      "Compiled-expression cache misses",
			},
		),
	}
}
