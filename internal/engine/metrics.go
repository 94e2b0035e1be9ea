package engine

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metric names tracked by the engine registry.
const (
	MetricAnalysisRuns     = "analysis_runs"
	MetricGuardrailDenials = "guardrail_denials"
	MetricRateLimitDenials = "rate_limit_denials"
	MetricBundleHits       = "bundle_hits"
	MetricBundleMisses     = "bundle_misses"
	MetricLocalScores      = "local_scores"
	MetricLLMCalls         = "llm_calls"
	MetricLLMErrors        = "llm_errors"
	MetricSearchRequests   = "search_requests"
	MetricSearchTimeouts   = "search_timeouts"
)

// metricOrder fixes the output order of FormatMetrics.
var metricOrder = []string{
	MetricAnalysisRuns,
	MetricGuardrailDenials,
	MetricRateLimitDenials,
	MetricBundleHits,
	MetricBundleMisses,
	MetricLocalScores,
	MetricLLMCalls,
	MetricLLMErrors,
	MetricSearchRequests,
	MetricSearchTimeouts,
}

var counters = func() map[string]*atomic.Int64 {
	m := make(map[string]*atomic.Int64, len(metricOrder))
	for _, name := range metricOrder {
		m[name] = &atomic.Int64{}
	}
	return m
}()

// Incr increments a named counter. Unknown names are ignored.
func Incr(name string) {
	if c, ok := counters[name]; ok {
		c.Add(1)
	}
}

// GetMetrics returns a snapshot of all counters.
func GetMetrics() map[string]int64 {
	out := make(map[string]int64, len(counters))
	for name, c := range counters {
		out[name] = c.Load()
	}
	return out
}

// FormatMetrics returns metrics as a simple text format for the HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, name := range metricOrder {
		fmt.Fprintf(&sb, "%s %d\n", name, m[name])
	}
	return sb.String()
}
