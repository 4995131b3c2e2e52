// Package analytics turns raw load runs into per-endpoint verdicts and latency statistics.
package analytics

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/studiowebux/ballast/internal/config"
	"github.com/studiowebux/ballast/internal/filter"
	"github.com/studiowebux/ballast/internal/types"
)

// EvaluateRequest checks one response against the endpoint's expectations.
// Fields the endpoint does not configure stay nil.
func EvaluateRequest(ep *types.Endpoint, r types.RequestResult) types.Expected {
	var exp types.Expected

	if ep.ExpectedStatus != nil {
		exp.StatusCode = types.Bool(r.Status == *ep.ExpectedStatus)
	}

	if ep.ExpectedBody != nil {
		body := projectBody(ep, r)
		if body == nil {
			exp.Body = types.Bool(false)
		} else {
			exp.Body = types.Bool(reflect.DeepEqual(ep.ExpectedBody, body))
		}
	}

	if ep.ExpectedHeaders != nil {
		if r.ResponseHeaders == nil {
			exp.Headers = types.Bool(false)
		} else {
			exp.Headers = types.Bool(matchHeaders(ep.ExpectedHeaders, r.ResponseHeaders, ep.HeaderMatch))
		}
	}

	return exp
}

// projectBody returns the body to compare, nil when absent or when the
// body query fails
func projectBody(ep *types.Endpoint, r types.RequestResult) any {
	if !r.HasBody() || ep.BodyQuery == "" {
		return r.ResponseBody
	}
	projected, err := filter.Project(r.ResponseBody, ep.BodyQuery)
	if err != nil {
		return nil
	}
	return projected
}

// matchHeaders compares header maps with canonicalized names
func matchHeaders(expected, actual map[string]string, mode string) bool {
	want := canonicalHeaders(expected)
	got := canonicalHeaders(actual)

	if mode == types.HeaderMatchSubset {
		for name, value := range want {
			if v, ok := got[name]; !ok || v != value {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(want, got)
}

func canonicalHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for name, value := range h {
		out[http.CanonicalHeaderKey(name)] = value
	}
	return out
}

// Reduce folds a sequence of Expected values into one. A field is nil when
// the endpoint never configured it, otherwise true only if every element
// holds true for it. The same rule applies per cycle and per endpoint.
func Reduce(ep *types.Endpoint, items []types.Expected) types.Expected {
	var out types.Expected
	if ep.ExpectedBody != nil {
		out.Body = allTrue(items, func(e types.Expected) *bool { return e.Body })
	}
	if ep.ExpectedStatus != nil {
		out.StatusCode = allTrue(items, func(e types.Expected) *bool { return e.StatusCode })
	}
	if ep.ExpectedHeaders != nil {
		out.Headers = allTrue(items, func(e types.Expected) *bool { return e.Headers })
	}
	return out
}

func allTrue(items []types.Expected, field func(types.Expected) *bool) *bool {
	for _, item := range items {
		v := field(item)
		if v == nil || !*v {
			return types.Bool(false)
		}
	}
	return types.Bool(true)
}

// EvaluateRun reduces every request of a run: per cycle first, then across cycles
func EvaluateRun(ep *types.Endpoint, run *types.EndpointRun) types.Expected {
	perCycle := make([]types.Expected, 0, len(run.Cycles))
	for _, cycle := range run.Cycles {
		perRequest := make([]types.Expected, 0, len(cycle))
		for _, r := range cycle {
			perRequest = append(perRequest, EvaluateRequest(ep, r))
		}
		perCycle = append(perCycle, Reduce(ep, perRequest))
	}
	return Reduce(ep, perCycle)
}

// ComputeStats aggregates latencies: the average is the mean of per-cycle
// means, min and max are global across all requests.
func ComputeStats(run *types.EndpointRun) types.LoadStats {
	var (
		sumOfMeans float64
		cycles     int
		minMs      = -1.0
		maxMs      = -1.0
	)

	for _, cycle := range run.Cycles {
		if len(cycle) == 0 {
			continue
		}
		var total float64
		for _, r := range cycle {
			total += r.DurationMs
			if minMs == -1 || r.DurationMs < minMs {
				minMs = r.DurationMs
			}
			if maxMs == -1 || r.DurationMs > maxMs {
				maxMs = r.DurationMs
			}
		}
		sumOfMeans += total / float64(len(cycle))
		cycles++
	}

	if cycles == 0 {
		return types.LoadStats{}
	}
	return types.LoadStats{
		AverageResponseTime: sumOfMeans / float64(cycles),
		MinResponseTime:     minMs,
		MaxResponseTime:     maxMs,
	}
}

// WithinThreshold reports whether the current average stays under the
// previous average plus the tolerance. Without a previous result it is true.
func WithinThreshold(current types.LoadStats, previous *types.TestResult, thresholdMs float64) bool {
	if previous == nil {
		return true
	}
	return current.AverageResponseTime < previous.Stats.AverageResponseTime+thresholdMs
}

// Evaluate builds the TestResult for one run
func Evaluate(ep *types.Endpoint, run *types.EndpointRun, previous *types.TestResult) types.TestResult {
	expected := EvaluateRun(ep, run)
	stats := ComputeStats(run)
	within := WithinThreshold(stats, previous, ep.EffectiveThreshold())

	return types.TestResult{
		Success:         expected.Passes() && within,
		WithinThreshold: within,
		Expected:        expected,
		Stats:           stats,
		Config: types.EndpointSummary{
			NumCycles:             run.NumCycles,
			NumConcurrentRequests: run.NumConcurrentRequests,
			EndpointName:          run.EndpointName,
			EndpointURL:           run.EndpointURL,
		},
	}
}

// Process evaluates every run against its configured endpoint and the
// matching entry of the previous snapshot, if any. A run naming an endpoint
// missing from the configuration is an error.
func Process(runs []types.EndpointRun, cfg *config.Config, previous *types.Snapshot) ([]types.TestResult, error) {
	results := make([]types.TestResult, 0, len(runs))
	for i := range runs {
		run := &runs[i]
		ep, err := cfg.Find(run.EndpointName)
		if err != nil {
			return nil, err
		}

		prev, err := previousResult(previous, run.EndpointName)
		if err != nil {
			return nil, err
		}

		results = append(results, Evaluate(ep, run, prev))
	}
	return results, nil
}

// previousResult finds the endpoint's prior result. A snapshot that predates
// the endpoint has no entry, which counts as no prior result.
func previousResult(snap *types.Snapshot, name string) (*types.TestResult, error) {
	if snap == nil {
		return nil, nil
	}
	prev, err := snap.Find(name)
	if err != nil {
		var missing *types.SnapshotEntryNotFoundError
		if errors.As(err, &missing) {
			return nil, nil
		}
		return nil, err
	}
	return prev, nil
}
