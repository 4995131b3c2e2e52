// Package report compares fresh results with the latest snapshot and renders
// the verdicts. It never writes to the snapshot store.
package report

import (
	"encoding/json"
	"fmt"

	"github.com/studiowebux/ballast/internal/config"
	"github.com/studiowebux/ballast/internal/types"
)

// Failure reason kinds
const (
	ReasonThreshold = "threshold"
	ReasonStatus    = "status"
	ReasonBody      = "body"
	ReasonHeaders   = "headers"
)

// Reason explains one failed check
type Reason struct {
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
}

// Stat is one latency figure with its change since the previous snapshot
type Stat struct {
	Label string   `json:"label" yaml:"label"`
	Value float64  `json:"value_ms" yaml:"value_ms"`
	Delta *float64 `json:"delta_ms,omitempty" yaml:"delta_ms,omitempty"`
}

// EndpointReport is the rendered verdict for one endpoint
type EndpointReport struct {
	Name        string   `json:"endpoint_name" yaml:"endpoint_name"`
	URL         string   `json:"endpoint_url" yaml:"endpoint_url"`
	Passed      bool     `json:"passed" yaml:"passed"`
	HasPrevious bool     `json:"has_previous" yaml:"has_previous"`
	Reasons     []Reason `json:"reasons,omitempty" yaml:"reasons,omitempty"`
	Stats       []Stat   `json:"stats" yaml:"stats"`
}

// Compare builds one report per result. latest may be nil.
func Compare(results []types.TestResult, cfg *config.Config, latest *types.Snapshot) ([]EndpointReport, error) {
	reports := make([]EndpointReport, 0, len(results))
	for i := range results {
		res := &results[i]
		ep, err := cfg.Find(res.Config.EndpointName)
		if err != nil {
			return nil, err
		}

		var prev *types.TestResult
		if latest != nil {
			// a missing entry means the endpoint is new since that snapshot
			prev, _ = latest.Find(res.Config.EndpointName)
		}

		reports = append(reports, EndpointReport{
			Name:        res.Config.EndpointName,
			URL:         res.Config.EndpointURL,
			Passed:      res.Success,
			HasPrevious: prev != nil,
			Reasons:     reasons(ep, res, prev),
			Stats:       stats(res, prev),
		})
	}
	return reports, nil
}

func reasons(ep *types.Endpoint, res, prev *types.TestResult) []Reason {
	if res.Success {
		return nil
	}

	var out []Reason
	if !res.WithinThreshold && prev != nil {
		out = append(out, Reason{
			Kind: ReasonThreshold,
			Message: fmt.Sprintf("average response time %s (expected %s +/- %s)",
				formatMs(res.Stats.AverageResponseTime),
				formatMs(prev.Stats.AverageResponseTime),
				formatMs(ep.EffectiveThreshold())),
		})
	}
	if isFalse(res.Expected.StatusCode) && ep.ExpectedStatus != nil {
		out = append(out, Reason{
			Kind:    ReasonStatus,
			Message: fmt.Sprintf("expected status code %d", *ep.ExpectedStatus),
		})
	}
	if isFalse(res.Expected.Body) {
		out = append(out, Reason{
			Kind:    ReasonBody,
			Message: "expected body " + compactJSON(ep.ExpectedBody),
		})
	}
	if isFalse(res.Expected.Headers) {
		out = append(out, Reason{
			Kind:    ReasonHeaders,
			Message: "expected headers " + compactJSON(ep.ExpectedHeaders),
		})
	}
	return out
}

func stats(res, prev *types.TestResult) []Stat {
	cur := res.Stats
	out := []Stat{
		{Label: "Avg response time", Value: cur.AverageResponseTime},
		{Label: "Max response time", Value: cur.MaxResponseTime},
		{Label: "Min response time", Value: cur.MinResponseTime},
	}
	if prev != nil {
		out[0].Delta = delta(cur.AverageResponseTime, prev.Stats.AverageResponseTime)
		out[1].Delta = delta(cur.MaxResponseTime, prev.Stats.MaxResponseTime)
		out[2].Delta = delta(cur.MinResponseTime, prev.Stats.MinResponseTime)
	}
	return out
}

func delta(current, previous float64) *float64 {
	d := current - previous
	return &d
}

func isFalse(b *bool) bool {
	return b != nil && !*b
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func formatMs(ms float64) string {
	return fmt.Sprintf("%.2fms", ms)
}

// Counts returns the number of passed and failed reports
func Counts(reports []EndpointReport) (passed, failed int) {
	for _, r := range reports {
		if r.Passed {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}
