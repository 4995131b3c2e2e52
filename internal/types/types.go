package types

import (
	"fmt"
	"net/http"
	"strings"
)

// DefaultThresholdMs is the latency tolerance applied when an endpoint has a
// previous result but no configured threshold.
const DefaultThresholdMs = 250.0

// Header match modes for expected_headers
const (
	HeaderMatchExact  = "exact"
	HeaderMatchSubset = "subset"
)

// Method is a supported HTTP verb
type Method string

const (
	MethodGet     Method = http.MethodGet
	MethodPost    Method = http.MethodPost
	MethodPut     Method = http.MethodPut
	MethodDelete  Method = http.MethodDelete
	MethodPatch   Method = http.MethodPatch
	MethodOptions Method = http.MethodOptions
	MethodHead    Method = http.MethodHead
)

var supportedMethods = []Method{
	MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch, MethodOptions, MethodHead,
}

// ParseMethod resolves a configured method name (case-insensitive)
func ParseMethod(raw string) (Method, error) {
	upper := Method(strings.ToUpper(strings.TrimSpace(raw)))
	for _, m := range supportedMethods {
		if upper == m {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: invalid HTTP method %q", ErrConfiguration, raw)
}

// Endpoint is one configured load-test target
type Endpoint struct {
	Name               string            `json:"name" yaml:"name" validate:"required"`
	URL                string            `json:"url" yaml:"url" validate:"required,url"`
	Method             string            `json:"method" yaml:"method" validate:"required"`
	ConcurrentRequests int               `json:"concurrent_requests" yaml:"concurrent_requests" validate:"min=1"`
	Cycles             int               `json:"cycles" yaml:"cycles" validate:"min=1"`
	Headers            map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body               any               `json:"body,omitempty" yaml:"body,omitempty"`
	ExpectedStatus     *int              `json:"expected_status,omitempty" yaml:"expected_status,omitempty" validate:"omitempty,min=100,max=599"`
	ExpectedBody       any               `json:"expected_body,omitempty" yaml:"expected_body,omitempty"`
	ExpectedHeaders    map[string]string `json:"expected_headers,omitempty" yaml:"expected_headers,omitempty"`
	Threshold          *float64          `json:"threshold,omitempty" yaml:"threshold,omitempty" validate:"omitempty,gte=0"`
	Ramp               *bool             `json:"ramp,omitempty" yaml:"ramp,omitempty"`
	BodyQuery          string            `json:"body_query,omitempty" yaml:"body_query,omitempty"`
	HeaderMatch        string            `json:"header_match,omitempty" yaml:"header_match,omitempty" validate:"omitempty,oneof=exact subset"`
}

// ShouldRamp reports whether the warm-up ramp runs (enabled unless explicitly false)
func (e *Endpoint) ShouldRamp() bool {
	return e.Ramp == nil || *e.Ramp
}

// EffectiveThreshold returns the configured threshold or DefaultThresholdMs
func (e *Endpoint) EffectiveThreshold() float64 {
	if e.Threshold == nil {
		return DefaultThresholdMs
	}
	return *e.Threshold
}

// RequestResult is the normalized outcome of one timed HTTP call
type RequestResult struct {
	DurationMs      float64
	Success         bool
	Status          int
	ResponseBody    any
	ResponseHeaders map[string]string
	Error           string // transport error message, empty on success
}

// HasBody reports whether the response body was parsed as structured data
func (r RequestResult) HasBody() bool {
	return r.ResponseBody != nil
}

// Cycle holds the results of one round of concurrent requests
type Cycle []RequestResult

// EndpointRun is every measured cycle for one endpoint in one invocation
type EndpointRun struct {
	EndpointName          string
	EndpointURL           string
	Cycles                []Cycle
	NumCycles             int
	NumConcurrentRequests int
}

// Expected holds tri-state expectation verdicts: nil when not configured
type Expected struct {
	Body       *bool `json:"body" yaml:"body"`
	StatusCode *bool `json:"status_code" yaml:"status_code"`
	Headers    *bool `json:"headers" yaml:"headers"`
}

// Passes is true when every configured expectation holds
func (e Expected) Passes() bool {
	return truthy(e.Body) && truthy(e.StatusCode) && truthy(e.Headers)
}

func truthy(b *bool) bool {
	return b == nil || *b
}

// Bool returns a pointer to b
func Bool(b bool) *bool {
	return &b
}

// LoadStats are aggregate latencies in milliseconds
type LoadStats struct {
	AverageResponseTime float64 `json:"average_response_time" yaml:"average_response_time"`
	MinResponseTime     float64 `json:"min_response_time" yaml:"min_response_time"`
	MaxResponseTime     float64 `json:"max_response_time" yaml:"max_response_time"`
}

// EndpointSummary is the compact endpoint description stored with a result
type EndpointSummary struct {
	NumCycles             int    `json:"num_cycles" yaml:"num_cycles"`
	NumConcurrentRequests int    `json:"num_concurrent_requests" yaml:"num_concurrent_requests"`
	EndpointName          string `json:"endpoint_name" yaml:"endpoint_name"`
	EndpointURL           string `json:"endpoint_url" yaml:"endpoint_url"`
}

// TestResult is the verdict for one endpoint in one run
type TestResult struct {
	Success         bool            `json:"success" yaml:"success"`
	WithinThreshold bool            `json:"within_threshold" yaml:"within_threshold"`
	Expected        Expected        `json:"expected" yaml:"expected"`
	Stats           LoadStats       `json:"stats" yaml:"stats"`
	Config          EndpointSummary `json:"config" yaml:"config"`
}

// Snapshot is a persisted record of one invocation's results.
// Changing TestResult's JSON shape breaks reading existing snapshot files.
type Snapshot struct {
	ID          string       `json:"id,omitempty" yaml:"id,omitempty"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Timestamp   uint64       `json:"timestamp" yaml:"timestamp"`
	Outputs     []TestResult `json:"outputs" yaml:"outputs"`
}

// Find returns the stored result for the named endpoint
func (s *Snapshot) Find(endpointName string) (*TestResult, error) {
	for i := range s.Outputs {
		if s.Outputs[i].Config.EndpointName == endpointName {
			return &s.Outputs[i], nil
		}
	}
	return nil, &SnapshotEntryNotFoundError{EndpointName: endpointName, Timestamp: s.Timestamp}
}

// Counts returns the number of passed and failed results
func (s *Snapshot) Counts() (passed, failed int) {
	for _, out := range s.Outputs {
		if out.Success {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}
