package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/studiowebux/ballast/internal/types"
)

const (
	// HTTP client configuration timeouts
	TCPDialTimeout        = 5 * time.Second
	TCPKeepAliveInterval  = 30 * time.Second
	TLSHandshakeTimeout   = 5 * time.Second
	IdleConnTimeout       = 90 * time.Second
	ExpectContinueTimeout = 1 * time.Second

	// DefaultPoolSize bounds idle connections kept per host
	DefaultPoolSize = 100
)

// Request is a prepared call for one endpoint, safe to send concurrently
type Request struct {
	Method  types.Method
	URL     string
	Headers map[string]string
	Body    []byte
}

// Executor sends timed HTTP calls over one shared client
type Executor struct {
	httpClient *http.Client
	logger     *zap.Logger
	timeout    time.Duration
	poolSize   int
}

// Option configures an Executor
type Option func(*Executor)

// WithTimeout sets an overall per-request timeout (0 keeps the transport defaults only)
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// WithPoolSize sets the idle connection pool size per host
func WithPoolSize(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.poolSize = n
		}
	}
}

// WithHTTPClient replaces the built-in client
func WithHTTPClient(c *http.Client) Option {
	return func(e *Executor) { e.httpClient = c }
}

// WithLogger sets the diagnostics logger
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// New creates an Executor. The client is built once and shared by every call.
func New(opts ...Option) *Executor {
	e := &Executor{
		logger:   zap.NewNop(),
		poolSize: DefaultPoolSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.httpClient == nil {
		e.httpClient = buildHTTPClient(e.poolSize, e.timeout)
	}
	return e
}

// buildHTTPClient creates a client tuned for repeated concurrent bursts
// against the same hosts
func buildHTTPClient(poolSize int, timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        poolSize,
		MaxIdleConnsPerHost: poolSize,
		IdleConnTimeout:     IdleConnTimeout,
		ForceAttemptHTTP2:   true,
		DialContext: (&net.Dialer{
			Timeout:   TCPDialTimeout,
			KeepAlive: TCPKeepAliveInterval,
		}).DialContext,
		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ExpectContinueTimeout: ExpectContinueTimeout,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Prepare validates an endpoint's method and encodes its body.
// An unsupported method is a configuration error, reported before any I/O.
func (e *Executor) Prepare(ep *types.Endpoint) (*Request, error) {
	method, err := types.ParseMethod(ep.Method)
	if err != nil {
		return nil, fmt.Errorf("endpoint %q: %w", ep.Name, err)
	}

	headers := make(map[string]string, len(ep.Headers)+1)
	for k, v := range ep.Headers {
		headers[k] = v
	}

	body, isJSON, err := encodeBody(ep.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: endpoint %q: failed to encode body: %v", types.ErrConfiguration, ep.Name, err)
	}
	if isJSON && !hasHeader(headers, "Content-Type") {
		headers["Content-Type"] = "application/json"
	}

	return &Request{
		Method:  method,
		URL:     ep.URL,
		Headers: headers,
		Body:    body,
	}, nil
}

// encodeBody sends string bodies verbatim and JSON-encodes anything else
func encodeBody(body any) ([]byte, bool, error) {
	switch b := body.(type) {
	case nil:
		return nil, false, nil
	case string:
		return []byte(b), false, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, false, err
		}
		return data, true, nil
	}
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// Do performs one timed call. It never returns an error: transport failures
// produce a result with Success false and Status 0.
func (e *Executor) Do(ctx context.Context, req *Request) types.RequestResult {
	startTime := time.Now()

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), req.URL, bodyReader)
	if err != nil {
		return e.failed(req, startTime, fmt.Errorf("failed to create request: %w", err))
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return e.failed(req, startTime, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return e.failed(req, startTime, fmt.Errorf("failed to read response body: %w", err))
	}
	duration := elapsedMs(startTime)

	headers := make(map[string]string, len(resp.Header))
	for key, values := range resp.Header {
		headers[key] = strings.Join(values, ", ")
	}

	return types.RequestResult{
		DurationMs:      duration,
		Success:         true,
		Status:          resp.StatusCode,
		ResponseBody:    parseBody(bodyBytes),
		ResponseHeaders: headers,
	}
}

func (e *Executor) failed(req *Request, startTime time.Time, err error) types.RequestResult {
	duration := elapsedMs(startTime)
	e.logger.Debug("request failed",
		zap.String("method", string(req.Method)),
		zap.String("url", req.URL),
		zap.Float64("duration_ms", duration),
		zap.Error(err),
	)
	return types.RequestResult{
		DurationMs: duration,
		Success:    false,
		Status:     0,
		Error:      err.Error(),
	}
}

// parseBody decodes a JSON body; anything unparsable is treated as absent
func parseBody(data []byte) any {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var body any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil
	}
	return body
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

// FormatDuration formats milliseconds to a human-readable string
func FormatDuration(ms float64) string {
	if ms < 1000 {
		return fmt.Sprintf("%.2fms", ms)
	}
	return fmt.Sprintf("%.2fs", ms/1000.0)
}
