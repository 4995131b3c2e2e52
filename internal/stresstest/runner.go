package stresstest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/studiowebux/ballast/internal/executor"
	"github.com/studiowebux/ballast/internal/types"
)

// Requester prepares and performs single calls. *executor.Executor implements it.
type Requester interface {
	Prepare(ep *types.Endpoint) (*executor.Request, error)
	Do(ctx context.Context, req *executor.Request) types.RequestResult
}

// Observer receives progress notifications from the Runner
type Observer interface {
	RampStarted(ep *types.Endpoint, steps int)
	RampFinished(ep *types.Endpoint)
	CycleStarted(ep *types.Endpoint, cycle, total int)
	EndpointFinished(ep *types.Endpoint, run *types.EndpointRun)
}

type nopObserver struct{}

func (nopObserver) RampStarted(*types.Endpoint, int)                     {}
func (nopObserver) RampFinished(*types.Endpoint)                         {}
func (nopObserver) CycleStarted(*types.Endpoint, int, int)               {}
func (nopObserver) EndpointFinished(*types.Endpoint, *types.EndpointRun) {}

// Runner executes warm-up ramps and measured cycles, one endpoint at a time
type Runner struct {
	requester Requester
	observer  Observer
	logger    *zap.Logger
	settle    time.Duration
}

// Option configures a Runner
type Option func(*Runner)

// WithObserver sets the progress observer
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithLogger sets the diagnostics logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithSettleInterval overrides SettleInterval
func WithSettleInterval(d time.Duration) Option {
	return func(r *Runner) { r.settle = d }
}

// NewRunner creates a Runner around a Requester
func NewRunner(requester Requester, opts ...Option) *Runner {
	r := &Runner{
		requester: requester,
		observer:  nopObserver{},
		logger:    zap.NewNop(),
		settle:    SettleInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run loads every endpoint in order. All endpoints are prepared first, so a
// configuration error aborts the invocation before any traffic is sent.
func (r *Runner) Run(ctx context.Context, endpoints []types.Endpoint) ([]types.EndpointRun, error) {
	requests := make([]*executor.Request, len(endpoints))
	for i := range endpoints {
		req, err := r.requester.Prepare(&endpoints[i])
		if err != nil {
			return nil, err
		}
		requests[i] = req
	}

	runs := make([]types.EndpointRun, 0, len(endpoints))
	for i := range endpoints {
		run, err := r.runEndpoint(ctx, &endpoints[i], requests[i])
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// RunEndpoint loads a single endpoint
func (r *Runner) RunEndpoint(ctx context.Context, ep *types.Endpoint) (types.EndpointRun, error) {
	req, err := r.requester.Prepare(ep)
	if err != nil {
		return types.EndpointRun{}, err
	}
	return r.runEndpoint(ctx, ep, req)
}

func (r *Runner) runEndpoint(ctx context.Context, ep *types.Endpoint, req *executor.Request) (types.EndpointRun, error) {
	if ep.Cycles < 1 || ep.ConcurrentRequests < 1 {
		return types.EndpointRun{}, fmt.Errorf("%w: endpoint %q needs at least one cycle and one concurrent request",
			types.ErrConfiguration, ep.Name)
	}

	log := r.logger.With(zap.String("endpoint", ep.Name))
	start := time.Now()

	if ep.ShouldRamp() {
		r.ramp(ctx, ep, req)
	}

	cycles := make([]types.Cycle, 0, ep.Cycles)
	for i := 0; i < ep.Cycles; i++ {
		r.observer.CycleStarted(ep, i, ep.Cycles)
		cycles = append(cycles, r.round(ctx, req, ep.ConcurrentRequests))
		sleepContext(ctx, r.settle)
	}

	run := types.EndpointRun{
		EndpointName:          ep.Name,
		EndpointURL:           ep.URL,
		Cycles:                cycles,
		NumCycles:             ep.Cycles,
		NumConcurrentRequests: ep.ConcurrentRequests,
	}

	log.Info("endpoint load finished",
		zap.Int("cycles", ep.Cycles),
		zap.Int("concurrent_requests", ep.ConcurrentRequests),
		zap.Duration("elapsed", time.Since(start)),
	)
	r.observer.EndpointFinished(ep, &run)
	return run, nil
}

// ramp fires increasing bursts and discards their results
func (r *Runner) ramp(ctx context.Context, ep *types.Endpoint, req *executor.Request) {
	steps := RampSteps(ep.Cycles, ep.ConcurrentRequests)
	r.observer.RampStarted(ep, len(steps))
	for _, n := range steps {
		r.round(ctx, req, n)
		sleepContext(ctx, r.settle)
	}
	r.observer.RampFinished(ep)
	r.logger.Debug("warm-up ramp finished", zap.String("endpoint", ep.Name), zap.Ints("steps", steps))
}

// round fires n concurrent calls and waits for all of them
func (r *Runner) round(ctx context.Context, req *executor.Request, n int) types.Cycle {
	cycle := make(types.Cycle, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			cycle[i] = r.requester.Do(ctx, req)
			return nil
		})
	}
	// Do never fails; Wait is the barrier
	_ = g.Wait()
	return cycle
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
