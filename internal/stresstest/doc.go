/*
Package stresstest schedules load against configured endpoints.

# Overview

The Runner processes endpoints one at a time, never concurrently with each
other. For each endpoint it runs:
  1. An optional logarithmic warm-up ramp whose results are discarded
  2. Exactly `cycles` measured rounds of `concurrent_requests` parallel calls

Each round fans out N calls and waits for all of them before anything else
happens (a full barrier). A fixed SettleInterval pause follows every round
and every ramp step.

# Warm-up Ramp

The ramp avoids cold-start bias (connection setup, lazy initialization) in
the measured cycles. It has ceil(cycles/2) steps; step i fires

	ceil(exp(i/steps * ln(concurrent_requests)))

requests, clamped to [1, concurrent_requests]. RampSteps exposes the
sequence so it can be tested without running any traffic.

# Failure Handling

A failed request never aborts its round or its endpoint: the Requester
returns failures as data. An endpoint with an unsupported method aborts the
whole invocation before any traffic, because every endpoint is prepared
before the first one runs.

# Example Usage

	exec := executor.New()
	runner := stresstest.NewRunner(exec,
		stresstest.WithObserver(printer),
		stresstest.WithLogger(logger),
	)

	runs, err := runner.Run(ctx, cfg.Endpoints)
	if err != nil {
		return err
	}

# Thread Safety

A Runner is used by a single goroutine. Within a round, the Requester is
called concurrently; *executor.Executor is safe for that.
*/
package stresstest
