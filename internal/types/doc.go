/*
Package types defines the data structures shared by every ballast package.

# Configuration

Endpoint:
  - One configured target (name, url, method, concurrency, cycles)
  - Optional request headers and body
  - Optional expectations (status, body, headers) and latency threshold
  - Warm-up ramp flag (enabled unless explicitly false)

The endpoint name is the key used to match results across runs.

# Run Data

RequestResult, Cycle and EndpointRun are produced fresh for every invocation
and never persisted:
  - RequestResult: one timed call (duration, transport success, status, body, headers)
  - Cycle: one round of concurrent results
  - EndpointRun: every measured cycle of one endpoint

# Verdicts

Expected holds three tri-state checks. A nil field means the endpoint did not
configure that expectation and is treated as passing.

TestResult is the per-endpoint verdict and the unit stored in a Snapshot.
Snapshots are append-only and selected by maximum timestamp.

# Errors

Sentinels classify failures for callers using errors.Is:
  - ErrConfiguration: invalid endpoint files, unknown methods, unknown endpoints
  - ErrPersistence: unreadable, corrupt or unwritable snapshot stores
  - ErrTimestamp: the clock could not produce a snapshot timestamp
*/
package types
