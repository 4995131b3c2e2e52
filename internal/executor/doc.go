/*
Package executor performs single timed HTTP calls for the load scheduler.

# Overview

An Executor owns one http.Client built over a pooled transport. The client
is created once and shared by every concurrent call of a run, so repeated
bursts against the same host reuse connections.

# Preparing Requests

Prepare turns an endpoint into a Request:
  - The method is parsed (GET, POST, PUT, DELETE, PATCH, OPTIONS, HEAD)
  - String bodies are sent verbatim
  - Other bodies are JSON-encoded and get Content-Type: application/json
    unless the endpoint configures a content type

An unknown method fails here, before any network traffic.

# Executing Requests

Do never returns an error. Every outcome is a types.RequestResult:
  - Network or protocol failure: Success false, Status 0, no body or headers
  - Response received: Success true with status, flattened headers and body
  - Unparsable (non-JSON) body: ResponseBody is nil

Duration is wall-clock milliseconds from request creation until the body is
read, or until the failure is detected.

# Example Usage

	exec := executor.New(executor.WithLogger(logger))

	req, err := exec.Prepare(&endpoint)
	if err != nil {
		return err
	}

	result := exec.Do(ctx, req)
	fmt.Printf("%d in %s\n", result.Status, executor.FormatDuration(result.DurationMs))
*/
package executor
