package types

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks invalid or unresolvable endpoint configuration
	ErrConfiguration = errors.New("configuration error")

	// ErrPersistence marks an unreadable, corrupt or unwritable snapshot store
	ErrPersistence = errors.New("persistence error")

	// ErrTimestamp marks a failure to obtain the current time for a snapshot
	ErrTimestamp = errors.New("timestamp error")
)

// EndpointNotFoundError is returned when a run names an endpoint missing from the configuration
type EndpointNotFoundError struct {
	Name       string
	Suggestion string
}

func (e *EndpointNotFoundError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("endpoint %q not found in configuration (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("endpoint %q not found in configuration", e.Name)
}

func (e *EndpointNotFoundError) Unwrap() error {
	return ErrConfiguration
}

// SnapshotEntryNotFoundError is returned when a snapshot has no result for an endpoint
type SnapshotEntryNotFoundError struct {
	EndpointName string
	Timestamp    uint64
}

func (e *SnapshotEntryNotFoundError) Error() string {
	return fmt.Sprintf("snapshot %d has no entry for endpoint %q", e.Timestamp, e.EndpointName)
}

func (e *SnapshotEntryNotFoundError) Unwrap() error {
	return ErrConfiguration
}
