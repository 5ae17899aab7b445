package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// EventType represents the kind of event.
type EventType string

const (
	EventTypeComponentDesigned   EventType = "component_designed"
	EventTypeSimulationCompleted EventType = "simulation_completed"
	EventTypeSimulationFailed    EventType = "simulation_failed"
)

// WriterID identifies events written by the daemon.
const WriterID = "faultsim-d"

var ErrLeaseLost = errors.New("lease lost or stolen")

// Lease represents a distributed lock held on a name.
type Lease struct {
	Name      string    `json:"name"`
	HolderID  string    `json:"holder_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Version   int64     `json:"version"` // bumped on every acquire or renew
	Epoch     int64     `json:"epoch"`   // bumped when the holder changes
}

// LeaseStore defines the interface for acquiring and renewing leases.
type LeaseStore interface {
	// Acquire tries to acquire the lease. Returns true if successful.
	// If the lease is already held by holderID, it renews it.
	Acquire(ctx context.Context, name, holderID string, ttl time.Duration) (bool, error)

	// Renew updates the expiry of an existing lease held by holderID.
	// Returns ErrLeaseLost if the lease is no longer held.
	Renew(ctx context.Context, name, holderID string, ttl time.Duration) error

	// Release releases the lease if held by holderID.
	Release(ctx context.Context, name, holderID string) error

	// Get returns the current lease state, or nil if nobody holds it.
	Get(ctx context.Context, name string) (*Lease, error)
}

// EventID is a unique identifier for an event.
type EventID string

// Event is the envelope written to the audit log for every design and
// simulation call.
type Event struct {
	EventID       EventID          `json:"event_id"`
	EventType     EventType        `json:"event_type"`
	SchemaVersion int              `json:"schema_version"`
	TsEvent       time.Time        `json:"ts_event"`
	TsIngest      time.Time        `json:"ts_ingest"`
	Source        EventSource      `json:"source"`
	Dimensions    EventDimensions  `json:"dimensions"`
	Correlation   EventCorrelation `json:"correlation"`
	Payload       json.RawMessage  `json:"payload"`
}

// EventSource describes the origin of the event.
type EventSource struct {
	OriginKind string `json:"origin_kind"` // api, mcp, cli
	OriginID   string `json:"origin_id"`
	WriterID   string `json:"writer_id"`
}

// EventDimensions scope an event to a namespace and, where relevant, a
// component or simulation.
type EventDimensions struct {
	Namespace    string `json:"namespace"`
	ComponentID  string `json:"component_id"`
	SimulationID string `json:"simulation_id"`
}

// EventCorrelation groups events logically.
type EventCorrelation struct {
	CorrelationID string `json:"correlation_id"`
	CausationID   string `json:"causation_id"`
}

// EventFilter defines filters for querying events.
type EventFilter struct {
	From       time.Time
	To         time.Time
	EventTypes []EventType
	Namespace  string
	Limit      int
}
