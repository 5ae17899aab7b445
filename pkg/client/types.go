package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNamespaceBusy is matched by an *APIError whose code is namespace_busy,
// returned once retries are exhausted.
var ErrNamespaceBusy = errors.New("namespace busy")

// APIError is a non-2xx response from the daemon.
type APIError struct {
	StatusCode int      `json:"-"`
	Code       string   `json:"error"`
	Details    []string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("faultsim: %d %s: %v", e.StatusCode, e.Code, e.Details)
	}
	return fmt.Sprintf("faultsim: %d %s", e.StatusCode, e.Code)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNamespaceBusy && e.Code == "namespace_busy"
}

// Status represents the health check response.
type Status struct {
	Status string `json:"status"`
}

// Event is one entry of the daemon's audit log.
type Event struct {
	EventID       string           `json:"event_id"`
	EventType     string           `json:"event_type"`
	SchemaVersion int              `json:"schema_version"`
	TsEvent       time.Time        `json:"ts_event"`
	TsIngest      time.Time        `json:"ts_ingest"`
	Source        EventSource      `json:"source"`
	Dimensions    EventDimensions  `json:"dimensions"`
	Correlation   EventCorrelation `json:"correlation"`
	Payload       json.RawMessage  `json:"payload"`
}

type EventSource struct {
	OriginKind string `json:"origin_kind"`
	OriginID   string `json:"origin_id"`
	WriterID   string `json:"writer_id"`
}

type EventDimensions struct {
	Namespace    string `json:"namespace"`
	ComponentID  string `json:"component_id"`
	SimulationID string `json:"simulation_id"`
}

type EventCorrelation struct {
	CorrelationID string `json:"correlation_id"`
	CausationID   string `json:"causation_id"`
}

// EventsOptions filters GetEvents. Zero values mean no filter.
type EventsOptions struct {
	Limit     int
	Namespace string
	Type      string
}
