package simulation

import (
	"time"

	"github.com/adamsih300u/bastion-sub008/pkg/analysis"
	"github.com/adamsih300u/bastion-sub008/pkg/graph"
)

// Simulation types accepted by SimulateFailure.
const (
	TypeSingle     = "single"
	TypeCascade    = "cascade"
	TypeMonteCarlo = "monte_carlo"
)

// DesignResponse is the result of DesignComponent.
type DesignResponse struct {
	Success      bool   `json:"success"`
	ComponentID  string `json:"component_id"`
	Message      string `json:"message"`
	Error        string `json:"error,omitempty"`
	TopologyJSON string `json:"topology_json"`
}

// SimulateRequest describes one simulate_failure call.
type SimulateRequest struct {
	FailedComponentIDs   []string          `json:"failed_component_ids" yaml:"failed_component_ids"`
	FailureModes         []string          `json:"failure_modes" yaml:"failure_modes"`
	SimulationType       string            `json:"simulation_type" yaml:"simulation_type"`
	MonteCarloIterations int               `json:"monte_carlo_iterations,omitempty" yaml:"monte_carlo_iterations,omitempty"`
	FailureParameters    map[string]string `json:"failure_parameters,omitempty" yaml:"failure_parameters,omitempty"`
}

// ComponentState is the reported state of one component after a simulation.
type ComponentState struct {
	ComponentID        string            `json:"component_id"`
	State              graph.State       `json:"state"`
	FailedDependencies []string          `json:"failed_dependencies"`
	FailureProbability float64           `json:"failure_probability"`
	FailureMode        string            `json:"failure_mode,omitempty"`
	RedundancyAtRisk   bool              `json:"redundancy_at_risk"`
	Metadata           map[string]string `json:"metadata"`
}

// SimulateResponse is the result of SimulateFailure. On failure the
// collections are empty and Error is set.
type SimulateResponse struct {
	Success         bool                   `json:"success"`
	SimulationID    string                 `json:"simulation_id"`
	Namespace       string                 `json:"namespace"`
	SimulationType  string                 `json:"simulation_type"`
	Iterations      int                    `json:"iterations,omitempty"`
	ComponentStates []ComponentState       `json:"component_states"`
	FailurePaths    []analysis.FailurePath `json:"failure_paths"`
	HealthMetrics   analysis.HealthMetrics `json:"health_metrics"`
	TopologyJSON    string                 `json:"topology_json"`
	Error           string                 `json:"error,omitempty"`
	CompletedAt     time.Time              `json:"completed_at"`
}

// TopologyResponse is the result of GetTopology.
type TopologyResponse struct {
	Success          bool     `json:"success"`
	Namespace        string   `json:"namespace"`
	TopologyJSON     string   `json:"topology_json"`
	ComponentCount   int      `json:"component_count"`
	EdgeCount        int      `json:"edge_count"`
	RedundancyGroups []string `json:"redundancy_groups"`
	Error            string   `json:"error,omitempty"`
}

// Scenario is a self-contained topology, one simulation request and the
// invariants its result must satisfy.
type Scenario struct {
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description" yaml:"description"`
	Namespace   string             `json:"namespace" yaml:"namespace"`
	Seed        int64              `json:"seed" yaml:"seed"`
	Workers     int                `json:"workers" yaml:"workers"`
	Components  []graph.DesignSpec `json:"components" yaml:"components"`
	Simulation  SimulateRequest    `json:"simulation" yaml:"simulation"`
	Invariants  []Invariant        `json:"invariants,omitempty" yaml:"invariants,omitempty"`
}

type Invariant struct {
	Metric    string  `json:"metric" yaml:"metric"`       // e.g. "system_health_score", "failed_components"
	Condition string  `json:"condition" yaml:"condition"` // ">", ">=", "<", "<=", "=="
	Value     float64 `json:"value" yaml:"value"`
	Scope     string  `json:"scope" yaml:"scope"` // component id for per-component metrics
}

type InvariantResult struct {
	Metric   string `json:"metric"`
	Scope    string `json:"scope"`
	Expected string `json:"expected"` // e.g. "<= 0.50"
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`
}

// ScenarioResult captures a scenario run for reporting.
type ScenarioResult struct {
	ScenarioName string            `json:"scenario_name"`
	Duration     time.Duration     `json:"duration"`
	Simulation   SimulateResponse  `json:"simulation"`
	Invariants   []InvariantResult `json:"invariants"`
	Success      bool              `json:"success"`
	Error        string            `json:"error,omitempty"`
}
