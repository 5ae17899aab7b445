package api

import (
	"github.com/adamsih300u/bastion-sub008/pkg/graph"
	"github.com/adamsih300u/bastion-sub008/pkg/simulation"
)

// DesignRequest is the body of POST /v1/namespaces/{namespace}/components.
type DesignRequest struct {
	ComponentID        string             `json:"component_id" validate:"required"`
	ComponentType      string             `json:"component_type"`
	Requires           []string           `json:"requires"`
	Provides           []string           `json:"provides"`
	RedundancyGroup    string             `json:"redundancy_group,omitempty"`
	Criticality        *int               `json:"criticality,omitempty"`
	Metadata           map[string]string  `json:"metadata,omitempty"`
	DependencyLogic    string             `json:"dependency_logic,omitempty"`
	MOfNThreshold      int                `json:"m_of_n_threshold,omitempty"`
	DependencyWeights  map[string]float64 `json:"dependency_weights,omitempty"`
	IntegrityThreshold *float64           `json:"integrity_threshold,omitempty"`
}

func (r DesignRequest) spec() graph.DesignSpec {
	return graph.DesignSpec{
		ComponentID:        r.ComponentID,
		ComponentType:      r.ComponentType,
		Requires:           r.Requires,
		Provides:           r.Provides,
		RedundancyGroup:    r.RedundancyGroup,
		Criticality:        r.Criticality,
		Metadata:           r.Metadata,
		DependencyLogic:    graph.Logic(r.DependencyLogic),
		MOfNThreshold:      r.MOfNThreshold,
		DependencyWeights:  r.DependencyWeights,
		IntegrityThreshold: r.IntegrityThreshold,
	}
}

// SimulateRequest is the body of POST /v1/namespaces/{namespace}/simulations.
type SimulateRequest struct {
	FailedComponentIDs   []string          `json:"failed_component_ids"`
	FailureModes         []string          `json:"failure_modes"`
	SimulationType       string            `json:"simulation_type" validate:"omitempty,oneof=single cascade monte_carlo"`
	MonteCarloIterations int               `json:"monte_carlo_iterations,omitempty" validate:"gte=0"`
	FailureParameters    map[string]string `json:"failure_parameters,omitempty"`
}

func (r SimulateRequest) request() simulation.SimulateRequest {
	return simulation.SimulateRequest{
		FailedComponentIDs:   r.FailedComponentIDs,
		FailureModes:         r.FailureModes,
		SimulationType:       r.SimulationType,
		MonteCarloIterations: r.MonteCarloIterations,
		FailureParameters:    r.FailureParameters,
	}
}

// NamespacesResponse is the body of GET /v1/namespaces.
type NamespacesResponse struct {
	Namespaces []string `json:"namespaces"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}
