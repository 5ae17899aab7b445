package graph

// State is the operational state of a component.
type State string

const (
	StateOperational State = "operational"
	StateDegraded    State = "degraded"
	StateFailed      State = "failed"
	StateUnknown     State = "unknown" // only auto-created placeholders carry this
)

// Logic selects how a component derives its state from its direct predecessors.
type Logic string

const (
	LogicAnd               Logic = "AND"
	LogicOr                Logic = "OR"
	LogicMajority          Logic = "MAJORITY"
	LogicMOfN              Logic = "M_OF_N"
	LogicWeightedIntegrity Logic = "WEIGHTED_INTEGRITY"
)

// PlaceholderType is the component_type given to nodes created only because
// another component required them.
const PlaceholderType = "unknown"

const (
	DefaultCriticality        = 3
	DefaultIntegrityThreshold = 0.5
	DefaultIntegrity          = 1.0
)

// Component is a vertex in the dependency graph.
//
// Design attributes are written by Design. State and the transient fields
// are reset at the start of every simulation.
type Component struct {
	ID                 string             `json:"id"`
	Type               string             `json:"component_type"`
	Criticality        int                `json:"criticality"`
	RedundancyGroup    string             `json:"redundancy_group,omitempty"`
	State              State              `json:"state"`
	Logic              Logic              `json:"dependency_logic"`
	MOfNThreshold      int                `json:"m_of_n_threshold"`
	DependencyWeights  map[string]float64 `json:"dependency_weights"`
	IntegrityThreshold float64            `json:"integrity_threshold"`
	CurrentIntegrity   float64            `json:"current_integrity"`
	Provides           []string           `json:"provides"`
	Metadata           map[string]string  `json:"metadata"`

	FailureMode        string   `json:"failure_mode,omitempty"`
	FailedDependencies []string `json:"failed_dependencies"`
	FailureProbability float64  `json:"failure_probability"`
	RedundancyAtRisk   bool     `json:"redundancy_at_risk"`
}

// Weight returns the weight of predecessor id, or 1/total when unspecified.
func (c *Component) Weight(id string, total int) float64 {
	if w, ok := c.DependencyWeights[id]; ok {
		return w
	}
	if total == 0 {
		return 0
	}
	return 1.0 / float64(total)
}

// ResetTransient clears every simulation-scoped field.
func (c *Component) ResetTransient() {
	c.State = StateOperational
	c.CurrentIntegrity = DefaultIntegrity
	c.FailureMode = ""
	c.FailedDependencies = []string{}
	c.FailureProbability = 0
	c.RedundancyAtRisk = false
}

// DesignSpec carries the attributes of a design_component request.
type DesignSpec struct {
	ComponentID        string             `json:"component_id" yaml:"component_id"`
	ComponentType      string             `json:"component_type" yaml:"component_type"`
	Requires           []string           `json:"requires" yaml:"requires"`
	Provides           []string           `json:"provides" yaml:"provides"`
	RedundancyGroup    string             `json:"redundancy_group,omitempty" yaml:"redundancy_group,omitempty"`
	Criticality        *int               `json:"criticality,omitempty" yaml:"criticality,omitempty"`
	Metadata           map[string]string  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	DependencyLogic    Logic              `json:"dependency_logic,omitempty" yaml:"dependency_logic,omitempty"`
	MOfNThreshold      int                `json:"m_of_n_threshold,omitempty" yaml:"m_of_n_threshold,omitempty"`
	DependencyWeights  map[string]float64 `json:"dependency_weights,omitempty" yaml:"dependency_weights,omitempty"`
	IntegrityThreshold *float64           `json:"integrity_threshold,omitempty" yaml:"integrity_threshold,omitempty"`
}

// Edge is a requires edge: Target depends on Source.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
