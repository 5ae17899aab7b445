package graph

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrComponentNotFound = errors.New("component not found")
	ErrEmptyComponentID  = errors.New("component id is empty")
)

// Topology is one namespace's dependency graph plus its redundancy groups.
//
// A Topology is not safe for concurrent mutation. Callers serialize design
// and simulation calls per namespace.
type Topology struct {
	Namespace string

	graph      *Graph
	groups     map[string][]string
	groupOrder []string
}

// NewTopology creates an empty topology for a namespace.
func NewTopology(namespace string) *Topology {
	return &Topology{
		Namespace: namespace,
		graph:     NewGraph(),
		groups:    make(map[string][]string),
	}
}

// Graph returns the underlying component graph.
func (t *Topology) Graph() *Graph {
	return t.graph
}

// Design upserts a component from spec.
//
// Attributes are replaced wholesale. Incoming requires edges are only ever
// added: a redesign that drops a dependency leaves the old edge in place.
// Unknown dependencies become placeholder components.
func (t *Topology) Design(spec DesignSpec) (*Component, error) {
	if spec.ComponentID == "" {
		return nil, ErrEmptyComponentID
	}

	c := &Component{
		ID:                 spec.ComponentID,
		Type:               spec.ComponentType,
		Criticality:        DefaultCriticality,
		RedundancyGroup:    spec.RedundancyGroup,
		State:              StateOperational,
		Logic:              spec.DependencyLogic,
		MOfNThreshold:      spec.MOfNThreshold,
		DependencyWeights:  make(map[string]float64, len(spec.DependencyWeights)),
		IntegrityThreshold: DefaultIntegrityThreshold,
		CurrentIntegrity:   DefaultIntegrity,
		Provides:           append([]string{}, spec.Provides...),
		Metadata:           make(map[string]string, len(spec.Metadata)),
		FailedDependencies: []string{},
	}
	if c.Logic == "" {
		c.Logic = LogicAnd
	}
	if spec.Criticality != nil {
		c.Criticality = *spec.Criticality
	}
	if spec.IntegrityThreshold != nil {
		c.IntegrityThreshold = *spec.IntegrityThreshold
	}
	for k, v := range spec.DependencyWeights {
		c.DependencyWeights[k] = v
	}
	for k, v := range spec.Metadata {
		c.Metadata[k] = v
	}

	h := t.graph.put(c)
	for _, dep := range spec.Requires {
		t.graph.addEdge(t.graph.ensurePlaceholder(dep), h)
	}
	if spec.RedundancyGroup != "" {
		t.join(spec.RedundancyGroup, spec.ComponentID)
	}
	return c, nil
}

// Component returns the component with the given id.
func (t *Topology) Component(id string) (*Component, error) {
	c, ok := t.graph.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, id)
	}
	return c, nil
}

func (t *Topology) join(group, id string) {
	members, ok := t.groups[group]
	if !ok {
		t.groupOrder = append(t.groupOrder, group)
	}
	for _, m := range members {
		if m == id {
			return
		}
	}
	t.groups[group] = append(members, id)
}

// Groups returns redundancy group names in the order they were first used.
func (t *Topology) Groups() []string {
	return append([]string{}, t.groupOrder...)
}

// GroupNames returns redundancy group names sorted alphabetically.
func (t *Topology) GroupNames() []string {
	names := t.Groups()
	sort.Strings(names)
	return names
}

// Members returns the ids registered under group.
func (t *Topology) Members(group string) []string {
	return append([]string{}, t.groups[group]...)
}

// Reset puts every component back to operational and clears transient fields.
func (t *Topology) Reset() {
	for _, c := range t.graph.nodes {
		c.ResetTransient()
	}
}
