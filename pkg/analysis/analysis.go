// Package analysis derives failure paths, redundancy risk and health
// metrics from the final states of a propagation run.
package analysis

import (
	"sort"

	"github.com/adamsih300u/bastion-sub008/pkg/graph"
)

const (
	FailureDirect  = "direct"
	FailureCascade = "cascade"
)

// FailurePath traces one affected component back to an initial failure.
type FailurePath struct {
	SourceComponentID    string   `json:"source_component_id"`
	AffectedComponentIDs []string `json:"affected_component_ids"`
	FailureType          string   `json:"failure_type"`
	PathLength           int      `json:"path_length"`
}

// HealthMetrics summarises a topology after a simulation.
type HealthMetrics struct {
	TotalComponents         int      `json:"total_components"`
	OperationalComponents   int      `json:"operational_components"`
	DegradedComponents      int      `json:"degraded_components"`
	FailedComponents        int      `json:"failed_components"`
	SystemHealthScore       float64  `json:"system_health_score"`
	CriticalVulnerabilities []string `json:"critical_vulnerabilities"`
	RedundancyGroupsAtRisk  []string `json:"redundancy_groups_at_risk"`
}

// Redundancy returns the sorted names of groups that have lost at least one
// operational member, and marks each member of those groups in the returned
// slice (indexed by handle).
func Redundancy(top *graph.Topology, states []graph.State) ([]string, []bool) {
	g := top.Graph()
	flagged := make([]bool, g.Len())
	atRisk := []string{}

	for _, name := range top.Groups() {
		members := top.Members(name)
		operational := 0
		for _, id := range members {
			if h, ok := g.Handle(id); ok && states[h] == graph.StateOperational {
				operational++
			}
		}
		if operational > len(members)-1 {
			continue
		}
		atRisk = append(atRisk, name)
		for _, id := range members {
			if h, ok := g.Handle(id); ok {
				flagged[h] = true
			}
		}
	}
	sort.Strings(atRisk)
	return atRisk, flagged
}

// Paths walks successors breadth-first from every source through failed or
// degraded components and emits one path per component reached.
func Paths(g *graph.Graph, states []graph.State, sources []int) []FailurePath {
	type step struct {
		node  int
		chain []string
	}

	paths := []FailurePath{}
	for _, src := range sources {
		srcID := g.Node(src).ID
		visited := map[int]bool{src: true}
		queue := []step{{node: src}}

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, s := range g.Successors(cur.node) {
				if visited[s] {
					continue
				}
				if states[s] != graph.StateFailed && states[s] != graph.StateDegraded {
					continue
				}
				visited[s] = true

				chain := make([]string, len(cur.chain)+1)
				copy(chain, cur.chain)
				chain[len(cur.chain)] = g.Node(s).ID

				kind := FailureCascade
				if len(chain) <= 1 {
					kind = FailureDirect
				}
				paths = append(paths, FailurePath{
					SourceComponentID:    srcID,
					AffectedComponentIDs: chain,
					FailureType:          kind,
					PathLength:           len(chain),
				})
				queue = append(queue, step{node: s, chain: chain})
			}
		}
	}
	return paths
}

// Health counts states and lists single points of failure. The score is the
// operational share of all components.
func Health(top *graph.Topology, states []graph.State, atRisk []string) HealthMetrics {
	g := top.Graph()
	m := HealthMetrics{
		TotalComponents:         g.Len(),
		CriticalVulnerabilities: []string{},
		RedundancyGroupsAtRisk:  atRisk,
	}
	if m.RedundancyGroupsAtRisk == nil {
		m.RedundancyGroupsAtRisk = []string{}
	}

	for h, s := range states {
		switch s {
		case graph.StateFailed:
			m.FailedComponents++
		case graph.StateDegraded:
			m.DegradedComponents++
		case graph.StateOperational:
			m.OperationalComponents++
		}
		c := g.Node(h)
		if c.RedundancyGroup == "" && len(g.Successors(h)) > 0 {
			m.CriticalVulnerabilities = append(m.CriticalVulnerabilities, c.ID)
		}
	}
	if m.TotalComponents > 0 {
		m.SystemHealthScore = float64(m.OperationalComponents) / float64(m.TotalComponents)
	}
	return m
}
