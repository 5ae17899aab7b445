package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamsih300u/bastion-sub008/pkg/engine"
	"github.com/adamsih300u/bastion-sub008/pkg/graph"
)

func topology(t *testing.T, specs ...graph.DesignSpec) *graph.Topology {
	t.Helper()
	top := graph.NewTopology("test")
	for _, s := range specs {
		_, err := top.Design(s)
		require.NoError(t, err)
	}
	return top
}

func cascade(t *testing.T, top *graph.Topology, failed ...string) ([]int, []graph.State) {
	t.Helper()
	initial, err := engine.Resolve(top.Graph(), failed)
	require.NoError(t, err)
	return initial, engine.Cascade(top.Graph(), initial).States
}

func pumps() *graph.Topology {
	top := graph.NewTopology("test")
	for _, id := range []string{"p1", "p2", "p3"} {
		_, _ = top.Design(graph.DesignSpec{ComponentID: id, RedundancyGroup: "pumps"})
	}
	_, _ = top.Design(graph.DesignSpec{ComponentID: "x"})
	return top
}

func TestRedundancy_AtRiskBoundary(t *testing.T) {
	top := pumps()

	_, states := cascade(t, top, "x")
	atRisk, flagged := Redundancy(top, states)
	assert.Empty(t, atRisk)
	assert.Equal(t, []bool{false, false, false, false}, flagged)

	_, states = cascade(t, top, "p2")
	atRisk, flagged = Redundancy(top, states)
	assert.Equal(t, []string{"pumps"}, atRisk)
	assert.Equal(t, []bool{true, true, true, false}, flagged)
}

func TestRedundancy_DegradedCountsAgainstGroup(t *testing.T) {
	top := topology(t,
		graph.DesignSpec{ComponentID: "a", RedundancyGroup: "feeds", Requires: []string{"s1", "s2"}},
		graph.DesignSpec{ComponentID: "b", RedundancyGroup: "feeds"},
	)
	_, states := cascade(t, top, "s1")
	atRisk, _ := Redundancy(top, states)
	assert.Equal(t, []string{"feeds"}, atRisk)
}

func TestRedundancy_SortsGroupNames(t *testing.T) {
	top := topology(t,
		graph.DesignSpec{ComponentID: "z1", RedundancyGroup: "zeta"},
		graph.DesignSpec{ComponentID: "a1", RedundancyGroup: "alpha"},
	)
	_, states := cascade(t, top, "z1", "a1")
	atRisk, _ := Redundancy(top, states)
	assert.Equal(t, []string{"alpha", "zeta"}, atRisk)
}

func TestPaths_OneRecordPerReachedNode(t *testing.T) {
	top := topology(t,
		graph.DesignSpec{ComponentID: "gen1"},
		graph.DesignSpec{ComponentID: "bus1", Requires: []string{"gen1"}, DependencyLogic: graph.LogicOr},
		graph.DesignSpec{ComponentID: "load1", Requires: []string{"bus1"}},
		graph.DesignSpec{ComponentID: "spare"},
	)
	initial, states := cascade(t, top, "gen1")

	paths := Paths(top.Graph(), states, initial)
	require.Len(t, paths, 2)
	assert.Equal(t, FailurePath{
		SourceComponentID:    "gen1",
		AffectedComponentIDs: []string{"bus1"},
		FailureType:          FailureDirect,
		PathLength:           1,
	}, paths[0])
	assert.Equal(t, FailurePath{
		SourceComponentID:    "gen1",
		AffectedComponentIDs: []string{"bus1", "load1"},
		FailureType:          FailureCascade,
		PathLength:           2,
	}, paths[1])
}

func TestPaths_StopsAtOperational(t *testing.T) {
	top := topology(t,
		graph.DesignSpec{ComponentID: "mid", Requires: []string{"src", "other"}},
		graph.DesignSpec{ComponentID: "leaf", Requires: []string{"mid"}},
	)
	initial, states := cascade(t, top, "src")

	paths := Paths(top.Graph(), states, initial)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"mid"}, paths[0].AffectedComponentIDs)
}

func TestPaths_PerSource(t *testing.T) {
	top := topology(t,
		graph.DesignSpec{ComponentID: "c", Requires: []string{"a", "b"}, DependencyLogic: graph.LogicOr},
	)
	initial, states := cascade(t, top, "a", "b")

	paths := Paths(top.Graph(), states, initial)
	require.Len(t, paths, 2)
	assert.Equal(t, "a", paths[0].SourceComponentID)
	assert.Equal(t, "b", paths[1].SourceComponentID)
}

func TestHealth_Metrics(t *testing.T) {
	top := topology(t,
		graph.DesignSpec{ComponentID: "gen1"},
		graph.DesignSpec{ComponentID: "bus1", Requires: []string{"gen1"}, DependencyLogic: graph.LogicOr},
		graph.DesignSpec{ComponentID: "load1", Requires: []string{"bus1"}},
		graph.DesignSpec{ComponentID: "spare"},
	)
	_, states := cascade(t, top, "gen1")

	m := Health(top, states, nil)
	assert.Equal(t, 4, m.TotalComponents)
	assert.Equal(t, 3, m.FailedComponents)
	assert.Equal(t, 1, m.OperationalComponents)
	assert.Equal(t, 0, m.DegradedComponents)
	assert.Equal(t, 0.25, m.SystemHealthScore)
	assert.Equal(t, []string{"gen1", "bus1"}, m.CriticalVulnerabilities)
	assert.NotNil(t, m.RedundancyGroupsAtRisk)
}

func TestHealth_GroupedComponentsAreNotVulnerabilities(t *testing.T) {
	top := topology(t,
		graph.DesignSpec{ComponentID: "p1", RedundancyGroup: "pumps"},
		graph.DesignSpec{ComponentID: "load", Requires: []string{"p1"}},
	)
	_, states := cascade(t, top)
	m := Health(top, states, nil)
	assert.Empty(t, m.CriticalVulnerabilities)
	assert.Equal(t, 1.0, m.SystemHealthScore)
}

func TestHealth_Empty(t *testing.T) {
	m := Health(graph.NewTopology("empty"), nil, nil)
	assert.Zero(t, m.TotalComponents)
	assert.Zero(t, m.SystemHealthScore)
}
