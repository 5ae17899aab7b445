package graph

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func design(t *testing.T, top *Topology, spec DesignSpec) *Component {
	t.Helper()
	c, err := top.Design(spec)
	require.NoError(t, err)
	return c
}

func TestDesign_CreatesPlaceholders(t *testing.T) {
	top := NewTopology("plant")
	design(t, top, DesignSpec{ComponentID: "pump1", ComponentType: "pump", Requires: []string{"power"}})

	ph, err := top.Component("power")
	require.NoError(t, err)
	assert.Equal(t, PlaceholderType, ph.Type)
	assert.Equal(t, StateUnknown, ph.State)

	pump, err := top.Component("pump1")
	require.NoError(t, err)
	assert.Equal(t, StateOperational, pump.State)
	assert.Equal(t, LogicAnd, pump.Logic)
	assert.Equal(t, DefaultCriticality, pump.Criticality)
	assert.Equal(t, DefaultIntegrityThreshold, pump.IntegrityThreshold)
	assert.Equal(t, 2, top.Graph().Len())
	assert.Equal(t, 1, top.Graph().EdgeCount())
}

func TestDesign_DesigningPlaceholderKeepsEdges(t *testing.T) {
	top := NewTopology("plant")
	design(t, top, DesignSpec{ComponentID: "pump1", Requires: []string{"power"}})
	design(t, top, DesignSpec{ComponentID: "power", ComponentType: "generator"})

	power, err := top.Component("power")
	require.NoError(t, err)
	assert.Equal(t, "generator", power.Type)
	assert.Equal(t, StateOperational, power.State)

	h, _ := top.Graph().Handle("power")
	require.Len(t, top.Graph().Successors(h), 1)
	assert.Equal(t, "pump1", top.Graph().Node(top.Graph().Successors(h)[0]).ID)
}

func TestDesign_EdgesAccumulateAcrossRedesign(t *testing.T) {
	top := NewTopology("plant")
	design(t, top, DesignSpec{ComponentID: "load", Requires: []string{"a", "b"}})
	design(t, top, DesignSpec{ComponentID: "load", Requires: []string{"c"}})

	h, _ := top.Graph().Handle("load")
	var preds []string
	for _, p := range top.Graph().Predecessors(h) {
		preds = append(preds, top.Graph().Node(p).ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, preds)
	assert.Equal(t, 3, top.Graph().EdgeCount())
}

func TestDesign_DuplicateRequiresCollapse(t *testing.T) {
	top := NewTopology("plant")
	design(t, top, DesignSpec{ComponentID: "load", Requires: []string{"a", "a", "a"}})
	design(t, top, DesignSpec{ComponentID: "load", Requires: []string{"a"}})
	assert.Equal(t, 1, top.Graph().EdgeCount())
}

func TestDesign_ReplacesAttributes(t *testing.T) {
	top := NewTopology("plant")
	crit := 5
	design(t, top, DesignSpec{
		ComponentID: "valve",
		Criticality: &crit,
		Metadata:    map[string]string{"site": "north"},
		Provides:    []string{"flow"},
	})
	design(t, top, DesignSpec{ComponentID: "valve", ComponentType: "valve"})

	c, err := top.Component("valve")
	require.NoError(t, err)
	assert.Equal(t, DefaultCriticality, c.Criticality)
	assert.Empty(t, c.Metadata)
	assert.Empty(t, c.Provides)
}

func TestDesign_CriticalityPassesThrough(t *testing.T) {
	top := NewTopology("plant")
	crit := 42
	c := design(t, top, DesignSpec{ComponentID: "x", Criticality: &crit})
	assert.Equal(t, 42, c.Criticality)
}

func TestDesign_ProvidesNeverCreatesNodes(t *testing.T) {
	top := NewTopology("plant")
	design(t, top, DesignSpec{ComponentID: "gen", Provides: []string{"power", "heat"}})
	assert.Equal(t, 1, top.Graph().Len())
	assert.Equal(t, 0, top.Graph().EdgeCount())
}

func TestDesign_RejectsEmptyID(t *testing.T) {
	top := NewTopology("plant")
	_, err := top.Design(DesignSpec{})
	assert.ErrorIs(t, err, ErrEmptyComponentID)
}

func TestDesign_RedundancyGroups(t *testing.T) {
	top := NewTopology("plant")
	design(t, top, DesignSpec{ComponentID: "p2", RedundancyGroup: "pumps"})
	design(t, top, DesignSpec{ComponentID: "p1", RedundancyGroup: "pumps"})
	design(t, top, DesignSpec{ComponentID: "p1", RedundancyGroup: "pumps"})
	design(t, top, DesignSpec{ComponentID: "f1", RedundancyGroup: "fans"})

	assert.Equal(t, []string{"p2", "p1"}, top.Members("pumps"))
	assert.Equal(t, []string{"pumps", "fans"}, top.Groups())
	assert.Equal(t, []string{"fans", "pumps"}, top.GroupNames())
}

func TestComponent_NotFound(t *testing.T) {
	top := NewTopology("plant")
	_, err := top.Component("ghost")
	assert.ErrorIs(t, err, ErrComponentNotFound)
}

func TestComponent_Weight(t *testing.T) {
	c := &Component{DependencyWeights: map[string]float64{"a": 0.7}}
	assert.Equal(t, 0.7, c.Weight("a", 4))
	assert.Equal(t, 0.25, c.Weight("b", 4))
	assert.Equal(t, 0.0, c.Weight("b", 0))
}

func TestRegistry_GetOrCreate(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("alice")
	assert.False(t, ok)

	a := r.GetOrCreate("alice")
	assert.Same(t, a, r.GetOrCreate("alice"))
	r.GetOrCreate("bob")
	assert.Equal(t, []string{"alice", "bob"}, r.Namespaces())

	design(t, a, DesignSpec{ComponentID: "x"})
	b, _ := r.Get("bob")
	assert.Equal(t, 0, b.Graph().Len())
}

func TestSerialize_RoundTrip(t *testing.T) {
	top := NewTopology("plant")
	th := 0.6
	design(t, top, DesignSpec{ComponentID: "a", RedundancyGroup: "feeds"})
	design(t, top, DesignSpec{ComponentID: "b", RedundancyGroup: "feeds"})
	design(t, top, DesignSpec{
		ComponentID:        "d",
		ComponentType:      "bus",
		Requires:           []string{"a", "b", "c"},
		Provides:           []string{"power"},
		DependencyLogic:    LogicWeightedIntegrity,
		DependencyWeights:  map[string]float64{"a": 0.5, "b": 0.3, "c": 0.2},
		IntegrityThreshold: &th,
		Metadata:           map[string]string{"rack": "7"},
	})

	data, err := Marshal(top)
	require.NoError(t, err)

	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, top.Summarize(), back.Summarize())
	assert.Equal(t, top.Members("feeds"), back.Members("feeds"))
	assert.Equal(t, top.Graph().Components()[3], back.Graph().Components()[3])

	again, err := Marshal(back)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestSerialize_Shape(t *testing.T) {
	top := NewTopology("plant")
	design(t, top, DesignSpec{ComponentID: "load", Requires: []string{"gen"}})

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(JSON(top)), &doc))
	assert.Equal(t, true, doc["directed"])
	assert.Equal(t, false, doc["multigraph"])

	nodes := doc["nodes"].([]any)
	require.Len(t, nodes, 2)
	assert.Equal(t, "load", nodes[0].(map[string]any)["id"])
	assert.Equal(t, "unknown", nodes[1].(map[string]any)["state"])

	edges := doc["edges"].([]any)
	require.Len(t, edges, 1)
	assert.Equal(t, map[string]any{"source": "gen", "target": "load"}, edges[0])
}

func TestSerialize_FailureFallsBackToEmpty(t *testing.T) {
	top := NewTopology("plant")
	design(t, top, DesignSpec{
		ComponentID:       "d",
		DependencyWeights: map[string]float64{"a": math.NaN()},
	})

	_, err := Marshal(top)
	require.Error(t, err)
	assert.Equal(t, EmptyJSON, JSON(top))
	assert.Equal(t, EmptyJSON, JSON(nil))
}

func TestUnmarshal_DanglingEdge(t *testing.T) {
	_, err := Unmarshal([]byte(`{"directed":true,"nodes":[{"id":"a"}],"edges":[{"source":"a","target":"b"}]}`))
	assert.ErrorIs(t, err, ErrDanglingEdge)
}

func TestReset(t *testing.T) {
	top := NewTopology("plant")
	c := design(t, top, DesignSpec{ComponentID: "a"})
	c.State = StateFailed
	c.FailureMode = "random"
	c.FailureProbability = 0.4
	c.RedundancyAtRisk = true
	c.FailedDependencies = []string{"x"}
	c.CurrentIntegrity = 0.3

	top.Reset()
	assert.Equal(t, StateOperational, c.State)
	assert.Empty(t, c.FailureMode)
	assert.Zero(t, c.FailureProbability)
	assert.False(t, c.RedundancyAtRisk)
	assert.Empty(t, c.FailedDependencies)
	assert.Equal(t, DefaultIntegrity, c.CurrentIntegrity)
}
