package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamsih300u/bastion-sub008/pkg/api"
	"github.com/adamsih300u/bastion-sub008/pkg/graph"
	"github.com/adamsih300u/bastion-sub008/pkg/simulation"
)

func newDaemon(t *testing.T) string {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := simulation.NewService(
		simulation.WithResultCache(simulation.NewMemoryCache()),
		simulation.WithLogger(logger),
	)
	ts := httptest.NewServer(api.NewServer(svc, nil, nil, api.Config{Logger: logger}).Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const gridComponents = `
- component_id: gen1
  component_type: generator
- component_id: bus1
  component_type: bus
  requires: [gen1]
- component_id: load1
  component_type: load
  requires: [bus1]
`

func TestDesignSimulateTopology(t *testing.T) {
	url := newDaemon(t)
	file := writeFile(t, "grid.yaml", gridComponents)

	out, err := execute(t, "--api", url, "design", "grid", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "load1")

	out, err = execute(t, "--api", url, "--format", "json", "simulate", "grid", "--fail", "gen1", "--mode", "trip")
	require.NoError(t, err)
	var sim simulation.SimulateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &sim))
	assert.True(t, sim.Success)
	assert.Equal(t, 3, sim.HealthMetrics.FailedComponents)

	out, err = execute(t, "--api", url, "topology", "grid")
	require.NoError(t, err)
	assert.Contains(t, out, "3 components, 2 edges")

	out, err = execute(t, "--api", url, "namespaces")
	require.NoError(t, err)
	assert.Equal(t, "grid\n", out)
}

func TestDesign_Flags(t *testing.T) {
	url := newDaemon(t)

	_, err := execute(t, "--api", url, "design", "dc", "feed_a", "--group", "feeds")
	require.NoError(t, err)
	_, err = execute(t, "--api", url, "design", "dc", "feed_b", "--group", "feeds")
	require.NoError(t, err)
	_, err = execute(t, "--api", url, "design", "dc", "rack",
		"--requires", "feed_a,feed_b", "--logic", "WEIGHTED_INTEGRITY",
		"--weight", "feed_a=0.7", "--weight", "feed_b=0.3",
		"--integrity-threshold", "0.6", "--criticality", "5", "--meta", "room=b2")
	require.NoError(t, err)

	out, err := execute(t, "--api", url, "topology", "dc", "--raw")
	require.NoError(t, err)

	var doc struct {
		Nodes []graph.Component `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	var rack *graph.Component
	for i := range doc.Nodes {
		if doc.Nodes[i].ID == "rack" {
			rack = &doc.Nodes[i]
		}
	}
	require.NotNil(t, rack)
	assert.Equal(t, graph.LogicWeightedIntegrity, rack.Logic)
	assert.Equal(t, 0.7, rack.DependencyWeights["feed_a"])
	assert.Equal(t, 0.6, rack.IntegrityThreshold)
	assert.Equal(t, 5, rack.Criticality)
	assert.Equal(t, "b2", rack.Metadata["room"])

	// feed_a alone carries 0.7 of the rack's integrity.
	out, err = execute(t, "--api", url, "simulate", "dc", "--fail", "feed_b")
	require.NoError(t, err)
	assert.Contains(t, out, "groups at risk: feeds")
}

func TestDesign_BadWeight(t *testing.T) {
	_, err := execute(t, "design", "dc", "rack", "--weight", "feed_a=heavy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--weight feed_a")
}

func TestSimulate_UnknownComponent(t *testing.T) {
	url := newDaemon(t)
	file := writeFile(t, "grid.yaml", gridComponents)
	_, err := execute(t, "--api", url, "design", "grid", "-f", file)
	require.NoError(t, err)

	out, err := execute(t, "--api", url, "simulate", "grid", "--fail", "ghost")
	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))
	assert.Contains(t, out, "failed")
}

func TestSimulate_RequiresFail(t *testing.T) {
	_, err := execute(t, "simulate", "grid")
	require.Error(t, err)
	assert.Equal(t, exitCommandError, exitCode(err))
}

func TestEvents_NoStore(t *testing.T) {
	url := newDaemon(t)
	_, err := execute(t, "--api", url, "events")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event_log_disabled")
}

func TestScenarioRun(t *testing.T) {
	out, err := execute(t, "scenario", "run", filepath.Join("..", "..", "pkg", "simulation", "testdata", "grid.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "PASS grid-n1")
}

func TestScenarioRun_InvariantFails(t *testing.T) {
	path := writeFile(t, "broken.yaml", `
name: broken
seed: 3
components:
  - component_id: a
  - component_id: b
    requires: [a]
simulation:
  failed_component_ids: [a]
  simulation_type: cascade
invariants:
  - metric: failed_components
    condition: "=="
    value: 1
`)
	out, err := execute(t, "--format", "json", "scenario", "run", path)
	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))

	var results []simulation.ScenarioResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, "2.0000", results[0].Invariants[0].Actual)
}

func TestSimulate_MonteCarloProb(t *testing.T) {
	url := newDaemon(t)
	file := writeFile(t, "grid.yaml", gridComponents)
	_, err := execute(t, "--api", url, "design", "grid", "-f", file)
	require.NoError(t, err)

	out, err := execute(t, "--api", url, "--format", "json", "simulate", "grid",
		"--fail", "gen1", "--type", "monte_carlo", "--iterations", "20", "--prob", "gen1=1.0")
	require.NoError(t, err)

	var sim simulation.SimulateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &sim))
	require.True(t, sim.Success, sim.Error)
	assert.Equal(t, 20, sim.Iterations)
	for _, cs := range sim.ComponentStates {
		assert.Equal(t, 1.0, cs.FailureProbability, cs.ComponentID)
	}
}
