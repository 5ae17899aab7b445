package simulation

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adamsih300u/bastion-sub008/pkg/engine"
)

// LoadScenario reads a scenario from a YAML or JSON file.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes YAML (and therefore JSON) scenario bytes.
func ParseScenario(data []byte) (Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scenario{}, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if len(s.Components) == 0 {
		return Scenario{}, fmt.Errorf("scenario %q declares no components", s.Name)
	}
	return s, nil
}

// RunScenario designs the scenario's components into a fresh service, runs
// its simulation and checks the invariants against the result.
func RunScenario(ctx context.Context, s Scenario, opts ...Option) ScenarioResult {
	if s.Seed == 0 {
		s.Seed = time.Now().UnixNano()
	}
	ns := s.Namespace
	if ns == "" {
		ns = "scenario"
	}

	opts = append([]Option{WithEngineOptions(engine.Options{Workers: s.Workers, Seed: s.Seed})}, opts...)
	svc := NewService(opts...)
	svc.logger.Info("scenario_started", "scenario", s.Name, "seed", s.Seed, "components", len(s.Components))

	start := time.Now()
	res := ScenarioResult{ScenarioName: s.Name}

	for _, spec := range s.Components {
		if d := svc.DesignComponent(ns, spec); !d.Success {
			res.Duration = time.Since(start)
			res.Error = fmt.Sprintf("design %s: %s", d.ComponentID, d.Error)
			return res
		}
	}

	res.Simulation = svc.SimulateFailure(ctx, ns, s.Simulation)
	res.Duration = time.Since(start)
	if !res.Simulation.Success {
		res.Error = res.Simulation.Error
		return res
	}

	res.Invariants = evaluateInvariants(res.Simulation, s.Invariants)
	res.Success = true
	for _, inv := range res.Invariants {
		if !inv.Passed {
			res.Success = false
			break
		}
	}
	return res
}

func evaluateInvariants(sim SimulateResponse, invariants []Invariant) []InvariantResult {
	results := make([]InvariantResult, 0, len(invariants))
	for _, inv := range invariants {
		metric, scope := inv.Metric, inv.Scope
		if name, id, ok := strings.Cut(metric, ":"); ok {
			metric, scope = name, id
		}
		expected := fmt.Sprintf("%s %.2f", inv.Condition, inv.Value)

		actual, ok := metricValue(sim, metric, scope)
		if !ok {
			results = append(results, InvariantResult{
				Metric: metric, Scope: scope, Expected: expected, Actual: "N/A", Passed: false,
			})
			continue
		}

		var passed bool
		switch inv.Condition {
		case ">":
			passed = actual > inv.Value
		case ">=":
			passed = actual >= inv.Value
		case "<":
			passed = actual < inv.Value
		case "<=":
			passed = actual <= inv.Value
		case "==":
			passed = math.Abs(actual-inv.Value) < 0.0001
		}

		results = append(results, InvariantResult{
			Metric:   metric,
			Scope:    scope,
			Expected: expected,
			Actual:   fmt.Sprintf("%.4f", actual),
			Passed:   passed,
		})
	}
	return results
}

func metricValue(sim SimulateResponse, metric, scope string) (float64, bool) {
	m := sim.HealthMetrics
	switch metric {
	case "system_health_score":
		return m.SystemHealthScore, true
	case "failed_components":
		return float64(m.FailedComponents), true
	case "degraded_components":
		return float64(m.DegradedComponents), true
	case "operational_components":
		return float64(m.OperationalComponents), true
	case "redundancy_groups_at_risk":
		return float64(len(m.RedundancyGroupsAtRisk)), true
	case "failure_paths":
		return float64(len(sim.FailurePaths)), true
	case "failure_probability":
		for _, cs := range sim.ComponentStates {
			if cs.ComponentID == scope {
				return cs.FailureProbability, true
			}
		}
	}
	return 0, false
}
