package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/adamsih300u/bastion-sub008/pkg/client"
	"github.com/adamsih300u/bastion-sub008/pkg/simulation"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printDesign(w io.Writer, resp simulation.DesignResponse) {
	if !resp.Success {
		fmt.Fprintf(w, "design of %s failed: %s\n", resp.ComponentID, resp.Error)
		return
	}
	fmt.Fprintln(w, resp.Message)
}

func printSimulation(w io.Writer, resp simulation.SimulateResponse) {
	if !resp.Success {
		fmt.Fprintf(w, "simulation %s failed: %s\n", resp.SimulationID, resp.Error)
		return
	}
	m := resp.HealthMetrics
	fmt.Fprintf(w, "simulation %s (%s) in %s\n", resp.SimulationID, resp.SimulationType, resp.Namespace)
	if resp.Iterations > 0 {
		fmt.Fprintf(w, "iterations: %d\n", resp.Iterations)
	}
	fmt.Fprintf(w, "health: %.4f  operational %d  degraded %d  failed %d  of %d\n",
		m.SystemHealthScore, m.OperationalComponents, m.DegradedComponents, m.FailedComponents, m.TotalComponents)
	if len(m.RedundancyGroupsAtRisk) > 0 {
		fmt.Fprintf(w, "groups at risk: %s\n", strings.Join(m.RedundancyGroupsAtRisk, ", "))
	}
	if len(m.CriticalVulnerabilities) > 0 {
		fmt.Fprintf(w, "critical vulnerabilities: %s\n", strings.Join(m.CriticalVulnerabilities, ", "))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPONENT\tSTATE\tP(FAIL)\tFAILED DEPS\tMODE")
	for _, cs := range resp.ComponentStates {
		fmt.Fprintf(tw, "%s\t%s\t%.3f\t%s\t%s\n",
			cs.ComponentID, cs.State, cs.FailureProbability, strings.Join(cs.FailedDependencies, ","), cs.FailureMode)
	}
	tw.Flush()
}

func printTopology(w io.Writer, resp simulation.TopologyResponse) {
	fmt.Fprintf(w, "namespace %s: %d components, %d edges\n", resp.Namespace, resp.ComponentCount, resp.EdgeCount)
	if len(resp.RedundancyGroups) > 0 {
		fmt.Fprintf(w, "redundancy groups: %s\n", strings.Join(resp.RedundancyGroups, ", "))
	}
}

func printEvents(w io.Writer, events []client.Event) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTYPE\tNAMESPACE\tSUBJECT")
	for _, e := range events {
		subject := e.Dimensions.ComponentID
		if subject == "" {
			subject = e.Dimensions.SimulationID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.TsEvent.Format("2006-01-02 15:04:05"), e.EventType, e.Dimensions.Namespace, subject)
	}
	tw.Flush()
}

func printScenario(w io.Writer, res simulation.ScenarioResult) {
	status := "PASS"
	if !res.Success {
		status = "FAIL"
	}
	fmt.Fprintf(w, "%s %s (%s)\n", status, res.ScenarioName, res.Duration)
	if res.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", res.Error)
	}
	for _, inv := range res.Invariants {
		mark := "ok"
		if !inv.Passed {
			mark = "FAILED"
		}
		name := inv.Metric
		if inv.Scope != "" {
			name += ":" + inv.Scope
		}
		fmt.Fprintf(w, "  %-6s %s %s (actual %s)\n", mark, name, inv.Expected, inv.Actual)
	}
}

// parsePairs turns ["a=1", "b=2"] into a map.
func parsePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		out[k] = v
	}
	return out, nil
}
