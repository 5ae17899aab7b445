package engine

import "github.com/adamsih300u/bastion-sub008/pkg/graph"

// Verdict is the outcome of evaluating one component's gate.
type Verdict struct {
	Fails       bool
	FailedPreds []int

	// Integrity is set only for WEIGHTED_INTEGRITY gates.
	Integrity    float64
	HasIntegrity bool
}

// Evaluate applies c's dependency logic to the states of its predecessors.
func Evaluate(g *graph.Graph, c *graph.Component, preds []int, states []graph.State) Verdict {
	var v Verdict
	for _, p := range preds {
		if states[p] == graph.StateFailed {
			v.FailedPreds = append(v.FailedPreds, p)
		}
	}
	failed, total := len(v.FailedPreds), len(preds)

	switch c.Logic {
	case graph.LogicOr:
		v.Fails = failed > 0
	case graph.LogicMajority:
		v.Fails = float64(failed) > float64(total)/2
	case graph.LogicMOfN:
		v.Fails = failed >= c.MOfNThreshold
	case graph.LogicWeightedIntegrity:
		loss := 0.0
		for _, p := range v.FailedPreds {
			loss += c.Weight(g.Node(p).ID, total)
		}
		v.Integrity = 1 - loss
		v.HasIntegrity = true
		v.Fails = v.Integrity < c.IntegrityThreshold
	default:
		// AND, and anything unrecognised.
		v.Fails = failed == total
	}
	return v
}
