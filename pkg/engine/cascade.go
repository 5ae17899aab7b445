package engine

import (
	"fmt"

	"github.com/adamsih300u/bastion-sub008/pkg/graph"
)

// Trial is the scratch state of one propagation run, indexed by handle.
// Components are never written during propagation, so trials over the same
// graph can run concurrently.
type Trial struct {
	States       []graph.State
	FailedDeps   [][]int
	Integrity    []float64
	HasIntegrity []bool

	queue []int
}

// NewTrial allocates scratch space for a graph of n components.
func NewTrial(n int) *Trial {
	return &Trial{
		States:       make([]graph.State, n),
		FailedDeps:   make([][]int, n),
		Integrity:    make([]float64, n),
		HasIntegrity: make([]bool, n),
	}
}

func (tr *Trial) reset() {
	for i := range tr.States {
		tr.States[i] = graph.StateOperational
		tr.FailedDeps[i] = nil
		tr.Integrity[i] = graph.DefaultIntegrity
		tr.HasIntegrity[i] = false
	}
	tr.queue = tr.queue[:0]
}

// Resolve maps component ids to handles, dropping repeats.
func Resolve(g *graph.Graph, ids []string) ([]int, error) {
	out := make([]int, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		h, ok := g.Handle(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, id)
		}
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out, nil
}

// Cascade resets every component to operational, fails the initial set and
// propagates breadth-first until no further component fails.
func Cascade(g *graph.Graph, initial []int) *Trial {
	tr := NewTrial(g.Len())
	Propagate(g, initial, tr)
	return tr
}

// Propagate runs one cascade into tr, reusing its buffers.
//
// Only failed components are enqueued. A dependent that is already failed
// is left alone; a degraded dependent is evaluated again whenever another of
// its predecessors fails.
func Propagate(g *graph.Graph, initial []int, tr *Trial) {
	tr.reset()
	for _, h := range initial {
		tr.States[h] = graph.StateFailed
		tr.queue = append(tr.queue, h)
	}

	for len(tr.queue) > 0 {
		cur := tr.queue[0]
		tr.queue = tr.queue[1:]

		for _, d := range g.Successors(cur) {
			if tr.States[d] == graph.StateFailed {
				continue
			}
			v := Evaluate(g, g.Node(d), g.Predecessors(d), tr.States)
			if v.HasIntegrity {
				tr.Integrity[d] = v.Integrity
				tr.HasIntegrity[d] = true
			}
			switch {
			case v.Fails:
				tr.States[d] = graph.StateFailed
				tr.FailedDeps[d] = v.FailedPreds
				tr.queue = append(tr.queue, d)
			case len(v.FailedPreds) > 0:
				tr.States[d] = graph.StateDegraded
				tr.FailedDeps[d] = v.FailedPreds
			}
		}
	}
}

// Apply copies a trial's final states onto the graph's components and tags
// the initial failures with mode.
func Apply(g *graph.Graph, tr *Trial, initial []int, mode string) {
	for h := 0; h < g.Len(); h++ {
		c := g.Node(h)
		c.ResetTransient()
		c.State = tr.States[h]
		c.CurrentIntegrity = tr.Integrity[h]
		for _, p := range tr.FailedDeps[h] {
			c.FailedDependencies = append(c.FailedDependencies, g.Node(p).ID)
		}
	}
	if mode == "" {
		return
	}
	for _, h := range initial {
		g.Node(h).FailureMode = mode
	}
}
