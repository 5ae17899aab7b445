package engine

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adamsih300u/bastion-sub008/pkg/graph"
)

// DefaultProbability is used for a source with no "<id>_prob" parameter.
const DefaultProbability = "0.5"

// Options tunes the Monte Carlo worker pool.
type Options struct {
	// Workers caps concurrent trial goroutines. Zero means GOMAXPROCS.
	Workers int
	// Seed is the base seed; trial i draws from Seed+i. Zero picks a
	// time-based seed.
	Seed int64
}

// MonteCarloResult aggregates failure counts across all trials.
type MonteCarloResult struct {
	Iterations int
	Seed       int64
	FailCounts []int
	FailEvents int64
}

// Probability returns the empirical failure probability of handle h.
func (r *MonteCarloResult) Probability(h int) float64 {
	if r.Iterations == 0 {
		return 0
	}
	return float64(r.FailCounts[h]) / float64(r.Iterations)
}

// HealthScore is one minus the share of component-trials that ended failed.
func (r *MonteCarloResult) HealthScore() float64 {
	total := r.Iterations * len(r.FailCounts)
	if total == 0 {
		return 1
	}
	return 1 - float64(r.FailEvents)/float64(total)
}

// RepresentativeState buckets a failure probability into a reported state.
func RepresentativeState(p float64) graph.State {
	switch {
	case p > 0.5:
		return graph.StateFailed
	case p >= 0.1:
		return graph.StateDegraded
	default:
		return graph.StateOperational
	}
}

// Probabilities reads "<id>_prob" for every source from params.
func Probabilities(ids []string, params map[string]string) ([]float64, error) {
	out := make([]float64, len(ids))
	for i, id := range ids {
		raw, ok := params[id+"_prob"]
		if !ok {
			raw = DefaultProbability
		}
		p, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s_prob=%q", ErrInvalidProbability, id, raw)
		}
		out[i] = p
	}
	return out, nil
}

// MonteCarlo runs iterations independent trials. In each trial source k is
// failed when a uniform draw falls below probs[k], then the cascade runs.
//
// Every trial owns its RNG and scratch states; workers share only their
// final counters, so the result for a given seed does not depend on the
// worker count.
func MonteCarlo(ctx context.Context, g *graph.Graph, sources []int, probs []float64, iterations int, opts Options) (*MonteCarloResult, error) {
	if iterations <= 0 {
		return nil, ErrInvalidIterations
	}
	if len(probs) != len(sources) {
		return nil, fmt.Errorf("%w: %d probabilities for %d sources", ErrInvalidProbability, len(probs), len(sources))
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > iterations {
		workers = iterations
	}

	n := g.Len()
	counts := make([][]int, workers)
	events := make([]int64, workers)

	eg, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			local := make([]int, n)
			tr := NewTrial(n)
			initial := make([]int, 0, len(sources))
			var ev int64

			for i := w; i < iterations; i += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				rng := rand.New(rand.NewSource(seed + int64(i)))
				initial = initial[:0]
				for k, h := range sources {
					if rng.Float64() < probs[k] {
						initial = append(initial, h)
					}
				}
				Propagate(g, initial, tr)
				for h, s := range tr.States {
					if s == graph.StateFailed {
						local[h]++
						ev++
					}
				}
			}

			counts[w] = local
			events[w] = ev
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	res := &MonteCarloResult{
		Iterations: iterations,
		Seed:       seed,
		FailCounts: make([]int, n),
	}
	for w := range counts {
		for h, c := range counts[w] {
			res.FailCounts[h] += c
		}
		res.FailEvents += events[w]
	}
	return res, nil
}
