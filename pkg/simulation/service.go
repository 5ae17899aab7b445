package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/adamsih300u/bastion-sub008/pkg/analysis"
	"github.com/adamsih300u/bastion-sub008/pkg/engine"
	"github.com/adamsih300u/bastion-sub008/pkg/graph"
)

var (
	ErrEmptyTopology = errors.New("topology has no components")
	ErrNoResult      = errors.New("no simulation result recorded")
)

// Service is the entry point for designing topologies and simulating
// failures across isolated namespaces.
//
// Service does not serialize calls within a namespace. Hosts must ensure at
// most one DesignComponent or SimulateFailure runs per namespace at a time.
// Calls against different namespaces may run in parallel.
type Service struct {
	registry *graph.Registry
	engine   engine.Options
	cache    ResultCache
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithEngineOptions sets the Monte Carlo worker pool options.
func WithEngineOptions(o engine.Options) Option {
	return func(s *Service) { s.engine = o }
}

// WithResultCache records every successful simulation in c.
func WithResultCache(c ResultCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service with an empty namespace registry.
func NewService(opts ...Option) *Service {
	s := &Service{
		registry: graph.NewRegistry(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Namespaces lists every namespace that has been designed into.
func (s *Service) Namespaces() []string {
	return s.registry.Namespaces()
}

// DesignComponent upserts one component into namespace and returns the
// refreshed topology. It never panics; failures come back with Success false.
func (s *Service) DesignComponent(namespace string, spec graph.DesignSpec) (resp DesignResponse) {
	defer func() {
		if r := recover(); r != nil {
			resp = s.designFailed(namespace, spec.ComponentID, fmt.Errorf("panic: %v", r))
		}
	}()

	top := s.registry.GetOrCreate(namespace)
	c, err := top.Design(spec)
	if err != nil {
		return s.designFailed(namespace, spec.ComponentID, err)
	}
	data, err := graph.Marshal(top)
	if err != nil {
		return s.designFailed(namespace, spec.ComponentID, err)
	}

	FaultsimDesignTotal.WithLabelValues("success").Inc()
	FaultsimComponents.WithLabelValues(namespace).Set(float64(top.Graph().Len()))
	s.logger.Info("component_designed",
		"namespace", namespace,
		"component_id", spec.ComponentID,
		"requires", len(spec.Requires),
		"dependency_logic", string(c.Logic),
	)

	return DesignResponse{
		Success:      true,
		ComponentID:  spec.ComponentID,
		Message:      fmt.Sprintf("Component %s designed", spec.ComponentID),
		TopologyJSON: string(data),
	}
}

func (s *Service) designFailed(namespace, id string, err error) DesignResponse {
	FaultsimDesignTotal.WithLabelValues("failure").Inc()
	s.logger.Error("design_failed", "namespace", namespace, "component_id", id, "error", err)
	return DesignResponse{
		Success:      false,
		ComponentID:  id,
		Message:      fmt.Sprintf("Failed to design component %s", id),
		Error:        err.Error(),
		TopologyJSON: graph.EmptyJSON,
	}
}

// SimulateFailure fails req.FailedComponentIDs and propagates the failure.
//
// "monte_carlo" with a positive iteration count runs the probabilistic
// engine; every other type runs one deterministic cascade. The call never
// panics; failures come back with Success false and empty collections.
func (s *Service) SimulateFailure(ctx context.Context, namespace string, req SimulateRequest) (resp SimulateResponse) {
	id := uuid.NewString()
	kind := req.SimulationType
	if kind == "" {
		kind = TypeCascade
	}
	start := s.now()

	defer func() {
		if r := recover(); r != nil {
			resp = s.simulateFailed(namespace, id, kind, fmt.Errorf("panic: %v", r))
		}
		FaultsimSimulationSeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	top, ok := s.registry.Get(namespace)
	if !ok || top.Graph().Len() == 0 {
		return s.simulateFailed(namespace, id, kind, fmt.Errorf("%w: namespace %q", ErrEmptyTopology, namespace))
	}
	g := top.Graph()
	initial, err := engine.Resolve(g, req.FailedComponentIDs)
	if err != nil {
		return s.simulateFailed(namespace, id, kind, err)
	}
	mode := ""
	if len(req.FailureModes) > 0 {
		mode = req.FailureModes[0]
	}

	var states []graph.State
	var score *float64
	if kind == TypeMonteCarlo && req.MonteCarloIterations > 0 {
		res, err := s.monteCarlo(ctx, top, initial, mode, req)
		if err != nil {
			return s.simulateFailed(namespace, id, kind, err)
		}
		states = res.states
		score = &res.score
	} else {
		tr := engine.Cascade(g, initial)
		engine.Apply(g, tr, initial, mode)
		states = tr.States
	}

	atRisk, flagged := analysis.Redundancy(top, states)
	for h, f := range flagged {
		g.Node(h).RedundancyAtRisk = f
	}
	metrics := analysis.Health(top, states, atRisk)
	if score != nil {
		metrics.SystemHealthScore = *score
	}

	data, err := graph.Marshal(top)
	if err != nil {
		return s.simulateFailed(namespace, id, kind, err)
	}

	resp = SimulateResponse{
		Success:         true,
		SimulationID:    id,
		Namespace:       namespace,
		SimulationType:  kind,
		ComponentStates: componentStates(g, states),
		FailurePaths:    analysis.Paths(g, states, initial),
		HealthMetrics:   metrics,
		TopologyJSON:    string(data),
		CompletedAt:     s.now().UTC(),
	}
	if score != nil {
		resp.Iterations = req.MonteCarloIterations
	}

	FaultsimSimulationTotal.WithLabelValues(kind, "success").Inc()
	FaultsimHealthScore.WithLabelValues(namespace).Set(metrics.SystemHealthScore)
	s.logger.Info("simulation_completed",
		"namespace", namespace,
		"simulation_id", id,
		"simulation_type", kind,
		"failed_components", metrics.FailedComponents,
		"system_health_score", metrics.SystemHealthScore,
	)

	if s.cache != nil {
		if err := s.cache.Put(ctx, namespace, resp); err != nil {
			s.logger.Warn("result_cache_put_failed", "namespace", namespace, "error", err)
		}
	}
	return resp
}

type monteCarloOutcome struct {
	states []graph.State
	score  float64
}

// monteCarlo leaves every component operational with its empirical failure
// probability attached, and reports representative states bucketed from
// those probabilities.
func (s *Service) monteCarlo(ctx context.Context, top *graph.Topology, initial []int, mode string, req SimulateRequest) (*monteCarloOutcome, error) {
	g := top.Graph()
	ids := make([]string, len(initial))
	for i, h := range initial {
		ids[i] = g.Node(h).ID
	}
	probs, err := engine.Probabilities(ids, req.FailureParameters)
	if err != nil {
		return nil, err
	}
	res, err := engine.MonteCarlo(ctx, g, initial, probs, req.MonteCarloIterations, s.engine)
	if err != nil {
		return nil, err
	}

	top.Reset()
	states := make([]graph.State, g.Len())
	for h := range states {
		p := res.Probability(h)
		g.Node(h).FailureProbability = p
		states[h] = engine.RepresentativeState(p)
	}
	for h := range states {
		if states[h] == graph.StateOperational {
			continue
		}
		c := g.Node(h)
		for _, p := range g.Predecessors(h) {
			if states[p] == graph.StateFailed {
				c.FailedDependencies = append(c.FailedDependencies, g.Node(p).ID)
			}
		}
	}
	if mode != "" {
		for _, h := range initial {
			g.Node(h).FailureMode = mode
		}
	}

	s.logger.Debug("monte_carlo_completed",
		"namespace", top.Namespace,
		"iterations", res.Iterations,
		"seed", res.Seed,
		"fail_events", res.FailEvents,
	)
	return &monteCarloOutcome{states: states, score: res.HealthScore()}, nil
}

func componentStates(g *graph.Graph, states []graph.State) []ComponentState {
	out := make([]ComponentState, 0, g.Len())
	for h, st := range states {
		c := g.Node(h)
		out = append(out, ComponentState{
			ComponentID:        c.ID,
			State:              st,
			FailedDependencies: append([]string{}, c.FailedDependencies...),
			FailureProbability: c.FailureProbability,
			FailureMode:        c.FailureMode,
			RedundancyAtRisk:   c.RedundancyAtRisk,
			Metadata:           c.Metadata,
		})
	}
	return out
}

func (s *Service) simulateFailed(namespace, id, kind string, err error) SimulateResponse {
	FaultsimSimulationTotal.WithLabelValues(kind, "failure").Inc()
	s.logger.Error("simulation_failed",
		"namespace", namespace,
		"simulation_id", id,
		"simulation_type", kind,
		"error", err,
	)
	return SimulateResponse{
		Success:         false,
		SimulationID:    id,
		Namespace:       namespace,
		SimulationType:  kind,
		ComponentStates: []ComponentState{},
		FailurePaths:    []analysis.FailurePath{},
		HealthMetrics: analysis.HealthMetrics{
			CriticalVulnerabilities: []string{},
			RedundancyGroupsAtRisk:  []string{},
		},
		TopologyJSON: graph.EmptyJSON,
		Error:        err.Error(),
		CompletedAt:  s.now().UTC(),
	}
}

// GetTopology serializes namespace. An unknown namespace is reported as an
// empty topology.
func (s *Service) GetTopology(namespace string) (resp TopologyResponse) {
	defer func() {
		if r := recover(); r != nil {
			resp = TopologyResponse{
				Namespace:        namespace,
				TopologyJSON:     graph.EmptyJSON,
				RedundancyGroups: []string{},
				Error:            fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	top, ok := s.registry.Get(namespace)
	if !ok {
		top = graph.NewTopology(namespace)
	}
	sum := top.Summarize()
	resp = TopologyResponse{
		Success:          true,
		Namespace:        namespace,
		ComponentCount:   sum.ComponentCount,
		EdgeCount:        sum.EdgeCount,
		RedundancyGroups: sum.RedundancyGroups,
	}
	data, err := graph.Marshal(top)
	if err != nil {
		s.logger.Error("topology_encode_failed", "namespace", namespace, "error", err)
		resp.Success = false
		resp.Error = err.Error()
		resp.TopologyJSON = graph.EmptyJSON
		return resp
	}
	resp.TopologyJSON = string(data)
	return resp
}

// LatestResult returns the most recent successful simulation for namespace.
func (s *Service) LatestResult(ctx context.Context, namespace string) (SimulateResponse, error) {
	if s.cache == nil {
		return SimulateResponse{}, ErrNoResult
	}
	res, ok, err := s.cache.Latest(ctx, namespace)
	if err != nil {
		return SimulateResponse{}, fmt.Errorf("failed to read latest result: %w", err)
	}
	if !ok {
		return SimulateResponse{}, ErrNoResult
	}
	return res, nil
}
