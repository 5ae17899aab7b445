package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/adamsih300u/bastion-sub008/pkg/client"
	"github.com/adamsih300u/bastion-sub008/pkg/graph"
	"github.com/adamsih300u/bastion-sub008/pkg/simulation"
)

const (
	serverName    = "faultsim"
	serverVersion = "1.0.0"
	eventsURI     = "faultsim://events"
	promptName    = "faultsim-aware"
)

// Server adapts faultsim-d to the Model Context Protocol.
type Server struct {
	mcpServer *server.MCPServer
	apiClient *client.Client
}

// NewServer creates a new MCP server instance talking to the daemon at apiURL.
func NewServer(apiURL string, opts ...client.Option) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(serverName, serverVersion),
		apiClient: client.NewClient(apiURL, opts...),
	}
	s.registerResources()
	s.registerTools()
	s.registerPrompts()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(
		eventsURI,
		"Faultsim Event Log",
		mcp.WithResourceDescription("Recent design and simulation events across all namespaces"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadEvents)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"design_component",
		mcp.WithDescription("Create or replace a component in a namespace's dependency graph. Returns the updated topology."),
		mcp.WithString("namespace", mcp.Required(), mcp.Description("Isolated topology to modify")),
		mcp.WithString("component_id", mcp.Required(), mcp.Description("Unique component id within the namespace")),
		mcp.WithString("component_type", mcp.Description("Free-form type label (e.g. 'generator', 'bus')")),
		mcp.WithArray("requires", mcp.Description("Ids this component depends on. Unknown ids become placeholders."), mcp.WithStringItems()),
		mcp.WithArray("provides", mcp.Description("Informational capability labels"), mcp.WithStringItems()),
		mcp.WithString("redundancy_group", mcp.Description("Group of interchangeable components")),
		mcp.WithNumber("criticality", mcp.Description("Criticality rank, default 3")),
		mcp.WithString("dependency_logic",
			mcp.Description("How dependency failures combine (default AND)"),
			mcp.Enum(string(graph.LogicAnd), string(graph.LogicOr), string(graph.LogicMajority), string(graph.LogicMOfN), string(graph.LogicWeightedIntegrity)),
		),
		mcp.WithNumber("m_of_n_threshold", mcp.Description("Failed dependencies needed to fail under M_OF_N")),
		mcp.WithObject("dependency_weights", mcp.Description("Dependency id to weight for WEIGHTED_INTEGRITY")),
		mcp.WithNumber("integrity_threshold", mcp.Description("Integrity below which WEIGHTED_INTEGRITY fails, default 0.5")),
		mcp.WithObject("metadata", mcp.Description("Free-form string attributes")),
	), s.handleDesignComponent)

	s.mcpServer.AddTool(mcp.NewTool(
		"simulate_failure",
		mcp.WithDescription("Fail components and propagate the failure through the namespace. Returns component states, failure paths and health metrics."),
		mcp.WithString("namespace", mcp.Required(), mcp.Description("Topology to simulate against")),
		mcp.WithArray("failed_component_ids", mcp.Required(), mcp.Description("Components to fail initially"), mcp.WithStringItems()),
		mcp.WithArray("failure_modes", mcp.Description("Failure mode labels; the first applies to every initial failure"), mcp.WithStringItems()),
		mcp.WithString("simulation_type",
			mcp.Description("Deterministic cascade or probabilistic monte_carlo (default cascade)"),
			mcp.Enum(simulation.TypeSingle, simulation.TypeCascade, simulation.TypeMonteCarlo),
		),
		mcp.WithNumber("monte_carlo_iterations", mcp.Description("Trials for monte_carlo")),
		mcp.WithObject("failure_parameters", mcp.Description("Per-component probabilities keyed '<id>_prob'")),
	), s.handleSimulateFailure)

	s.mcpServer.AddTool(mcp.NewTool(
		"get_topology",
		mcp.WithDescription("Return a namespace's topology as node-link JSON with counts and redundancy groups."),
		mcp.WithString("namespace", mcp.Required(), mcp.Description("Topology to read")),
	), s.handleGetTopology)
}

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(mcp.NewPrompt(
		promptName,
		mcp.WithPromptDescription("Explains faultsim concepts (namespaces, dependency logic, cascades, Monte Carlo)"),
	), s.handleGetPrompt)
}

func (s *Server) handleReadEvents(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	events, err := s.apiClient.GetEvents(ctx, client.EventsOptions{Limit: 50})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal events: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleDesignComponent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	namespace := mcp.ParseString(request, "namespace", "")
	args := request.GetArguments()

	spec := graph.DesignSpec{
		ComponentID:     mcp.ParseString(request, "component_id", ""),
		ComponentType:   mcp.ParseString(request, "component_type", ""),
		Requires:        stringSlice(args["requires"]),
		Provides:        stringSlice(args["provides"]),
		RedundancyGroup: mcp.ParseString(request, "redundancy_group", ""),
		DependencyLogic: graph.Logic(mcp.ParseString(request, "dependency_logic", "")),
		MOfNThreshold:   mcp.ParseInt(request, "m_of_n_threshold", 0),
		Metadata:        stringMap(args["metadata"]),
	}
	if _, ok := args["criticality"]; ok {
		c := mcp.ParseInt(request, "criticality", graph.DefaultCriticality)
		spec.Criticality = &c
	}
	if _, ok := args["integrity_threshold"]; ok {
		th := mcp.ParseFloat64(request, "integrity_threshold", graph.DefaultIntegrityThreshold)
		spec.IntegrityThreshold = &th
	}
	if w := floatMap(args["dependency_weights"]); len(w) > 0 {
		spec.DependencyWeights = w
	}

	resp, err := s.apiClient.DesignComponent(ctx, namespace, spec)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return jsonResult(resp, resp.Success)
}

func (s *Server) handleSimulateFailure(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	namespace := mcp.ParseString(request, "namespace", "")
	args := request.GetArguments()

	req := simulation.SimulateRequest{
		FailedComponentIDs:   stringSlice(args["failed_component_ids"]),
		FailureModes:         stringSlice(args["failure_modes"]),
		SimulationType:       mcp.ParseString(request, "simulation_type", simulation.TypeCascade),
		MonteCarloIterations: mcp.ParseInt(request, "monte_carlo_iterations", 0),
		FailureParameters:    stringMap(args["failure_parameters"]),
	}

	resp, err := s.apiClient.SimulateFailure(ctx, namespace, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return jsonResult(resp, resp.Success)
}

func (s *Server) handleGetTopology(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	namespace := mcp.ParseString(request, "namespace", "")

	resp, err := s.apiClient.GetTopology(ctx, namespace)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return jsonResult(resp, resp.Success)
}

func (s *Server) handleGetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	if name != promptName {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}

	promptText := `You are working with faultsim, a failure-propagation simulator for infrastructure dependency graphs.

Concepts:
- Namespace: an isolated topology. Designs and simulations in one namespace never affect another.
- Component: a node with an id, a type and the ids it requires. Requiring an unknown id creates a placeholder.
- Redundancy group: components that can stand in for each other. A group is at risk once any member fails.
- Dependency logic decides when a component fails or degrades because its dependencies failed:
  AND fails only if all dependencies failed. OR fails if any did.
  MAJORITY fails if more than half failed and degrades otherwise.
  M_OF_N fails once m_of_n_threshold dependencies failed.
  WEIGHTED_INTEGRITY subtracts failed dependency weights from 1.0 and fails below integrity_threshold.
- cascade runs one deterministic propagation. monte_carlo samples each initial failure with
  failure_parameters["<id>_prob"] (default 0.5) and reports per-component failure probabilities.

Use design_component to build the graph, simulate_failure to test it and get_topology to inspect it.
`

	return mcp.NewGetPromptResult(
		promptName,
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
		},
	), nil
}

// jsonResult renders v as an indented JSON tool result, flagged as an
// error when ok is false.
func jsonResult(v interface{}, ok bool) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	if !ok {
		return mcp.NewToolResultError(string(data)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func stringSlice(v interface{}) []string {
	switch items := v.(type) {
	case []string:
		return items
	case []interface{}:
		out := make([]string, 0, len(items))
		for _, it := range items {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func stringMap(v interface{}) map[string]string {
	m, ok := v.(map[string]interface{})
	if !ok || len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		switch t := val.(type) {
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out
}

func floatMap(v interface{}) map[string]float64 {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, val := range m {
		switch t := val.(type) {
		case float64:
			out[k] = t
		case string:
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				out[k] = f
			}
		}
	}
	return out
}
