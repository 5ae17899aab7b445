package graph

// Graph is an arena of components addressed by stable integer handles.
//
// A handle is assigned on first sight of a component id and never changes,
// so adjacency lists can hold handles instead of pointers. Edges run from a
// predecessor to the component that requires it.
type Graph struct {
	index map[string]int
	nodes []*Component
	preds [][]int
	succs [][]int
	edges []Edge
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		index: make(map[string]int),
	}
}

// Len returns the number of components.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// EdgeCount returns the number of requires edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Handle returns the handle for id.
func (g *Graph) Handle(id string) (int, bool) {
	h, ok := g.index[id]
	return h, ok
}

// Node returns the component stored at handle h.
func (g *Graph) Node(h int) *Component {
	return g.nodes[h]
}

// Lookup returns the component with the given id.
func (g *Graph) Lookup(id string) (*Component, bool) {
	h, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.nodes[h], true
}

// Predecessors returns the handles this component depends on.
func (g *Graph) Predecessors(h int) []int {
	return g.preds[h]
}

// Successors returns the handles that depend on this component.
func (g *Graph) Successors(h int) []int {
	return g.succs[h]
}

// Components returns every component in creation order.
func (g *Graph) Components() []*Component {
	out := make([]*Component, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns every requires edge in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// put stores c under its id, replacing any component already there while
// keeping its handle and edges.
func (g *Graph) put(c *Component) int {
	if h, ok := g.index[c.ID]; ok {
		g.nodes[h] = c
		return h
	}
	h := len(g.nodes)
	g.index[c.ID] = h
	g.nodes = append(g.nodes, c)
	g.preds = append(g.preds, nil)
	g.succs = append(g.succs, nil)
	return h
}

// ensurePlaceholder returns the handle for id, creating an unknown
// placeholder component when id has never been seen.
func (g *Graph) ensurePlaceholder(id string) int {
	if h, ok := g.index[id]; ok {
		return h
	}
	return g.put(newPlaceholder(id))
}

// addEdge inserts from -> to unless it already exists.
func (g *Graph) addEdge(from, to int) bool {
	for _, p := range g.preds[to] {
		if p == from {
			return false
		}
	}
	g.preds[to] = append(g.preds[to], from)
	g.succs[from] = append(g.succs[from], to)
	g.edges = append(g.edges, Edge{Source: g.nodes[from].ID, Target: g.nodes[to].ID})
	return true
}

func newPlaceholder(id string) *Component {
	return &Component{
		ID:                 id,
		Type:               PlaceholderType,
		Criticality:        DefaultCriticality,
		State:              StateUnknown,
		Logic:              LogicAnd,
		DependencyWeights:  map[string]float64{},
		IntegrityThreshold: DefaultIntegrityThreshold,
		CurrentIntegrity:   DefaultIntegrity,
		Provides:           []string{},
		Metadata:           map[string]string{},
		FailedDependencies: []string{},
	}
}
