package graph

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EmptyJSON is returned in place of a topology that could not be encoded.
const EmptyJSON = "{}"

var ErrDanglingEdge = errors.New("edge references unknown component")

// NodeLink is the node-link document shape for a topology.
type NodeLink struct {
	Directed   bool        `json:"directed"`
	Multigraph bool        `json:"multigraph"`
	Graph      GraphAttrs  `json:"graph"`
	Nodes      []Component `json:"nodes"`
	Edges      []Edge      `json:"edges"`
}

// GraphAttrs holds graph-level attributes.
type GraphAttrs struct {
	Namespace        string  `json:"namespace"`
	RedundancyGroups []Group `json:"redundancy_groups"`
}

// Group is a named redundancy group and its members.
type Group struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// Summary describes the size of a topology.
type Summary struct {
	ComponentCount   int      `json:"component_count"`
	EdgeCount        int      `json:"edge_count"`
	RedundancyGroups []string `json:"redundancy_groups"`
}

// ToNodeLink builds the node-link document for t.
func (t *Topology) ToNodeLink() NodeLink {
	doc := NodeLink{
		Directed: true,
		Graph: GraphAttrs{
			Namespace:        t.Namespace,
			RedundancyGroups: make([]Group, 0, len(t.groupOrder)),
		},
		Nodes: make([]Component, 0, t.graph.Len()),
		Edges: t.graph.Edges(),
	}
	for _, name := range t.groupOrder {
		doc.Graph.RedundancyGroups = append(doc.Graph.RedundancyGroups, Group{Name: name, Members: t.Members(name)})
	}
	for _, c := range t.graph.nodes {
		doc.Nodes = append(doc.Nodes, *c)
	}
	return doc
}

// Marshal encodes t as node-link JSON.
func Marshal(t *Topology) ([]byte, error) {
	data, err := json.Marshal(t.ToNodeLink())
	if err != nil {
		return nil, fmt.Errorf("failed to encode topology %q: %w", t.Namespace, err)
	}
	return data, nil
}

// JSON encodes t and falls back to EmptyJSON on any encoding error.
func JSON(t *Topology) string {
	if t == nil {
		return EmptyJSON
	}
	data, err := Marshal(t)
	if err != nil {
		return EmptyJSON
	}
	return string(data)
}

// Unmarshal rebuilds a topology from node-link JSON.
func Unmarshal(data []byte) (*Topology, error) {
	var doc NodeLink
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode topology: %w", err)
	}
	return FromNodeLink(doc)
}

// FromNodeLink rebuilds a topology from a decoded document.
func FromNodeLink(doc NodeLink) (*Topology, error) {
	t := NewTopology(doc.Graph.Namespace)
	for i := range doc.Nodes {
		c := doc.Nodes[i]
		if c.ID == "" {
			return nil, ErrEmptyComponentID
		}
		t.graph.put(&c)
	}
	for _, e := range doc.Edges {
		from, ok := t.graph.Handle(e.Source)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrDanglingEdge, e.Source)
		}
		to, ok := t.graph.Handle(e.Target)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrDanglingEdge, e.Target)
		}
		t.graph.addEdge(from, to)
	}
	for _, g := range doc.Graph.RedundancyGroups {
		if _, ok := t.groups[g.Name]; !ok {
			t.groupOrder = append(t.groupOrder, g.Name)
			t.groups[g.Name] = nil
		}
		for _, m := range g.Members {
			t.join(g.Name, m)
		}
	}
	return t, nil
}

// Summarize reports the component count, edge count and sorted group names.
func (t *Topology) Summarize() Summary {
	return Summary{
		ComponentCount:   t.graph.Len(),
		EdgeCount:        t.graph.EdgeCount(),
		RedundancyGroups: t.GroupNames(),
	}
}
