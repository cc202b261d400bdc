// Package graph builds undirected weighted relationship graphs over article
// records: author collaboration, keyword co-occurrence and article
// similarity.
package graph

import "sort"

// EdgeKey identifies an undirected edge by its endpoints in sorted order.
type EdgeKey struct {
	A, B string
}

func NewEdgeKey(u, v string) EdgeKey {
	if v < u {
		u, v = v, u
	}
	return EdgeKey{A: u, B: v}
}

// Edge carries an accumulated weight and the titles that contributed to it.
type Edge struct {
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Weight   float64  `json:"weight"`
	Evidence []string `json:"evidence,omitempty"`
}

// Graph is an undirected graph with per-node attributes of type N. Nodes and
// edges iterate in insertion order.
type Graph[N any] struct {
	nodes     map[string]*N
	nodeOrder []string
	edges     map[EdgeKey]*Edge
	edgeOrder []EdgeKey
	adj       map[string]map[string]struct{}
}

func New[N any]() *Graph[N] {
	return &Graph[N]{
		nodes: make(map[string]*N),
		edges: make(map[EdgeKey]*Edge),
		adj:   make(map[string]map[string]struct{}),
	}
}

// UpsertNode returns the attributes of id, creating the node from init (or
// the zero value when init is nil) if it does not exist yet.
func (g *Graph[N]) UpsertNode(id string, init func() N) *N {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	var attrs N
	if init != nil {
		attrs = init()
	}
	g.nodes[id] = &attrs
	g.nodeOrder = append(g.nodeOrder, id)
	g.adj[id] = make(map[string]struct{})
	return &attrs
}

func (g *Graph[N]) Node(id string) (*N, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

func (g *Graph[N]) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// NodeIDs returns node ids in insertion order.
func (g *Graph[N]) NodeIDs() []string {
	return append([]string(nil), g.nodeOrder...)
}

func (g *Graph[N]) NumNodes() int { return len(g.nodes) }

func (g *Graph[N]) NumEdges() int { return len(g.edges) }

// AddWeight looks up the edge u-v, inserting it with zero weight if needed,
// then adds delta to its weight and appends evidence when non-empty. Missing
// endpoints are created with zero attributes. Self-loops are ignored and
// reported as false.
func (g *Graph[N]) AddWeight(u, v string, delta float64, evidence string) bool {
	if u == v {
		return false
	}
	g.UpsertNode(u, nil)
	g.UpsertNode(v, nil)

	key := NewEdgeKey(u, v)
	e, ok := g.edges[key]
	if !ok {
		e = &Edge{Source: key.A, Target: key.B}
		g.edges[key] = e
		g.edgeOrder = append(g.edgeOrder, key)
		g.adj[u][v] = struct{}{}
		g.adj[v][u] = struct{}{}
	}
	e.Weight += delta
	if evidence != "" {
		e.Evidence = append(e.Evidence, evidence)
	}
	return true
}

// Edge returns the edge between u and v in either order.
func (g *Graph[N]) Edge(u, v string) (Edge, bool) {
	e, ok := g.edges[NewEdgeKey(u, v)]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// Edges returns a copy of every edge in insertion order.
func (g *Graph[N]) Edges() []Edge {
	out := make([]Edge, 0, len(g.edgeOrder))
	for _, k := range g.edgeOrder {
		e := *g.edges[k]
		e.Evidence = append([]string(nil), e.Evidence...)
		out = append(out, e)
	}
	return out
}

func (g *Graph[N]) Degree(id string) int {
	return len(g.adj[id])
}

// Neighbors returns the ids adjacent to id, sorted.
func (g *Graph[N]) Neighbors(id string) []string {
	out := make([]string, 0, len(g.adj[id]))
	for n := range g.adj[id] {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// RemoveNodes deletes the given nodes together with their incident edges.
func (g *Graph[N]) RemoveNodes(ids ...string) {
	if len(ids) == 0 {
		return
	}
	for _, id := range ids {
		if _, ok := g.nodes[id]; !ok {
			continue
		}
		for n := range g.adj[id] {
			delete(g.edges, NewEdgeKey(id, n))
			delete(g.adj[n], id)
		}
		delete(g.adj, id)
		delete(g.nodes, id)
	}

	nodes := g.nodeOrder[:0]
	for _, id := range g.nodeOrder {
		if _, ok := g.nodes[id]; ok {
			nodes = append(nodes, id)
		}
	}
	g.nodeOrder = nodes

	edges := g.edgeOrder[:0]
	for _, k := range g.edgeOrder {
		if _, ok := g.edges[k]; ok {
			edges = append(edges, k)
		}
	}
	g.edgeOrder = edges
}

// ExportNode is a node snapshot for renderers.
type ExportNode[N any] struct {
	ID         string `json:"id"`
	Attributes N      `json:"attributes"`
}

// Export is a JSON-friendly snapshot of a graph.
type Export[N any] struct {
	Nodes []ExportNode[N] `json:"nodes"`
	Edges []Edge          `json:"edges"`
}

func (g *Graph[N]) Export() Export[N] {
	out := Export[N]{
		Nodes: make([]ExportNode[N], 0, len(g.nodeOrder)),
		Edges: g.Edges(),
	}
	for _, id := range g.nodeOrder {
		out.Nodes = append(out.Nodes, ExportNode[N]{ID: id, Attributes: *g.nodes[id]})
	}
	return out
}
