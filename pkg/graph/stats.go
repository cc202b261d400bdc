package graph

// Stats summarizes a graph. Structure is nil for an empty graph, so only
// node and edge counts are reported.
type Stats struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
	*Structure
}

type Structure struct {
	Density             float64 `json:"density"`
	ConnectedComponents int     `json:"connected_components"`
	AvgDegree           float64 `json:"avg_degree"`
	MinDegree           int     `json:"min_degree"`
	MaxDegree           int     `json:"max_degree"`
}

// ComputeStats returns node and edge counts, density, the number of
// connected components and a degree summary.
func ComputeStats[N any](g *Graph[N]) Stats {
	n := g.NumNodes()
	stats := Stats{Nodes: n, Edges: g.NumEdges()}
	if n == 0 {
		return stats
	}

	s := &Structure{ConnectedComponents: connectedComponents(g)}
	if n > 1 {
		s.Density = float64(stats.Edges) / (float64(n) * float64(n-1) / 2)
	}

	total := 0
	for i, id := range g.nodeOrder {
		d := g.Degree(id)
		total += d
		if i == 0 || d < s.MinDegree {
			s.MinDegree = d
		}
		if d > s.MaxDegree {
			s.MaxDegree = d
		}
	}
	s.AvgDegree = float64(total) / float64(n)

	stats.Structure = s
	return stats
}

func connectedComponents[N any](g *Graph[N]) int {
	seen := make(map[string]bool, g.NumNodes())
	count := 0

	for _, start := range g.nodeOrder {
		if seen[start] {
			continue
		}
		count++
		seen[start] = true
		queue := []string{start}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			for next := range g.adj[id] {
				if !seen[next] {
					seen[next] = true
					queue = append(queue, next)
				}
			}
		}
	}
	return count
}
