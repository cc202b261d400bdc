package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddWeightAccumulates(t *testing.T) {
	g := New[struct{}]()

	assert.True(t, g.AddWeight("b", "a", 1, "T1"))
	assert.True(t, g.AddWeight("a", "b", 2, "T2"))
	assert.False(t, g.AddWeight("a", "a", 1, "self"))

	require.Equal(t, 1, g.NumEdges())
	e, ok := g.Edge("b", "a")
	require.True(t, ok)
	assert.Equal(t, "a", e.Source)
	assert.Equal(t, "b", e.Target)
	assert.Equal(t, 3.0, e.Weight)
	assert.Equal(t, []string{"T1", "T2"}, e.Evidence)
	assert.Equal(t, []string{"b", "a"}, g.NodeIDs())
}

func TestRemoveNodes(t *testing.T) {
	g := New[int]()
	g.AddWeight("a", "b", 1, "")
	g.AddWeight("b", "c", 1, "")
	g.AddWeight("c", "a", 1, "")
	g.AddWeight("c", "d", 1, "")

	g.RemoveNodes("c", "missing")

	assert.Equal(t, []string{"a", "b", "d"}, g.NodeIDs())
	assert.Equal(t, 1, g.NumEdges())
	assert.Equal(t, 0, g.Degree("d"))
	assert.Equal(t, []string{"b"}, g.Neighbors("a"))
	_, ok := g.Edge("a", "c")
	assert.False(t, ok)
}

func TestComputeStats(t *testing.T) {
	tests := []struct {
		name       string
		build      func(g *Graph[int])
		nodes      int
		edges      int
		density    float64
		components int
		avg        float64
		min, max   int
	}{
		{
			name: "triangle plus isolated",
			build: func(g *Graph[int]) {
				g.AddWeight("a", "b", 1, "")
				g.AddWeight("b", "c", 1, "")
				g.AddWeight("a", "c", 1, "")
				g.UpsertNode("d", nil)
			},
			nodes: 4, edges: 3, density: 0.5, components: 2, avg: 1.5, min: 0, max: 2,
		},
		{
			name: "single node",
			build: func(g *Graph[int]) {
				g.UpsertNode("solo", nil)
			},
			nodes: 1, edges: 0, density: 0, components: 1, avg: 0, min: 0, max: 0,
		},
		{
			name: "path",
			build: func(g *Graph[int]) {
				g.AddWeight("a", "b", 1, "")
				g.AddWeight("b", "c", 1, "")
			},
			nodes: 3, edges: 2, density: 2.0 / 3.0, components: 1, avg: 4.0 / 3.0, min: 1, max: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New[int]()
			tt.build(g)
			s := ComputeStats(g)

			assert.Equal(t, tt.nodes, s.Nodes)
			assert.Equal(t, tt.edges, s.Edges)
			require.NotNil(t, s.Structure)
			assert.InDelta(t, tt.density, s.Density, 1e-9)
			assert.Equal(t, tt.components, s.ConnectedComponents)
			assert.InDelta(t, tt.avg, s.AvgDegree, 1e-9)
			assert.Equal(t, tt.min, s.MinDegree)
			assert.Equal(t, tt.max, s.MaxDegree)
		})
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	s := ComputeStats(New[int]())
	assert.Equal(t, 0, s.Nodes)
	assert.Equal(t, 0, s.Edges)
	assert.Nil(t, s.Structure)

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":0,"edges":0}`, string(raw))
}

func TestExport(t *testing.T) {
	g := New[KeywordNode]()
	g.UpsertNode("risk", func() KeywordNode { return KeywordNode{Frequency: 2} })
	g.AddWeight("risk", "credit", 1, "T")

	ex := g.Export()
	require.Len(t, ex.Nodes, 2)
	assert.Equal(t, "risk", ex.Nodes[0].ID)
	assert.Equal(t, 2, ex.Nodes[0].Attributes.Frequency)
	require.Len(t, ex.Edges, 1)
	assert.Equal(t, []string{"T"}, ex.Edges[0].Evidence)

	raw, err := json.Marshal(ex)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"source":"credit"`)
}
