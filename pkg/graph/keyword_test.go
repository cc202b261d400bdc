package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/litkb/internal/models"
)

func keys(m map[string]struct{}) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("The Credit-risk of 2020 banks: an analysis, with COVID19 and risk_factors!")
	assert.ElementsMatch(t, []string{"credit", "risk", "banks", "analysis"}, keys(got))
}

func TestExtractKeywordsEmpty(t *testing.T) {
	assert.Empty(t, ExtractKeywords(""))
	assert.Empty(t, ExtractKeywords("a an the of to"))
}

func TestArticleKeywordsInjectsAttributes(t *testing.T) {
	kws := ArticleKeywords(models.Article{
		Title:    "Liquidity",
		Analysis: models.Analysis{RiskType: "Financial", LevelOfAnalysis: "Firm-Level"},
	})
	assert.Equal(t, []string{"financial", "firm level", "liquidity"}, kws)
}

func TestKeywordNetworkPruning(t *testing.T) {
	net := BuildKeywordNetwork([]models.Article{
		{Title: "liquidity hedging volatility"},
		{Title: "liquidity hedging governance"},
	})

	assert.True(t, net.Graph.HasNode("liquidity"))
	assert.True(t, net.Graph.HasNode("hedging"))
	assert.False(t, net.Graph.HasNode("volatility"), "keyword in one article is pruned")
	assert.False(t, net.Graph.HasNode("governance"))

	assert.Equal(t, 2, net.Stats.Nodes)
	assert.Equal(t, 1, net.Stats.Edges)
	e, ok := net.Graph.Edge("liquidity", "hedging")
	require.True(t, ok)
	assert.Equal(t, 2.0, e.Weight)
	assert.Equal(t, []string{"liquidity hedging volatility", "liquidity hedging governance"}, e.Evidence)

	node, _ := net.Graph.Node("liquidity")
	assert.Equal(t, 2, node.Frequency)

	assert.Equal(t, 1, net.KeywordCounts["volatility"])
	assert.Equal(t, []string{"liquidity hedging volatility"}, net.KeywordArticles["volatility"])
}

func TestKeywordNetworkFrequencyCountsArticlesNotOccurrences(t *testing.T) {
	net := BuildKeywordNetwork([]models.Article{
		{Title: "risk risk risk", Abstract: "risk everywhere"},
	})
	assert.Equal(t, 1, net.KeywordCounts["risk"])
	assert.False(t, net.Graph.HasNode("risk"))
	assert.Equal(t, 0, net.Stats.Nodes)
}
