package graph

import (
	"fmt"

	"github.com/xhad/litkb/internal/models"
)

// DefaultSimilarityThreshold is the minimum score for an article edge.
const DefaultSimilarityThreshold = 0.7

// Attribute weights for Similarity. Each contributes to the denominator only
// when both articles carry the attribute.
const (
	riskTypeWeight = 0.3
	levelWeight    = 0.2
	yearWeight     = 0.1
	authorWeight   = 0.4

	maxYearGap = 3
)

type ArticleNode struct {
	Title           string   `json:"title"`
	Authors         []string `json:"authors,omitempty"`
	Year            *int     `json:"year,omitempty"`
	RiskType        string   `json:"risk_type,omitempty"`
	LevelOfAnalysis string   `json:"level_of_analysis,omitempty"`
}

type ArticleNetwork struct {
	Graph    *Graph[ArticleNode]
	Stats    Stats
	Articles map[string]models.Article
}

// ArticleID is the synthetic node id of the i-th input article.
func ArticleID(i int) string {
	return fmt.Sprintf("article_%d", i)
}

// Similarity scores two articles on shared attributes. Attributes missing
// from either article are left out of the normalization; with nothing to
// compare the score is 0.
func Similarity(a, b models.Article) float64 {
	var score, total float64

	if a.RiskType != "" && b.RiskType != "" {
		if a.RiskType == b.RiskType {
			score += riskTypeWeight
		}
		total += riskTypeWeight
	}

	if a.LevelOfAnalysis != "" && b.LevelOfAnalysis != "" {
		if a.LevelOfAnalysis == b.LevelOfAnalysis {
			score += levelWeight
		}
		total += levelWeight
	}

	if a.Year != nil && b.Year != nil {
		gap := *a.Year - *b.Year
		if gap < 0 {
			gap = -gap
		}
		if gap <= maxYearGap {
			score += yearWeight * (1 - float64(gap)/maxYearGap)
		}
		total += yearWeight
	}

	setA, setB := authorSet(a.Authors), authorSet(b.Authors)
	if len(setA) > 0 && len(setB) > 0 {
		overlap := 0
		for name := range setA {
			if _, ok := setB[name]; ok {
				overlap++
			}
		}
		if overlap > 0 {
			score += authorWeight * float64(overlap) / float64(max(len(setA), len(setB)))
		}
		total += authorWeight
	}

	if total == 0 {
		return 0
	}
	return score / total
}

func authorSet(authors []string) map[string]struct{} {
	set := make(map[string]struct{}, len(authors))
	for _, a := range authors {
		if a != "" {
			set[a] = struct{}{}
		}
	}
	return set
}

// BuildArticleNetwork adds one node per article and an edge for every pair
// whose Similarity is at least threshold, weighted by the score.
func BuildArticleNetwork(articles []models.Article, threshold float64) ArticleNetwork {
	g := New[ArticleNode]()
	byID := make(map[string]models.Article, len(articles))

	for i, article := range articles {
		id := ArticleID(i)
		byID[id] = article
		g.UpsertNode(id, func() ArticleNode {
			return ArticleNode{
				Title:           article.TitleOr(fmt.Sprintf("Article %d", i)),
				Authors:         article.Authors,
				Year:            article.Year,
				RiskType:        article.RiskType,
				LevelOfAnalysis: article.LevelOfAnalysis,
			}
		})
	}

	for i := range articles {
		for j := i + 1; j < len(articles); j++ {
			score := Similarity(articles[i], articles[j])
			if score < threshold {
				continue
			}
			a, b := ArticleID(i), ArticleID(j)
			g.AddWeight(a, b, score, "")
			// Record both titles as the evidence for this pair.
			e := g.edges[NewEdgeKey(a, b)]
			e.Evidence = []string{articles[i].TitleOr(unknownTitle), articles[j].TitleOr(unknownTitle)}
		}
	}

	return ArticleNetwork{
		Graph:    g,
		Stats:    ComputeStats(g),
		Articles: byID,
	}
}
