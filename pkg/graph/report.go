package graph

import (
	"fmt"
	"strings"

	"github.com/xhad/litkb/internal/models"
)

type Kind string

const (
	KindAuthor  Kind = "author"
	KindKeyword Kind = "keyword"
	KindArticle Kind = "article"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindAuthor, KindKeyword, KindArticle:
		return k, nil
	case "":
		return KindAuthor, nil
	}
	return "", fmt.Errorf("unknown graph kind %q", s)
}

// Report is the serializable result of one network build.
type Report struct {
	Kind  Kind  `json:"kind"`
	Stats Stats `json:"stats"`
	Graph any   `json:"graph"`
}

// Build constructs the network of the given kind. threshold only applies to
// article networks; a non-positive value means DefaultSimilarityThreshold.
func Build(kind Kind, articles []models.Article, threshold float64) (Report, error) {
	switch kind {
	case KindAuthor:
		n := BuildAuthorNetwork(articles)
		return Report{Kind: kind, Stats: n.Stats, Graph: n.Graph.Export()}, nil
	case KindKeyword:
		n := BuildKeywordNetwork(articles)
		return Report{Kind: kind, Stats: n.Stats, Graph: n.Graph.Export()}, nil
	case KindArticle:
		if threshold <= 0 {
			threshold = DefaultSimilarityThreshold
		}
		n := BuildArticleNetwork(articles, threshold)
		return Report{Kind: kind, Stats: n.Stats, Graph: n.Graph.Export()}, nil
	}
	return Report{}, fmt.Errorf("unknown graph kind %q", kind)
}
