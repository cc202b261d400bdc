package graph

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xhad/litkb/internal/models"
)

const (
	minKeywordLength    = 3
	minKeywordFrequency = 2
)

var stopWords = toSet(
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with",
	"by", "this", "that", "these", "those", "is", "are", "was", "were", "be", "been",
	"have", "has", "had", "do", "does", "did", "will", "would", "could", "should",
	"may", "might", "must", "can", "cannot", "from", "into", "through", "during",
	"before", "after", "above", "below", "up", "down", "out", "off", "over", "under",
	"again", "further", "then", "once", "here", "there", "when", "where", "why", "how",
	"all", "any", "both", "each", "few", "more", "most", "other", "some", "such",
	"no", "nor", "not", "only", "own", "same", "so", "than", "too", "very",
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

type KeywordNode struct {
	Frequency int      `json:"frequency"`
	Articles  []string `json:"articles"`
}

type KeywordNetwork struct {
	Graph *Graph[KeywordNode]
	Stats Stats
	// KeywordCounts and KeywordArticles cover every keyword seen, including
	// those pruned from the graph.
	KeywordCounts   map[string]int
	KeywordArticles map[string][]string
}

// ExtractKeywords lower-cases text, turns punctuation into spaces and keeps
// alphabetic tokens of at least three letters that are not stop words.
func ExtractKeywords(text string) map[string]struct{} {
	keywords := make(map[string]struct{})
	if text == "" {
		return keywords
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, strings.ToLower(text))

	for _, word := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(word) < minKeywordLength || !isAlpha(word) {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		keywords[word] = struct{}{}
	}
	return keywords
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

// ArticleKeywords returns the sorted keyword set of one article: words from
// its title, abstract, objective, key variables and main findings, plus its
// risk type and level of analysis.
func ArticleKeywords(article models.Article) []string {
	text := strings.Join([]string{
		article.Title,
		article.Abstract,
		article.Objective,
		article.KeyVariables,
		article.MainFindings,
	}, " ")

	set := ExtractKeywords(text)
	if article.RiskType != "" {
		set[strings.ToLower(article.RiskType)] = struct{}{}
	}
	if article.LevelOfAnalysis != "" {
		set[strings.ReplaceAll(strings.ToLower(article.LevelOfAnalysis), "-", " ")] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// BuildKeywordNetwork links keywords that occur in the same article, then
// prunes keywords found in fewer than two articles.
func BuildKeywordNetwork(articles []models.Article) KeywordNetwork {
	g := New[KeywordNode]()
	counts := make(map[string]int)
	keywordArticles := make(map[string][]string)

	for _, article := range articles {
		keywords := ArticleKeywords(article)
		title := article.TitleOr(unknownTitle)

		for _, kw := range keywords {
			counts[kw]++
			keywordArticles[kw] = append(keywordArticles[kw], title)

			node := g.UpsertNode(kw, nil)
			node.Frequency++
			node.Articles = append(node.Articles, title)
		}

		for i, a := range keywords {
			for _, b := range keywords[i+1:] {
				g.AddWeight(a, b, 1, title)
			}
		}
	}

	var sparse []string
	for _, id := range g.NodeIDs() {
		if node, _ := g.Node(id); node.Frequency < minKeywordFrequency {
			sparse = append(sparse, id)
		}
	}
	g.RemoveNodes(sparse...)

	return KeywordNetwork{
		Graph:           g,
		Stats:           ComputeStats(g),
		KeywordCounts:   counts,
		KeywordArticles: keywordArticles,
	}
}
