package graph

import (
	"slices"
	"strings"
	"unicode"

	"github.com/xhad/litkb/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const unknownTitle = "Unknown"

var (
	honorificPrefixes = []string{"dr", "prof", "mr", "ms", "mrs"}
	honorificSuffixes = []string{"jr", "sr", "phd", "md"}
)

type AuthorNode struct {
	Articles  int      `json:"articles"`
	RiskTypes []string `json:"risk_types"`
	Years     []int    `json:"years"`
	AvgYear   float64  `json:"avg_year"`
}

type AuthorNetwork struct {
	Graph          *Graph[AuthorNode]
	Stats          Stats
	AuthorInfo     map[string]AuthorNode
	AuthorArticles map[string][]string
}

// CleanAuthorName collapses whitespace, drops one honorific prefix and one
// suffix, then title-cases the result.
func CleanAuthorName(name string) string {
	fields := strings.Fields(name)
	if len(fields) > 1 && isHonorific(fields[0], honorificPrefixes) {
		fields = fields[1:]
	}
	if len(fields) > 1 && isHonorific(fields[len(fields)-1], honorificSuffixes) {
		fields = fields[:len(fields)-1]
	}

	cleaned := strings.TrimRight(strings.Join(fields, " "), ",")
	return titleCase(cleaned)
}

// titleCase title-cases every letter run on its own, so "o'brien" becomes
// "O'Brien" and "j.r.r." becomes "J.R.R.".
func titleCase(s string) string {
	caser := cases.Title(language.Und)
	var b strings.Builder
	b.Grow(len(s))
	for s != "" {
		i := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
		if i < 0 {
			i = len(s)
		}
		b.WriteString(caser.String(s[:i]))
		s = s[i:]

		j := strings.IndexFunc(s, unicode.IsLetter)
		if j < 0 {
			j = len(s)
		}
		b.WriteString(s[:j])
		s = s[j:]
	}
	return b.String()
}
