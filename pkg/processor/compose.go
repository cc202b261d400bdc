package processor

import (
	"strings"

	"github.com/xhad/litkb/internal/models"
)

type analysisField struct {
	label string
	value func(models.Analysis) string
}

// analysisFields is the canonical order in which analysis fields follow the
// abstract in the composed text.
var analysisFields = []analysisField{
	{"Objective", func(a models.Analysis) string { return a.Objective }},
	{"Methodology", func(a models.Analysis) string { return a.Methodology }},
	{"Key Variables", func(a models.Analysis) string { return a.KeyVariables }},
	{"Main Findings", func(a models.Analysis) string { return a.MainFindings }},
	{"Implications", func(a models.Analysis) string { return a.Implications }},
	{"Limitations", func(a models.Analysis) string { return a.Limitations }},
}

// ComposeText builds the single text body that gets chunked:
//
//	Title: <title>
//
//	Abstract: <abstract>
//
//	<Field Label>: <value>   (for each present analysis field)
func ComposeText(article models.Article) string {
	var b strings.Builder

	b.WriteString("Title: ")
	b.WriteString(article.Title)
	b.WriteString("\n\nAbstract: ")
	b.WriteString(usableText(article))

	for _, field := range analysisFields {
		v := strings.TrimSpace(field.value(article.Analysis))
		if v == "" {
			continue
		}
		b.WriteString("\n\n")
		b.WriteString(field.label)
		b.WriteString(": ")
		b.WriteString(v)
	}

	return b.String()
}
