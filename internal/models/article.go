package models

import "strings"

// Analysis holds the structured fields an external analyzer extracts from an
// abstract. Every field is optional.
type Analysis struct {
	Objective       string `json:"objective,omitempty"`
	Methodology     string `json:"methodology,omitempty"`
	KeyVariables    string `json:"key_variables,omitempty"`
	RiskType        string `json:"risk_type,omitempty"`
	LevelOfAnalysis string `json:"level_of_analysis,omitempty"`
	MainFindings    string `json:"main_findings,omitempty"`
	Implications    string `json:"implications,omitempty"`
	Limitations     string `json:"limitations,omitempty"`
}

// Merge copies the non-empty fields of other over a.
func (a *Analysis) Merge(other Analysis) {
	set := func(dst *string, src string) {
		if strings.TrimSpace(src) != "" {
			*dst = src
		}
	}
	set(&a.Objective, other.Objective)
	set(&a.Methodology, other.Methodology)
	set(&a.KeyVariables, other.KeyVariables)
	set(&a.RiskType, other.RiskType)
	set(&a.LevelOfAnalysis, other.LevelOfAnalysis)
	set(&a.MainFindings, other.MainFindings)
	set(&a.Implications, other.Implications)
	set(&a.Limitations, other.Limitations)
}

// Article is a scholarly article record as supplied by a source or an upload.
type Article struct {
	Title    string   `json:"title"`
	Authors  []string `json:"authors,omitempty"`
	Year     *int     `json:"year,omitempty"`
	Journal  string   `json:"journal,omitempty"`
	Abstract string   `json:"abstract,omitempty"`
	FullText string   `json:"full_text,omitempty"`

	Analysis

	ProcessedDate   string `json:"processed_date,omitempty"`
	MonitoringTopic string `json:"monitoring_topic,omitempty"`
}

// HasContent reports whether the article carries any indexable text.
func (a Article) HasContent() bool {
	return strings.TrimSpace(a.Abstract) != "" || strings.TrimSpace(a.FullText) != ""
}

// TitleOr returns the title, or fallback when the title is blank.
func (a Article) TitleOr(fallback string) string {
	if strings.TrimSpace(a.Title) == "" {
		return fallback
	}
	return a.Title
}

// IntPtr is a small helper for building articles with a known year.
func IntPtr(v int) *int {
	return &v
}
