package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/xhad/litkb/internal/models"
	"github.com/xhad/litkb/internal/types"
)

const analysisInstruction = `Analyze the academic article abstract provided as context and extract the key information.
Focus on identifying:
- The main objective of the research
- The methodology used
- Key variables studied
- Type of risk discussed
- Level of analysis (e.g., firm, industry, country)
- Main findings
- Implications for research or practice
- Limitations of the study

Respond with a single JSON object and nothing else, using exactly these string keys:
"objective", "methodology", "key_variables", "risk_type", "level_of_analysis",
"main_findings", "implications", "limitations".`

// Analyzer extracts analysis fields from an abstract through a Completer.
type Analyzer struct {
	completer types.Completer
}

func NewAnalyzer(completer types.Completer) *Analyzer {
	return &Analyzer{completer: completer}
}

func (a *Analyzer) Analyze(ctx context.Context, abstract string) (models.Analysis, error) {
	if strings.TrimSpace(abstract) == "" {
		return models.Analysis{}, errors.New("empty abstract")
	}

	raw, err := a.completer.Complete(ctx, abstract, analysisInstruction)
	if err != nil {
		return models.Analysis{}, fmt.Errorf("failed to analyze abstract: %w", err)
	}

	return ParseAnalysis(raw)
}

// ParseAnalysis decodes a model response into Analysis. It tolerates code
// fences, surrounding prose, malformed JSON and list-valued fields.
func ParseAnalysis(raw string) (models.Analysis, error) {
	body := extractJSONObject(raw)
	if body == "" {
		return models.Analysis{}, fmt.Errorf("no JSON object in response: %q", raw)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(body)
		if rerr != nil {
			return models.Analysis{}, fmt.Errorf("json repair failed: %w", rerr)
		}
		if err := json.Unmarshal([]byte(repaired), &fields); err != nil {
			return models.Analysis{}, fmt.Errorf("unmarshal failed after repair: %w", err)
		}
	}

	return models.Analysis{
		Objective:       stringify(fields["objective"]),
		Methodology:     stringify(fields["methodology"]),
		KeyVariables:    stringify(fields["key_variables"]),
		RiskType:        stringify(fields["risk_type"]),
		LevelOfAnalysis: stringify(fields["level_of_analysis"]),
		MainFindings:    stringify(fields["main_findings"]),
		Implications:    stringify(fields["implications"]),
		Limitations:     stringify(fields["limitations"]),
	}, nil
}

func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		// Truncated output; let the repair step close it.
		return s[start:]
	}
	return s[start : end+1]
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
