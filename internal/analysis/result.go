package analysis

import (
	"encoding/json"
	"strings"
)

// ExtractionKind tags which variant of an Extraction is populated.
type ExtractionKind int

const (
	// ExtractionStructured means Fields holds the parsed document data.
	ExtractionStructured ExtractionKind = iota
	// ExtractionUnstructured means only RawText is available.
	ExtractionUnstructured
)

// Extraction is the output of the document-extraction call. Model output is
// parsed as JSON when possible; otherwise the raw text is retained so that a
// malformed response never fails the pipeline. Consumers must handle both
// variants.
type Extraction struct {
	Kind    ExtractionKind
	Fields  map[string]any
	RawText string
}

// AsText renders the extraction for downstream prompts, regardless of variant.
func (e Extraction) AsText() string {
	if e.Kind == ExtractionStructured {
		if encoded, err := json.Marshal(e.Fields); err == nil {
			return string(encoded)
		}
	}
	return e.RawText
}

// parseExtraction interprets model output, accepting a JSON object embedded
// anywhere in the text.
func parseExtraction(text string) Extraction {
	if fields, ok := extractJSONObject(text); ok {
		return Extraction{Kind: ExtractionStructured, Fields: fields, RawText: text}
	}
	return Extraction{Kind: ExtractionUnstructured, RawText: text}
}

// RiskAssessment is the output of the risk-analysis call.
type RiskAssessment struct {
	Score           int      `json:"risk_score"`
	Summary         string   `json:"summary"`
	Findings        []string `json:"findings"`
	Recommendations []string `json:"recommendations"`
}

const (
	fallbackRiskScore      = 50
	fallbackSummaryRunes   = 300
	maxReportedFindings    = 3
	maxReportedSuggestions = 3
)

// parseRiskAssessment interprets risk-model output. A response is parseable
// when it decodes and carries a risk_score key; zero is a valid score.
// Anything else synthesizes a minimal mid-range result instead of failing.
func parseRiskAssessment(text string) RiskAssessment {
	if raw, ok := extractJSONRaw(text); ok {
		var parsed struct {
			Score           *int     `json:"risk_score"`
			Summary         string   `json:"summary"`
			Findings        []string `json:"findings"`
			Recommendations []string `json:"recommendations"`
		}
		if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Score != nil {
			return RiskAssessment{
				Score:           clampScore(*parsed.Score),
				Summary:         parsed.Summary,
				Findings:        parsed.Findings,
				Recommendations: parsed.Recommendations,
			}
		}
	}
	return RiskAssessment{
		Score:   fallbackRiskScore,
		Summary: truncateRunes(strings.TrimSpace(text), fallbackSummaryRunes),
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// extractJSONRaw returns the first top-level JSON object found in text.
// Models often wrap JSON in prose or code fences; slicing from the first '{'
// to the last '}' handles both.
func extractJSONRaw(text string) (json.RawMessage, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, false
	}
	candidate := json.RawMessage(text[start : end+1])
	if !json.Valid(candidate) {
		return nil, false
	}
	return candidate, true
}

func extractJSONObject(text string) (map[string]any, bool) {
	raw, ok := extractJSONRaw(text)
	if !ok {
		return nil, false
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) == 0 {
		return nil, false
	}
	return fields, true
}
