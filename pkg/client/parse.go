package client

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/menta2k/image-annotator/pkg/types"
)

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// ParseAnalysisResult parses a model reply into an object list.
// Replies without usable JSON yield an empty list and an explanatory description.
func ParseAnalysisResult(raw string) *types.AnalysisResult {
	raw = SanitizeModelJSON(raw)

	if !strings.HasPrefix(raw, "{") {
		return &types.AnalysisResult{Description: "Model returned non-JSON response"}
	}

	var result types.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return &types.AnalysisResult{Description: "Failed to parse model response"}
	}

	objects := result.Objects[:0]
	for _, o := range result.Objects {
		o.Label = strings.TrimSpace(o.Label)
		if o.Label == "" || o.Box.W <= 0 || o.Box.H <= 0 {
			continue
		}
		o.Confidence = types.Clamp(o.Confidence, 0, 1)
		objects = append(objects, o)
	}
	result.Objects = objects
	return &result
}

// SanitizeModelJSON removes code fences, comments, and trailing commas from a JSON reply
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
