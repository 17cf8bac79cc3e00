package client

import (
	"testing"
)

func TestParseAnalysisResult(t *testing.T) {
	raw := "```json\n" + `{
  // proposals
  "objects": [
    {"label": "car", "confidence": 0.9, "box": {"x": 0.1, "y": 0.2, "w": 0.3, "h": 0.4}},
    {"label": "  ", "confidence": 0.9, "box": {"x": 0.1, "y": 0.2, "w": 0.3, "h": 0.4}},
    {"label": "dog", "confidence": 1.7, "box": {"x": 0.5, "y": 0.5, "w": 0.1, "h": 0.1},},
    {"label": "flat", "confidence": 0.5, "box": {"x": 0.5, "y": 0.5, "w": 0, "h": 0.1}},
  ],
  "description": "street"
}` + "\n```"

	result := ParseAnalysisResult(raw)
	if len(result.Objects) != 2 {
		t.Fatalf("Expected 2 objects, got %d: %+v", len(result.Objects), result.Objects)
	}
	if result.Objects[0].Label != "car" || result.Objects[0].Box.H != 0.4 {
		t.Errorf("Unexpected first object %+v", result.Objects[0])
	}
	if result.Objects[1].Confidence != 1 {
		t.Errorf("Expected confidence clamped to 1, got %v", result.Objects[1].Confidence)
	}
	if result.Description != "street" {
		t.Errorf("Expected description, got %q", result.Description)
	}
}

func TestParseAnalysisResultFallback(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"prose", "I see a car on the street."},
		{"broken json", `{"objects": [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseAnalysisResult(tt.raw)
			if result == nil || len(result.Objects) != 0 || result.Description == "" {
				t.Errorf("Expected empty fallback result, got %+v", result)
			}
		})
	}
}
