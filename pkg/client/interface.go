package client

import (
	"context"

	"github.com/menta2k/image-annotator/pkg/types"
)

// VisionClient asks a vision model to propose objects in an image
type VisionClient interface {
	AnalyzeImage(ctx context.Context, model, prompt, imgB64 string) (*types.AnalysisResult, error)
}
