package analyzer

import "image"

// FrameAnalyzer inspects a frame before it is classified.
type FrameAnalyzer interface {
	Analyze(img image.Image) QualityReport
}

// MetricsCalculator handles image metrics computation
type MetricsCalculator interface {
	ToGray(img image.Image) *image.Gray
	CalculateBrightness(gray *image.Gray) float64
	CalculateLaplacianVariance(gray *image.Gray) float64
}
