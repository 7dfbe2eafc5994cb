package analyzer

import (
	"image"

	"go-sign-recognizer/pkg/validation"
)

type frameAnalyzer struct {
	metrics   MetricsCalculator
	validator *validation.QualityValidator
}

// NewFrameAnalyzer builds a FrameAnalyzer; a nil validator uses default thresholds.
func NewFrameAnalyzer(metrics MetricsCalculator, validator *validation.QualityValidator) FrameAnalyzer {
	if metrics == nil {
		metrics = NewMetricsCalculator()
	}
	if validator == nil {
		validator = validation.NewQualityValidator()
	}
	return &frameAnalyzer{metrics: metrics, validator: validator}
}

func (fa *frameAnalyzer) Analyze(img image.Image) QualityReport {
	bounds := img.Bounds()
	report := QualityReport{Width: bounds.Dx(), Height: bounds.Dy()}
	if bounds.Empty() {
		return report
	}

	gray := fa.metrics.ToGray(img)
	report.Brightness = fa.metrics.CalculateBrightness(gray)
	report.LaplacianVar = fa.metrics.CalculateLaplacianVariance(gray)

	report.Issues = fa.validator.ValidateFrame(validation.FrameMetrics{
		Width:        report.Width,
		Height:       report.Height,
		Brightness:   report.Brightness,
		LaplacianVar: report.LaplacianVar,
	})
	report.Warnings = validation.IssueTypes(report.Issues)
	return report
}
