package validation

// Issue types reported for a camera frame.
const (
	IssueTooDark       = "too_dark"
	IssueTooBright     = "too_bright"
	IssueBlurry        = "blurry"
	IssueLowResolution = "low_resolution"
)

// QualityThresholds defines configurable thresholds for frame quality hints
type QualityThresholds struct {
	// Mean luma bounds in [0,255]
	MinBrightness float64
	MaxBrightness float64

	// Laplacian variance below this is treated as out of focus
	MinLaplacianVariance float64

	// Frames smaller than this lose most of the hand shape after resizing
	MinWidth  int
	MinHeight int
}

// DefaultQualityThresholds returns the default quality thresholds
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MinBrightness:        50.0,
		MaxBrightness:        225.0,
		MinLaplacianVariance: 100.0,
		MinWidth:             32,
		MinHeight:            32,
	}
}

// QualityValidator turns frame metrics into user facing hints
type QualityValidator struct {
	thresholds QualityThresholds
}

// NewQualityValidator creates a new quality validator with default thresholds
func NewQualityValidator() *QualityValidator {
	return NewQualityValidatorWithThresholds(DefaultQualityThresholds())
}

// NewQualityValidatorWithThresholds creates a quality validator with custom thresholds
func NewQualityValidatorWithThresholds(thresholds QualityThresholds) *QualityValidator {
	return &QualityValidator{thresholds: thresholds}
}

// QualityIssue represents a quality validation issue
type QualityIssue struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	ActualValue float64 `json:"actual_value,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// FrameMetrics represents the metrics needed for quality validation
type FrameMetrics struct {
	Width        int
	Height       int
	Brightness   float64
	LaplacianVar float64
}

// ValidateFrame returns the issues found in a frame, in a stable order.
func (qv *QualityValidator) ValidateFrame(m FrameMetrics) []QualityIssue {
	var issues []QualityIssue

	if m.Width < qv.thresholds.MinWidth || m.Height < qv.thresholds.MinHeight {
		issues = append(issues, QualityIssue{
			Type:        IssueLowResolution,
			Message:     "Image is very small. Move closer to the camera.",
			ActualValue: float64(m.Width * m.Height),
			Threshold:   float64(qv.thresholds.MinWidth * qv.thresholds.MinHeight),
		})
	}

	if m.Brightness < qv.thresholds.MinBrightness {
		issues = append(issues, QualityIssue{
			Type:        IssueTooDark,
			Message:     "Image is too dark. Sign in more light.",
			ActualValue: m.Brightness,
			Threshold:   qv.thresholds.MinBrightness,
		})
	} else if m.Brightness > qv.thresholds.MaxBrightness {
		issues = append(issues, QualityIssue{
			Type:        IssueTooBright,
			Message:     "Image is too bright. Avoid strong backlight.",
			ActualValue: m.Brightness,
			Threshold:   qv.thresholds.MaxBrightness,
		})
	}

	if m.LaplacianVar < qv.thresholds.MinLaplacianVariance {
		issues = append(issues, QualityIssue{
			Type:        IssueBlurry,
			Message:     "Image is blurry. Hold your hand still.",
			ActualValue: m.LaplacianVar,
			Threshold:   qv.thresholds.MinLaplacianVariance,
		})
	}

	return issues
}

// IssueTypes lists the type of each issue.
func IssueTypes(issues []QualityIssue) []string {
	var types []string
	for _, issue := range issues {
		types = append(types, issue.Type)
	}
	return types
}
