package analyzer

import "go-sign-recognizer/pkg/validation"

// QualityReport describes lighting and focus of one frame. Warnings never
// block classification; they are returned next to the prediction.
type QualityReport struct {
	Width        int                       `json:"width"`
	Height       int                       `json:"height"`
	Brightness   float64                   `json:"brightness"`
	LaplacianVar float64                   `json:"laplacian_var"`
	Warnings     []string                  `json:"warnings,omitempty"`
	Issues       []validation.QualityIssue `json:"issues,omitempty"`
}
