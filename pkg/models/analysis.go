package models

// AnalysisResult is the verdict for one recording
type AnalysisResult struct {
	Cheated bool            `json:"cheated"`
	Details AnalysisDetails `json:"details"`
}

// AnalysisDetails carries the violation counters behind a verdict.
// AudioViolations is reserved and always zero.
type AnalysisDetails struct {
	FaceMissing           int     `json:"faceMissing"`
	FaceMissingPercentage float64 `json:"faceMissingPercentage"`
	MultipleFaces         int     `json:"multipleFaces"`
	LipMovement           int     `json:"lipMovement"`
	HeadMovement          int     `json:"headMovement"`
	AudioViolations       int     `json:"audioViolations"`
	TotalFrames           int     `json:"totalFrames"`
	AnalysisTimeSeconds   float64 `json:"analysisTimeSeconds"`
}
