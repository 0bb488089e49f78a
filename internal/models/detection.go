package models

// DetectionResult is one entry of a remote detector reply.
// Box holds normalized [y1, x1, y2, x2] coordinates.
type DetectionResult struct {
	Label      string    `json:"label"`
	Confidence float32   `json:"confidence"`
	Box        []float32 `json:"box"`
}
