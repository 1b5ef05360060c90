package model

// SubmissionStatus is the state of a form's submission cycle
type SubmissionStatus string

const (
	StatusIdle    SubmissionStatus = "idle"
	StatusLoading SubmissionStatus = "loading"
	StatusSuccess SubmissionStatus = "success"
	StatusError   SubmissionStatus = "error"
)

// PredictionResult is the normalized valuation shown to the user
type PredictionResult struct {
	PredictedValue *float64 `json:"predicted_value"`
	MinValue       *float64 `json:"min_value"`
	MaxValue       *float64 `json:"max_value"`
	Confidence     *float64 `json:"confidence"`               // 0..1
	PricePerUnit   *float64 `json:"price_per_unit,omitempty"` // land only
	Insights       string   `json:"insights"`
}

// Payload is the flat JSON object posted to the prediction service
type Payload map[string]interface{}
