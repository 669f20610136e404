package model

// Status is the outcome flag carried by every MetricResult.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// MetricResult is the envelope returned by every exposed computation.
// Data is set on success, ErrorMessage on failure.
type MetricResult struct {
	Status       Status         `json:"status"`
	Data         map[string]any `json:"data,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// Success wraps data in a successful result.
func Success(data map[string]any) MetricResult {
	return MetricResult{Status: StatusSuccess, Data: data}
}

// Failure builds an error result.
func Failure(msg string) MetricResult {
	return MetricResult{Status: StatusError, ErrorMessage: msg}
}

func (r MetricResult) OK() bool { return r.Status == StatusSuccess }

// Float reads a numeric field from Data. ok is false when the field is
// missing, null, or not a float64.
func (r MetricResult) Float(key string) (float64, bool) {
	v, ok := r.Data[key].(float64)
	return v, ok
}
