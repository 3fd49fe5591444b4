package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the server-side lifecycle state of a prediction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ParseStatus normalizes a wire status. The server reports "error" when a
// task could not be queued; anything that is not pending or completed is
// treated as failed.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(StatusPending):
		return StatusPending
	case string(StatusCompleted):
		return StatusCompleted
	default:
		return StatusFailed
	}
}

// UnmarshalJSON applies ParseStatus to the wire value.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}

// IsTerminal reports whether no further status change is expected.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// PredictionRequest is the body of POST /predictions/predict.
type PredictionRequest struct {
	Data PredictionInput `json:"data"`
}

// PredictionInput carries the user text.
type PredictionInput struct {
	Text string `json:"text"`
}

// Prediction is the client's read-only copy of a server prediction record.
type Prediction struct {
	ID          string          `json:"prediction_id"`
	Status      Status          `json:"status"`
	Result      map[string]any  `json:"result,omitempty"`
	Cost        decimal.Decimal `json:"cost"`
	CreatedAt   Timestamp       `json:"created_at"`
	CompletedAt *Timestamp      `json:"completed_at,omitempty"`
}

// Label extracts the classifier label and confidence from a completed
// result. ok is false when the result does not have that shape.
func (p *Prediction) Label() (label string, confidence float64, ok bool) {
	if p == nil || p.Result == nil {
		return "", 0, false
	}
	label, _ = p.Result["prediction"].(string)
	confidence, _ = p.Result["confidence"].(float64)
	if label == "" || confidence == 0 {
		return "", 0, false
	}
	return label, confidence, true
}

// ResultError returns the worker-reported error inside a result, if any.
func (p *Prediction) ResultError() string {
	if p == nil || p.Result == nil {
		return ""
	}
	msg, _ := p.Result["error"].(string)
	return msg
}

// History is the body of GET /predictions.
type History struct {
	Predictions []Prediction `json:"predictions"`
}

// Timestamp accepts RFC 3339 and the offset-less ISO layout the service
// emits for naive datetimes. Offset-less values are read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			t.Time = parsed.UTC()
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
