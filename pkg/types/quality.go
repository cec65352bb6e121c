package types

import (
	"encoding/json"
	"fmt"
)

// QualitySignal is the hub's per-capsule quality score. Older hub versions
// serve it as a plain number; newer ones serve a structured breakdown of
// component scores. Both forms are normalized to a single scalar at decode
// time so scoring logic never has to branch on the shape.
type QualitySignal float64

// UnmarshalJSON accepts either a JSON number or an object whose numeric
// fields are averaged into one scalar. Null and empty objects decode to 0.
func (q *QualitySignal) UnmarshalJSON(data []byte) error {
	var scalar float64
	if err := json.Unmarshal(data, &scalar); err == nil {
		*q = QualitySignal(scalar)
		return nil
	}

	var breakdown map[string]float64
	if err := json.Unmarshal(data, &breakdown); err == nil {
		if len(breakdown) == 0 {
			*q = 0
			return nil
		}
		var sum float64
		for _, v := range breakdown {
			sum += v
		}
		*q = QualitySignal(sum / float64(len(breakdown)))
		return nil
	}

	if string(data) == "null" {
		*q = 0
		return nil
	}

	return fmt.Errorf("quality_score: expected number or object, got %s", data)
}

// MarshalJSON always emits the normalized scalar form.
func (q QualitySignal) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(q))
}
