package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Degraded is the error form of a Payload. RawContent holds the service
// response exactly as received, or "" when no response arrived.
type Degraded struct {
	Error      string `json:"error"`
	RawContent string `json:"raw_content"`
}

// Payload is the result of one analysis: a JSON object or a Degraded error.
type Payload struct {
	object   map[string]any
	degraded *Degraded
}

// Ok wraps a parsed JSON object.
func Ok(object map[string]any) Payload {
	if object == nil {
		object = map[string]any{}
	}
	return Payload{object: object}
}

// Degrade builds the error form.
func Degrade(reason, raw string) Payload {
	return Payload{degraded: &Degraded{Error: reason, RawContent: raw}}
}

// IsDegraded reports whether the payload is the error form.
func (p Payload) IsDegraded() bool {
	return p.degraded != nil
}

// Degraded returns the error form, or nil for an object payload.
func (p Payload) Degraded() *Degraded {
	return p.degraded
}

// Object returns the parsed object. It is nil for degraded payloads.
func (p Payload) Object() map[string]any {
	return p.object
}

// MarshalJSON writes either the object or {"error", "raw_content"}.
func (p Payload) MarshalJSON() ([]byte, error) {
	if p.degraded != nil {
		return json.Marshal(p.degraded)
	}
	if p.object == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.object)
}

// UnmarshalJSON reads a stored payload. An object with exactly the keys
// "error" and "raw_content", both strings, is read back as degraded.
func (p *Payload) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = Payload{}
		return nil
	}

	var object map[string]any
	if err := json.Unmarshal(data, &object); err != nil {
		return fmt.Errorf("payload is not a JSON object: %w", err)
	}

	if len(object) == 2 {
		reason, ok1 := object["error"].(string)
		raw, ok2 := object["raw_content"].(string)
		if ok1 && ok2 {
			*p = Degrade(reason, raw)
			return nil
		}
	}

	*p = Ok(object)
	return nil
}

// String returns a top-level string field, or "".
func (p Payload) String(key string) string {
	s, _ := p.object[key].(string)
	return s
}

// Summary returns the assessment's "summary" field.
func (p Payload) Summary() string {
	return p.String("summary")
}

// assessmentBlock returns the nested "assessment" object of a comprehensive assessment.
func (p Payload) assessmentBlock() map[string]any {
	block, _ := p.object["assessment"].(map[string]any)
	return block
}

// Grade returns the letter grade from the assessment block.
func (p Payload) Grade() string {
	s, _ := p.assessmentBlock()["grade"].(string)
	return strings.TrimSpace(s)
}

// Score returns the 1-10 score from the assessment block.
func (p Payload) Score() (int, bool) {
	switch v := p.assessmentBlock()["score"].(type) {
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}

// Verdict returns the PASS/FAIL/NEEDS_REVIEW value from the assessment block.
func (p Payload) Verdict() string {
	s, _ := p.assessmentBlock()["overall_assessment"].(string)
	return strings.ToUpper(strings.TrimSpace(s))
}
