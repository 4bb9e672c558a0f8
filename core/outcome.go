package core

import (
	"bytes"
	"encoding/json"
)

// Outcome is the result of one model's branch of a turn: either a Reply or
// an Error, never both.
type Outcome struct {
	Key   string `json:"-"`
	Model string `json:"model"`
	Reply string `json:"reply,omitempty"`
	Error string `json:"error,omitempty"`

	failed bool
}

// Success builds a successful Outcome.
func Success(spec ModelSpec, reply string) Outcome {
	return Outcome{Key: spec.Key, Model: spec.ID, Reply: reply}
}

// Failure builds a failed Outcome from err.
func Failure(spec ModelSpec, err error) Outcome {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Outcome{Key: spec.Key, Model: spec.ID, Error: msg, failed: true}
}

// Failed reports whether the branch failed.
func (o Outcome) Failed() bool { return o.failed }

// MarshalJSON always emits "reply" for successes (even when empty) and
// "error" for failures.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.failed {
		return json.Marshal(struct {
			Model string `json:"model"`
			Error string `json:"error"`
		}{o.Model, o.Error})
	}
	return json.Marshal(struct {
		Model string `json:"model"`
		Reply string `json:"reply"`
	}{o.Model, o.Reply})
}

// Outputs is the fixed-size, registry-ordered collection of Outcomes for a
// turn. It encodes as a JSON object keyed by model key, preserving order.
type Outputs []Outcome

// Get returns the Outcome recorded for key.
func (o Outputs) Get(key string) (Outcome, bool) {
	for _, oc := range o {
		if oc.Key == key {
			return oc, true
		}
	}
	return Outcome{}, false
}

// Counts returns the number of successful and failed branches.
func (o Outputs) Counts() (ok, failed int) {
	for _, oc := range o {
		if oc.failed {
			failed++
		} else {
			ok++
		}
	}
	return ok, failed
}

// MarshalJSON implements json.Marshaler.
func (o Outputs) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, oc := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(oc.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(oc)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
