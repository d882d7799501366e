package application

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var ErrMalformedPayload = fmt.Errorf("malformed payload")

// Payload is a flat key/value report. Values are strings, numbers, booleans
// or nil.
type Payload map[string]any

func (p Payload) Encode() ([]byte, error) {
	for k, v := range p {
		if !isScalar(v) {
			return nil, fmt.Errorf("payload key %q: unsupported value type %T", k, v)
		}
	}
	return json.Marshal(p)
}

func DecodePayload(data []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedPayload)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrMalformedPayload)
	}

	for k, v := range p {
		switch v.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("%w: key %q is not a scalar", ErrMalformedPayload, k)
		}
	}
	return p, nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}
