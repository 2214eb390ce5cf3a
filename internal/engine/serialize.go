package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	rand "math/rand/v2"
	"time"
)

// Marshal encodes the engine to its persisted JSON form.
func (e *Engine) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal engine: %w", err)
	}
	return data, nil
}

// Restore decodes a persisted engine blob and reattaches the runtime
// dependencies. Unknown fields and version mismatches are rejected
// loudly rather than silently dropped.
func Restore(data []byte, rng *rand.Rand, now func() time.Time) (*Engine, error) {
	var e Engine
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&e); err != nil {
		return nil, fmt.Errorf("decode engine: %w", err)
	}
	if e.Version != blobVersion {
		return nil, fmt.Errorf("unsupported engine version %d", e.Version)
	}
	if e.MinRaise == 0 {
		e.MinRaise = e.BigBlind
	}
	e.rng = rng
	e.now = now
	return &e, nil
}
