package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/oplens/internal/activity"
	"github.com/roach88/oplens/internal/assemble"
)

// marshalActivity converts an activity to JSON TEXT for storage. Strings are
// stored as captured; only operations are canonicalized.
func marshalActivity(a *activity.Activity) (string, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("marshal activity %d: %w", a.ID, err)
	}
	return string(data), nil
}

// unmarshalActivity parses an activity row. Numbers inside the resource
// are kept as json.Number to avoid float64 precision loss.
func unmarshalActivity(data string) (activity.Activity, error) {
	var a activity.Activity
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&a); err != nil {
		return activity.Activity{}, fmt.Errorf("unmarshal activity: %w", err)
	}
	return a, nil
}

// marshalOperation converts an operation to canonical JSON TEXT and
// computes its digest.
func marshalOperation(op *assemble.Operation) (data, digest string, err error) {
	raw, err := assemble.Canonical(op)
	if err != nil {
		return "", "", fmt.Errorf("marshal operation: %w", err)
	}
	digest, err = assemble.Digest(op)
	if err != nil {
		return "", "", fmt.Errorf("marshal operation: %w", err)
	}
	return string(raw), digest, nil
}

// unmarshalOperation parses an operation row.
func unmarshalOperation(data string) (*assemble.Operation, error) {
	var op assemble.Operation
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&op); err != nil {
		return nil, fmt.Errorf("unmarshal operation: %w", err)
	}
	return &op, nil
}
