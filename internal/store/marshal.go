package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/thrustmig/internal/ir"
)

// marshalFeatures converts a feature list to canonical JSON TEXT for storage.
func marshalFeatures(features []ir.Feature) (string, error) {
	list := make([]string, len(features))
	for i, f := range features {
		list[i] = string(f)
	}
	data, err := ir.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal features: %w", err)
	}
	return string(data), nil
}

// unmarshalFeatures parses a stored feature list. An empty list yields nil
// so records round-trip with their omitempty JSON form.
func unmarshalFeatures(data string) ([]ir.Feature, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		return nil, fmt.Errorf("unmarshal features: %w", err)
	}
	features := make([]ir.Feature, len(list))
	for i, s := range list {
		features[i] = ir.Feature(s)
	}
	return features, nil
}
