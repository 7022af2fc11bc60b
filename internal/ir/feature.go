package ir

import (
	"slices"
	"sync"
)

// Feature names a helper capability a rewrite depends on. The set of
// features used by a run decides which support headers the migrated output
// must include.
type Feature string

const (
	// FeatureDPLUtils: oneDPL algorithm and execution policy headers.
	FeatureDPLUtils Feature = "dpl_utils"

	// FeatureDeviceExt: device helpers such as is_device_ptr.
	FeatureDeviceExt Feature = "device_ext"

	// FeatureDPLExtrasAlgorithm: helper algorithms outside oneDPL proper.
	FeatureDPLExtrasAlgorithm Feature = "dpl_extras_algorithm"

	// FeatureDPLExtrasMemory: device_pointer and related memory helpers.
	FeatureDPLExtrasMemory Feature = "dpl_extras_memory"
)

// FeatureSet is an insertion-ordered, duplicate-suppressing set of features.
//
// Thread-safety: all methods are safe for concurrent use. A nil *FeatureSet
// ignores additions, so callers that do not track usage may pass nil.
type FeatureSet struct {
	mu    sync.Mutex
	order []Feature
	seen  map[Feature]struct{}
}

// NewFeatureSet creates an empty set.
func NewFeatureSet() *FeatureSet {
	return &FeatureSet{seen: make(map[Feature]struct{})}
}

// Add records features in order. Returns the features that were new.
func (s *FeatureSet) Add(features ...Feature) []Feature {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen == nil {
		s.seen = make(map[Feature]struct{})
	}

	var added []Feature
	for _, f := range features {
		if _, ok := s.seen[f]; ok {
			continue
		}
		s.seen[f] = struct{}{}
		s.order = append(s.order, f)
		added = append(added, f)
	}
	return added
}

// Has reports whether f has been recorded.
func (s *FeatureSet) Has(f Feature) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[f]
	return ok
}

// List returns the features in first-use order.
func (s *FeatureSet) List() []Feature {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

// Len returns the number of distinct features recorded.
func (s *FeatureSet) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
