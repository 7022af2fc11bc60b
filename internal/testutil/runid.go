package testutil

// FixedRunID generates the same run id every time.
//
// Unlike engine.FixedGenerator, which returns ids in sequence, this
// generator suits scenarios that pin a single run id in their YAML:
//
//	run_id: "run-00000000-0000-0000-0000-000000000001"
//
// Thread-safety: FixedRunID is stateless and safe for concurrent use.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a fixed run id generator. An empty id becomes
// "test-run-default".
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed id. Implements engine.RunIDGenerator.
func (g *FixedRunID) Generate() string {
	return g.id
}
