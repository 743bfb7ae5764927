package ckptkit

import (
	"encoding/json"
	"fmt"
	"time"
)

// Version is the current snapshot format version.
// Increment when making breaking changes to snapshot structure.
const Version = 1

// Snapshot is the persisted envelope around one checkpoint of process
// state. The State payload is opaque to this package; callers decide
// what it represents.
type Snapshot struct {
	// Metadata
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	Epoch     int       `json:"epoch"`
	Step      int       `json:"step"`
	Timestamp time.Time `json:"timestamp"`

	// Monitored quantities at checkpoint time, by name.
	Metrics map[string]float64 `json:"metrics,omitempty"`

	// State is the opaque serialized process state.
	State json.RawMessage `json:"state"`
}

// Marshal serializes a snapshot to JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal deserializes a snapshot from JSON. Fails when the data is
// not valid JSON or was written by a newer format version.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Version > Version {
		return nil, fmt.Errorf("snapshot version %d is newer than supported version %d", s.Version, Version)
	}
	return &s, nil
}

// NewSnapshot creates a snapshot for the given iteration counters.
// State must already be serialized.
func NewSnapshot(epoch, step int, state []byte) *Snapshot {
	return &Snapshot{
		Version:   Version,
		Epoch:     epoch,
		Step:      step,
		Timestamp: time.Now().UTC(),
		State:     state,
	}
}

// WithMetric records a monitored quantity on the snapshot.
func (s *Snapshot) WithMetric(name string, value float64) *Snapshot {
	if s.Metrics == nil {
		s.Metrics = make(map[string]float64)
	}
	s.Metrics[name] = value
	return s
}
