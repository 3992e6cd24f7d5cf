// Package state records which declared resources currently exist at the
// provider, with their provider-assigned identifiers and observed
// attributes. The state is persisted between runs by a Store.
package state

import (
	"context"
	"encoding/json"
	"fmt"
)

// Record is the reconciled view of one declared resource.
type Record struct {
	Kind  string            `json:"kind"`
	ID    string            `json:"id"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// State maps logical resource names to their reconciled records.
type State struct {
	Serial  int               `json:"serial"`
	Records map[string]Record `json:"records"`
}

// New returns an empty state.
func New() *State {
	return &State{Records: make(map[string]Record)}
}

// Get returns the record for the given logical name.
func (s *State) Get(name string) (Record, bool) {
	r, ok := s.Records[name]
	return r, ok
}

// Put stores the record for the given logical name.
func (s *State) Put(name string, r Record) {
	if s.Records == nil {
		s.Records = make(map[string]Record)
	}
	s.Records[name] = r
}

// Delete removes the record for the given logical name.
func (s *State) Delete(name string) {
	delete(s.Records, name)
}

// Attr returns a single observed attribute of a record.
func (s *State) Attr(name, key string) (string, bool) {
	r, ok := s.Records[name]
	if !ok {
		return "", false
	}
	v, ok := r.Attrs[key]
	return v, ok
}

// Encode serializes the state. encoding/json sorts map keys, so the output
// is deterministic for identical states.
func (s *State) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a serialized state.
func Decode(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	if s.Records == nil {
		s.Records = make(map[string]Record)
	}
	return &s, nil
}

// Store persists reconciled state between runs, keyed by stack name.
// Load returns an empty state when the stack has never been saved.
type Store interface {
	Load(ctx context.Context, stack string) (*State, error)
	Save(ctx context.Context, stack string, s *State) error
}
