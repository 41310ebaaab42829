package valuestore

import (
	"sort"
	"sync"

	"github.com/specialistvlad/cosimgo/internal/fmi"
)

// Store keeps one sync.Map per data type:
//   - Key: value reference (uint32)
//   - Value: fmi.Value of the map's type
type Store struct {
	reals    sync.Map
	integers sync.Map
	booleans sync.Map
	strings  sync.Map
}

// New creates a new, empty value store.
func New() *Store {
	return &Store{}
}

func (s *Store) bucket(t fmi.Type) *sync.Map {
	switch t {
	case fmi.Real:
		return &s.reals
	case fmi.Integer:
		return &s.integers
	case fmi.Boolean:
		return &s.booleans
	default:
		return &s.strings
	}
}

// Set records v under the value reference vr of v's type.
func (s *Store) Set(vr uint32, v fmi.Value) {
	s.bucket(v.Type).Store(vr, v)
}

// Get returns the last value recorded for (t, vr).
func (s *Store) Get(t fmi.Type, vr uint32) (fmi.Value, bool) {
	v, ok := s.bucket(t).Load(vr)
	if !ok {
		return fmi.Value{}, false
	}
	return v.(fmi.Value), true
}

// Entry is one recorded value.
type Entry struct {
	ValueReference uint32
	Value          fmi.Value
}

// Entries returns every recorded value of type t ordered by value reference.
func (s *Store) Entries(t fmi.Type) []Entry {
	var out []Entry
	s.bucket(t).Range(func(k, v any) bool {
		out = append(out, Entry{ValueReference: k.(uint32), Value: v.(fmi.Value)})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ValueReference < out[j].ValueReference })
	return out
}

// Reset forgets every recorded value.
func (s *Store) Reset() {
	for _, m := range []*sync.Map{&s.reals, &s.integers, &s.booleans, &s.strings} {
		m.Clear()
	}
}

// Snapshot copies every recorded value of every type.
func (s *Store) Snapshot() []Entry {
	var out []Entry
	for _, t := range []fmi.Type{fmi.Real, fmi.Integer, fmi.Boolean, fmi.String} {
		out = append(out, s.Entries(t)...)
	}
	return out
}

// Load replaces the recorded values with entries.
func (s *Store) Load(entries []Entry) {
	s.Reset()
	for _, e := range entries {
		s.Set(e.ValueReference, e.Value)
	}
}
