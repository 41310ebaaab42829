package registry

import (
	"errors"
	"maps"

	"github.com/vmihailenco/msgpack/v5"
)

// State is the complete state of a built-in instance. It is the checkpoint
// format and the msgpack serialization format.
type State struct {
	Time     float64            `msgpack:"t"`
	Reals    map[uint32]float64 `msgpack:"r"`
	Integers map[uint32]int32   `msgpack:"i"`
	Booleans map[uint32]bool    `msgpack:"b"`
	Strings  map[uint32]string  `msgpack:"s"`
}

func newState() *State {
	return &State{
		Reals:    make(map[uint32]float64),
		Integers: make(map[uint32]int32),
		Booleans: make(map[uint32]bool),
		Strings:  make(map[uint32]string),
	}
}

func (s *State) Real(vr uint32) float64       { return s.Reals[vr] }
func (s *State) SetReal(vr uint32, v float64) { s.Reals[vr] = v }

func (s *State) clone() *State {
	return &State{
		Time:     s.Time,
		Reals:    maps.Clone(s.Reals),
		Integers: maps.Clone(s.Integers),
		Booleans: maps.Clone(s.Booleans),
		Strings:  maps.Clone(s.Strings),
	}
}

func (s *State) marshal() ([]byte, error) {
	return msgpack.Marshal(s)
}

func unmarshalState(data []byte) (*State, error) {
	s := newState()
	if err := msgpack.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if s.Reals == nil || s.Integers == nil || s.Booleans == nil || s.Strings == nil {
		return nil, errors.New("incomplete state")
	}
	return s, nil
}
