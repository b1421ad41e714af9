// Package automaton compiles a constrained pattern grammar into byte-indexed
// deterministic automata and runs them over input spans.
package automaton

import (
	"errors"

	"github.com/spicery/dfalex/pkg/token"
)

// StateID indexes a state inside its Arena.
type StateID int32

// Dead is the reserved dead state. Every unset transition points to it.
const Dead StateID = 0

// MaxStates bounds the states a single arena may hold.
const MaxStates = 4096

var ErrStateLimit = errors.New("automaton state limit exceeded")

// State is a node of the automaton: a dense transition table indexed by
// byte value, an accepting flag and the token kind reported on acceptance.
type State struct {
	next      [256]StateID
	accepting bool
	kind      token.Kind
	id        int // creation order
}

func (s *State) ID() int             { return s.id }
func (s *State) Accepting() bool     { return s.accepting }
func (s *State) Kind() token.Kind    { return s.kind }
func (s *State) Next(b byte) StateID { return s.next[b] }

// Arena owns every state of one automaton. Dropping the arena drops the
// automaton; cycles created by repetition need no special teardown.
type Arena struct {
	states []State
	limit  int
}

// NewArena returns an arena holding only the dead state.
func NewArena() *Arena {
	return NewArenaWithLimit(MaxStates)
}

// NewArenaWithLimit is NewArena with a custom state limit (dead state included).
func NewArenaWithLimit(limit int) *Arena {
	if limit < 1 {
		limit = 1
	}
	a := &Arena{limit: limit}
	a.states = append(a.states, State{id: 0})
	return a
}

// NewState allocates a state with every transition pointing at Dead.
func (a *Arena) NewState() (StateID, error) {
	if len(a.states) >= a.limit {
		return Dead, ErrStateLimit
	}
	id := StateID(len(a.states))
	a.states = append(a.states, State{id: int(id)})
	return id, nil
}

// State returns the state for id, or nil when id is out of range.
func (a *Arena) State(id StateID) *State {
	if id < 0 || int(id) >= len(a.states) {
		return nil
	}
	return &a.states[id]
}

// Len returns the number of states including the dead state.
func (a *Arena) Len() int {
	return len(a.states)
}

// Link adds a transition from -> to on every byte set in members.
// Existing transitions on those bytes are overwritten.
func (a *Arena) Link(from, to StateID, members *ByteSet) {
	s := &a.states[from]
	for b := 0; b < 256; b++ {
		if members.Has(byte(b)) {
			s.next[b] = to
		}
	}
}

// Accept marks id as accepting with the given kind.
func (a *Arena) Accept(id StateID, kind token.Kind) {
	if id == Dead {
		return
	}
	a.states[id].accepting = true
	a.states[id].kind = kind
}

func (a *Arena) step(id StateID, b byte) StateID {
	return a.states[id].next[b]
}

// ByteSet is a 256-entry membership set.
type ByteSet [4]uint64

func (s *ByteSet) Add(b byte)      { s[b>>6] |= 1 << (b & 63) }
func (s *ByteSet) Has(b byte) bool { return s[b>>6]&(1<<(b&63)) != 0 }

// AddRange adds every byte in [lo, hi]; the bounds are swapped if reversed.
func (s *ByteSet) AddRange(lo, hi byte) {
	if lo > hi {
		lo, hi = hi, lo
	}
	for b := int(lo); b <= int(hi); b++ {
		s.Add(byte(b))
	}
}

// Invert complements the set.
func (s *ByteSet) Invert() {
	for i := range s {
		s[i] = ^s[i]
	}
}

// Fill adds every byte.
func (s *ByteSet) Fill() {
	for i := range s {
		s[i] = ^uint64(0)
	}
}

// Count returns the number of member bytes.
func (s *ByteSet) Count() int {
	n := 0
	for b := 0; b < 256; b++ {
		if s.Has(byte(b)) {
			n++
		}
	}
	return n
}
