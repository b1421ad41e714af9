package automaton

import (
	"fmt"

	"github.com/spicery/dfalex/pkg/token"
)

// Automaton is the stepping interface shared by compiled patterns.
type Automaton interface {
	Start() StateID
	Step(state StateID, b byte) StateID
	IsAccept(state StateID) bool
	CanMatch(state StateID) bool
}

// Composition is the compiled form of one pattern. It exclusively owns its
// arena; nothing in it is shared with other compositions.
type Composition struct {
	source   string
	kind     token.Kind
	flags    uint8
	arena    *Arena
	start    StateID
	accepts  []StateID
	compiled bool
	limit    int // states the arena may hold, dead state included
}

// NewComposition returns an uncompiled composition for pattern.
func NewComposition(pattern string, kind token.Kind, flags uint8) *Composition {
	return &Composition{
		source: pattern,
		kind:   kind,
		flags:  flags,
		arena:  NewArena(),
		limit:  MaxStates,
	}
}

// Compile builds a composition from pattern, reporting kind on acceptance.
func Compile(pattern string, kind token.Kind, flags uint8) (*Composition, error) {
	c := NewComposition(pattern, kind, flags)
	if err := c.Compile(); err != nil {
		return nil, err
	}
	return c, nil
}

// CompileWithLimit is Compile with the arena capped at limit states, dead
// state included. A limit outside [1, MaxStates] means MaxStates.
func CompileWithLimit(pattern string, kind token.Kind, flags uint8, limit int) (*Composition, error) {
	c := NewComposition(pattern, kind, flags)
	if limit >= 1 && limit <= MaxStates {
		c.limit = limit
	}
	if err := c.Compile(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustCompile is like Compile but panics if the pattern cannot be compiled.
func MustCompile(pattern string, kind token.Kind) *Composition {
	c, err := Compile(pattern, kind, 0)
	if err != nil {
		panic(err)
	}
	return c
}

// Compile (re)builds the automaton in a fresh arena. On failure the
// composition is left not-compiled with no states besides the dead state.
func (c *Composition) Compile() error {
	c.arena = NewArenaWithLimit(c.limit)
	c.accepts = nil
	c.compiled = false
	c.start = Dead

	if !c.kind.Valid() {
		return fmt.Errorf("compile pattern '%s': invalid token kind %d", c.source, uint8(c.kind))
	}
	start, err := c.arena.NewState()
	if err != nil {
		return fmt.Errorf("compile pattern '%s': %w", c.source, err)
	}
	accepts, err := CompilePattern(c.arena, start, c.source, c.kind)
	if err != nil {
		c.arena = NewArenaWithLimit(c.limit)
		return fmt.Errorf("compile pattern '%s': %w", c.source, err)
	}
	c.start = start
	c.accepts = accepts
	c.compiled = true
	return nil
}

// Release drops the automaton. The composition reports not-compiled afterwards.
func (c *Composition) Release() {
	c.arena = nil
	c.accepts = nil
	c.start = Dead
	c.compiled = false
}

func (c *Composition) Pattern() string    { return c.source }
func (c *Composition) Kind() token.Kind   { return c.kind }
func (c *Composition) Flags() uint8       { return c.flags }
func (c *Composition) Compiled() bool     { return c.compiled }
func (c *Composition) Accepts() []StateID { return append([]StateID(nil), c.accepts...) }

// StateCount returns the number of live states, excluding the dead state.
func (c *Composition) StateCount() int {
	if c.arena == nil {
		return 0
	}
	return c.arena.Len() - 1
}

// State exposes a state for inspection.
func (c *Composition) State(id StateID) *State {
	if c.arena == nil {
		return nil
	}
	return c.arena.State(id)
}

func (c *Composition) Start() StateID {
	if !c.compiled {
		return Dead
	}
	return c.start
}

func (c *Composition) Step(state StateID, b byte) StateID {
	if !c.compiled || state == Dead || int(state) >= c.arena.Len() || state < 0 {
		return Dead
	}
	return c.arena.step(state, b)
}

func (c *Composition) IsAccept(state StateID) bool {
	s := c.State(state)
	return c.compiled && s != nil && s.accepting
}

func (c *Composition) CanMatch(state StateID) bool {
	return state != Dead
}
