// Package tokenizer drives compiled patterns over an input buffer and
// produces the longest-match token stream.
package tokenizer

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/spicery/dfalex/pkg/automaton"
	"github.com/spicery/dfalex/pkg/token"
)

// Capacity limits.
const (
	DefaultTokenCapacity = 1024
	DefaultRuleCapacity  = 64
	MaxTokenCapacity     = 1 << 20
	MaxRuleCapacity      = 1024
	MaxInputLength       = token.MaxOffset
)

// Flags are the context's mode flags.
type Flags uint32

const (
	FlagDebug      Flags = 1 << iota // log compiled rules and emitted tokens
	FlagStrict                       // report unmatched input as an error
	FlagThreadSafe                   // serialize every entry point on the context mutex
)

type rule struct {
	comp  *automaton.Composition
	kind  token.Kind
	flags uint8
}

// RuleInfo describes a registered rule.
type RuleInfo struct {
	Pattern string     `json:"pattern"`
	Kind    token.Kind `json:"kind"`
	Flags   uint8      `json:"flags"`
	States  int        `json:"states"`
}

// Context owns a token buffer, a rule set and the cursor over the current
// input. A Context is not safe for concurrent use unless thread-safe mode is
// on, in which case every method holds its mutex for the whole call. The
// mutex is not reentrant.
type Context struct {
	mu         sync.Mutex
	threadSafe atomic.Bool

	id     uuid.UUID
	log    zerolog.Logger
	flags  Flags // debug and strict; thread-safe lives in threadSafe
	closed bool

	tokens    []token.Triplet
	positions []token.Position // start of each token, parallel to tokens
	lengths   []uint16         // bytes consumed by each token, parallel to tokens
	tokenCap  int

	rules      []rule
	ruleCap    int
	stateLimit int // per rule, dead state included

	input []byte // not owned
	pos   int
	line  int
	col   int

	err   *Error
	stats Stats
}

// NewContext creates a context with the default capacities.
func NewContext() *Context {
	c, err := NewContextWithCapacity(DefaultTokenCapacity, DefaultRuleCapacity)
	if err != nil {
		panic(err)
	}
	return c
}

// NewContextWithCapacity creates a context holding at most tokenCap tokens
// and ruleCap rules.
func NewContextWithCapacity(tokenCap, ruleCap int) (*Context, error) {
	if err := checkCapacity("create", tokenCap, MaxTokenCapacity); err != nil {
		return nil, err
	}
	if err := checkCapacity("create", ruleCap, MaxRuleCapacity); err != nil {
		return nil, err
	}
	id := uuid.New()
	c := &Context{
		id:         id,
		log:        zerolog.Nop(),
		tokens:     make([]token.Triplet, 0, tokenCap),
		positions:  make([]token.Position, 0, tokenCap),
		lengths:    make([]uint16, 0, tokenCap),
		tokenCap:   tokenCap,
		rules:      make([]rule, 0, ruleCap),
		ruleCap:    ruleCap,
		stateLimit: automaton.MaxStates,
		line:       1,
		col:        1,
	}
	c.trackMemory()
	return c, nil
}

func checkCapacity(op string, n, limit int) *Error {
	if n <= 0 || n > limit {
		return newError(CodeInvalidInput, op, ErrInvalidCapacity, "capacity %d not in [1, %d]", n, limit)
	}
	return nil
}

// lock acquires the mutex when thread-safe mode is on and returns the
// matching release.
func (c *Context) lock() func() {
	if c.threadSafe.Load() {
		c.mu.Lock()
		return c.mu.Unlock
	}
	return func() {}
}

// enter guards every public entry point: nil receiver, closed context.
func (c *Context) enter(op string) (func(), error) {
	if c == nil {
		return func() {}, newError(CodeInvalidInput, op, ErrNilContext, "")
	}
	unlock := c.lock()
	if c.closed {
		return unlock, newError(CodeInvalidState, op, ErrClosed, "")
	}
	return unlock, nil
}

// fail records err as the sticky last error and returns it.
func (c *Context) fail(err *Error) error {
	c.err = err
	c.stats.ErrorCount++
	c.log.Warn().Str("code", err.Code.String()).Msg(err.Error())
	return err
}

// ID returns the identifier the context logs under.
func (c *Context) ID() uuid.UUID {
	return c.id
}

// SetLogger replaces the logger. Debug events only appear in debug mode.
func (c *Context) SetLogger(l zerolog.Logger) {
	unlock, err := c.enter("set logger")
	defer unlock()
	if err != nil {
		return
	}
	c.log = l.With().Str("ctx", c.id.String()).Logger()
}

// Close releases the buffers and every registered rule. Further calls fail
// with ErrClosed; closing twice is a no-op.
func (c *Context) Close() error {
	if c == nil {
		return newError(CodeInvalidInput, "close", ErrNilContext, "")
	}
	defer c.lock()()
	if c.closed {
		return nil
	}
	for _, r := range c.rules {
		r.comp.Release()
	}
	c.rules = nil
	c.tokens = nil
	c.positions = nil
	c.lengths = nil
	c.input = nil
	c.closed = true
	return nil
}

// Reset clears tokens, cursor and error state. Capacities, rules and
// statistics are kept.
func (c *Context) Reset() error {
	unlock, err := c.enter("reset")
	defer unlock()
	if err != nil {
		return err
	}
	c.resetCursor()
	c.input = nil
	c.err = nil
	return nil
}

func (c *Context) resetCursor() {
	c.tokens = c.tokens[:0]
	c.positions = c.positions[:0]
	c.lengths = c.lengths[:0]
	c.pos = 0
	c.line = 1
	c.col = 1
}

// Flags returns the current mode flags.
func (c *Context) Flags() Flags {
	unlock, err := c.enter("flags")
	defer unlock()
	if err != nil {
		return 0
	}
	f := c.flags
	if c.threadSafe.Load() {
		f |= FlagThreadSafe
	}
	return f
}

// SetFlags replaces every mode flag at once.
func (c *Context) SetFlags(f Flags) error {
	unlock, err := c.enter("set flags")
	defer unlock()
	if err != nil {
		return err
	}
	c.flags = f &^ FlagThreadSafe
	c.threadSafe.Store(f&FlagThreadSafe != 0)
	return nil
}

func (c *Context) setFlag(op string, f Flags, on bool) error {
	unlock, err := c.enter(op)
	defer unlock()
	if err != nil {
		return err
	}
	if on {
		c.flags |= f
	} else {
		c.flags &^= f
	}
	return nil
}

func (c *Context) SetDebug(on bool) error  { return c.setFlag("set debug", FlagDebug, on) }
func (c *Context) SetStrict(on bool) error { return c.setFlag("set strict", FlagStrict, on) }

// SetThreadSafe toggles serialization. The release taken on entry is the
// one returned by lock, so switching the mode off while holding the mutex
// still unlocks it.
func (c *Context) SetThreadSafe(on bool) error {
	unlock, err := c.enter("set thread safe")
	defer unlock()
	if err != nil {
		return err
	}
	c.threadSafe.Store(on)
	return nil
}

func (c *Context) Debug() bool      { return c.Flags()&FlagDebug != 0 }
func (c *Context) Strict() bool     { return c.Flags()&FlagStrict != 0 }
func (c *Context) ThreadSafe() bool { return c != nil && c.threadSafe.Load() }

func (c *Context) debugging() bool {
	return c.flags&FlagDebug != 0
}

// TokenCapacity returns how many tokens one call can hold.
func (c *Context) TokenCapacity() int {
	unlock, err := c.enter("token capacity")
	defer unlock()
	if err != nil {
		return 0
	}
	return c.tokenCap
}

// RuleCapacity returns how many rules can be registered.
func (c *Context) RuleCapacity() int {
	unlock, err := c.enter("rule capacity")
	defer unlock()
	if err != nil {
		return 0
	}
	return c.ruleCap
}

// ResizeTokens changes the token capacity. Existing tokens are kept; a
// capacity below the current token count is rejected.
func (c *Context) ResizeTokens(n int) error {
	unlock, err := c.enter("resize tokens")
	defer unlock()
	if err != nil {
		return err
	}
	if e := checkCapacity("resize tokens", n, MaxTokenCapacity); e != nil {
		return c.fail(e)
	}
	if n < len(c.tokens) {
		return c.fail(newError(CodeCapacityExceeded, "resize tokens", nil,
			"capacity %d below token count %d", n, len(c.tokens)))
	}
	c.reallocTokens(n)
	return nil
}

// ResizeRules changes the rule capacity. A capacity below the number of
// registered rules is rejected and leaves the rule set unchanged.
func (c *Context) ResizeRules(n int) error {
	unlock, err := c.enter("resize rules")
	defer unlock()
	if err != nil {
		return err
	}
	if e := checkCapacity("resize rules", n, MaxRuleCapacity); e != nil {
		return c.fail(e)
	}
	if n < len(c.rules) {
		return c.fail(newError(CodeCapacityExceeded, "resize rules", nil,
			"capacity %d below rule count %d", n, len(c.rules)))
	}
	c.reallocRules(n)
	return nil
}

// StateLimit returns how many states a rule compiled from now on may use.
func (c *Context) StateLimit() int {
	unlock, err := c.enter("state limit")
	defer unlock()
	if err != nil {
		return 0
	}
	return c.stateLimit
}

// SetStateLimit caps the automaton of every rule registered afterwards at n
// states, dead state included. Rules already registered are unaffected.
func (c *Context) SetStateLimit(n int) error {
	unlock, err := c.enter("set state limit")
	defer unlock()
	if err != nil {
		return err
	}
	if e := checkCapacity("set state limit", n, automaton.MaxStates); e != nil {
		return c.fail(e)
	}
	c.stateLimit = n
	return nil
}

// Compact shrinks each buffer whose utilisation is below one half down to
// its current use (never below 1).
func (c *Context) Compact() error {
	unlock, err := c.enter("compact")
	defer unlock()
	if err != nil {
		return err
	}
	if len(c.tokens)*2 < c.tokenCap {
		c.reallocTokens(max(len(c.tokens), 1))
	}
	if len(c.rules)*2 < c.ruleCap {
		c.reallocRules(max(len(c.rules), 1))
	}
	return nil
}

func (c *Context) reallocTokens(n int) {
	tokens := make([]token.Triplet, len(c.tokens), n)
	copy(tokens, c.tokens)
	positions := make([]token.Position, len(c.positions), n)
	copy(positions, c.positions)
	lengths := make([]uint16, len(c.lengths), n)
	copy(lengths, c.lengths)
	c.tokens, c.positions, c.lengths = tokens, positions, lengths
	c.tokenCap = n
	c.trackMemory()
}

func (c *Context) reallocRules(n int) {
	rules := make([]rule, len(c.rules), n)
	copy(rules, c.rules)
	c.rules = rules
	c.ruleCap = n
	c.trackMemory()
}

// Stats returns a snapshot of the counters.
func (c *Context) Stats() Stats {
	unlock, err := c.enter("stats")
	defer unlock()
	if err != nil {
		return Stats{}
	}
	return c.stats
}

// ResetStats zeroes the counters. Memory figures are recomputed.
func (c *Context) ResetStats() error {
	unlock, err := c.enter("reset stats")
	defer unlock()
	if err != nil {
		return err
	}
	c.stats = Stats{}
	c.trackMemory()
	return nil
}

// Err returns the sticky last error, or nil.
func (c *Context) Err() error {
	unlock, err := c.enter("err")
	defer unlock()
	if err != nil {
		return err
	}
	if c.err == nil {
		return nil
	}
	return c.err
}

func (c *Context) HasError() bool {
	return c.Err() != nil
}

func (c *Context) ErrorCode() ErrorCode {
	return CodeOf(c.Err())
}

func (c *Context) ErrorMessage() string {
	if err := c.Err(); err != nil {
		return err.Error()
	}
	return ""
}

// ClearError forgets the sticky error.
func (c *Context) ClearError() {
	unlock, err := c.enter("clear error")
	defer unlock()
	if err != nil {
		return
	}
	c.err = nil
}

// Validate checks the structural invariants of the context.
func (c *Context) Validate() error {
	unlock, err := c.enter("validate")
	defer unlock()
	if err != nil {
		return err
	}
	fail := func(format string, args ...any) error {
		return c.fail(newError(CodeInvalidState, "validate", nil, format, args...))
	}

	switch {
	case c.tokenCap <= 0 || c.tokenCap > MaxTokenCapacity:
		return fail("token capacity %d out of range", c.tokenCap)
	case c.ruleCap <= 0 || c.ruleCap > MaxRuleCapacity:
		return fail("rule capacity %d out of range", c.ruleCap)
	case len(c.tokens) > c.tokenCap:
		return fail("%d tokens exceed capacity %d", len(c.tokens), c.tokenCap)
	case len(c.rules) > c.ruleCap:
		return fail("%d rules exceed capacity %d", len(c.rules), c.ruleCap)
	case len(c.positions) != len(c.tokens) || len(c.lengths) != len(c.tokens):
		return fail("token side tables out of step")
	case c.pos < 0 || c.pos > len(c.input):
		return fail("cursor %d outside input of length %d", c.pos, len(c.input))
	case c.line < 1 || c.col < 1:
		return fail("cursor position %d:%d", c.line, c.col)
	}
	for i, r := range c.rules {
		if r.comp == nil || !r.comp.Compiled() {
			return fail("rule %d is not compiled", i)
		}
	}
	for i, t := range c.tokens {
		if !t.Kind().Valid() {
			return fail("token %d has undefined kind %d", i, uint8(t.Kind()))
		}
		if t.IsTerminator() && i != len(c.tokens)-1 {
			return fail("token %d is a terminator before the end of the stream", i)
		}
		if !t.IsTerminator() && t.Offset() >= len(c.input) {
			return fail("token %d offset %d outside input", i, t.Offset())
		}
		if i > 0 && t.Offset() <= c.tokens[i-1].Offset() && !t.IsTerminator() {
			return fail("token %d offset %d not increasing", i, t.Offset())
		}
	}
	return nil
}
