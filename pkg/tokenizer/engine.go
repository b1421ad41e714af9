package tokenizer

import (
	"errors"
	"time"

	"github.com/spicery/dfalex/pkg/automaton"
	"github.com/spicery/dfalex/pkg/token"
)

// TokenizeFlags adjust a single Tokenize call.
type TokenizeFlags uint8

const (
	// EmitLength stores min(match length, 255) in the aux byte instead of
	// the winning rule's flags.
	EmitLength TokenizeFlags = 1 << iota
	// Terminate appends an EOF token at offset len(input) when there is room.
	Terminate
)

// AddRule compiles pattern and registers it after the existing rules. Rules
// registered earlier win ties between matches of equal length.
func (c *Context) AddRule(pattern string, kind token.Kind, flags uint8) error {
	unlock, err := c.enter("add rule")
	defer unlock()
	if err != nil {
		return err
	}
	if !kind.Valid() {
		return c.fail(newError(CodeInvalidInput, "add rule", nil, "undefined token kind %d", uint8(kind)))
	}
	if kind == token.EOF {
		return c.fail(newError(CodeInvalidInput, "add rule", ErrReservedKind, "pattern '%s'", pattern))
	}
	if len(c.rules) >= c.ruleCap {
		return c.fail(newError(CodeCapacityExceeded, "add rule", ErrRuleCapacity,
			"%d of %d rules registered", len(c.rules), c.ruleCap))
	}

	comp, cerr := automaton.CompileWithLimit(pattern, kind, flags, c.stateLimit)
	if cerr != nil {
		code := CodePatternCompile
		if errors.Is(cerr, automaton.ErrStateLimit) {
			code = CodeAllocation
		}
		return c.fail(newError(code, "add rule", cerr, ""))
	}

	c.rules = append(c.rules, rule{comp: comp, kind: kind, flags: flags})
	c.stats.PatternsCompiled++
	c.stats.StatesCreated += comp.StateCount()
	c.trackMemory()
	if c.debugging() {
		c.log.Debug().
			Str("pattern", pattern).
			Str("kind", kind.String()).
			Int("states", comp.StateCount()).
			Int("rule", len(c.rules)-1).
			Msg("rule compiled")
	}
	return nil
}

// RuleCount returns the number of registered rules.
func (c *Context) RuleCount() int {
	unlock, err := c.enter("rule count")
	defer unlock()
	if err != nil {
		return 0
	}
	return len(c.rules)
}

// Rules describes the registered rules in registration order.
func (c *Context) Rules() []RuleInfo {
	unlock, err := c.enter("rules")
	defer unlock()
	if err != nil {
		return nil
	}
	infos := make([]RuleInfo, len(c.rules))
	for i, r := range c.rules {
		infos[i] = RuleInfo{
			Pattern: r.comp.Pattern(),
			Kind:    r.kind,
			Flags:   r.flags,
			States:  r.comp.StateCount(),
		}
	}
	return infos
}

// TokenizeString is Tokenize for strings.
func (c *Context) TokenizeString(input string, flags TokenizeFlags) (int, error) {
	return c.Tokenize([]byte(input), flags)
}

// Tokenize replaces the token buffer with the longest-match tokens of input
// and returns how many were stored.
//
// At each position every rule is tried in registration order and the
// longest match wins; a later rule only takes over with a strictly longer
// match. A byte no rule matches becomes a one-byte Unknown token, so the
// tokens always cover the whole input. Once the buffer is full further
// tokens are counted as dropped while scanning continues.
//
// The context keeps a reference to input until the next Tokenize or Reset.
func (c *Context) Tokenize(input []byte, flags TokenizeFlags) (int, error) {
	unlock, err := c.enter("tokenize")
	defer unlock()
	if err != nil {
		return 0, err
	}
	if len(input) > MaxInputLength {
		return 0, c.fail(newError(CodeInvalidInput, "tokenize", ErrInputTooLarge,
			"%d bytes, limit %d", len(input), MaxInputLength))
	}

	started := time.Now()
	c.resetCursor()
	c.input = input

	unmatched := 0
	for c.pos < len(input) {
		best, bestEnd := -1, -1
		for i := range c.rules {
			if e := c.rules[i].comp.Longest(input, c.pos); e > bestEnd {
				best, bestEnd = i, e
			}
		}

		kind, aux, n := token.Unknown, uint8(0), 1
		if best >= 0 {
			kind, aux, n = c.rules[best].kind, c.rules[best].flags, bestEnd-c.pos
		} else {
			unmatched++
		}
		if flags&EmitLength != 0 {
			aux = uint8(min(n, 255))
		}
		c.emit(kind, n, aux)
		c.advance(n)
	}
	if flags&Terminate != 0 {
		c.emit(token.EOF, 0, 0)
	}

	c.stats.Calls++
	c.stats.CharsProcessed += len(input)
	c.stats.Elapsed += time.Since(started)

	if unmatched > 0 && c.flags&FlagStrict != 0 {
		return len(c.tokens), c.fail(newError(CodeInvalidInput, "tokenize", ErrUnmatchedInput,
			"%d unmatched bytes", unmatched))
	}
	return len(c.tokens), nil
}

// emit appends a token starting at the cursor, or counts it as dropped when
// the buffer is full.
func (c *Context) emit(kind token.Kind, n int, aux uint8) {
	if len(c.tokens) >= c.tokenCap {
		c.stats.TokensDropped++
		return
	}
	c.tokens = append(c.tokens, token.MakeTriplet(kind, uint16(c.pos), aux))
	c.positions = append(c.positions, token.Position{Line: c.line, Col: c.col})
	c.lengths = append(c.lengths, uint16(n))
	c.stats.TokensGenerated++
	if c.debugging() {
		c.log.Debug().
			Str("kind", kind.String()).
			Int("offset", c.pos).
			Int("len", n).
			Int("line", c.line).
			Int("col", c.col).
			Msg("token")
	}
}

// advance moves the cursor n bytes. Line and column follow the last byte
// consumed: a newline starts a new line, anything else widens the column.
func (c *Context) advance(n int) {
	c.pos += n
	if c.input[c.pos-1] == '\n' {
		c.line++
		c.col = 1
	} else {
		c.col += n
	}
}

// Len returns the number of tokens stored by the last Tokenize.
func (c *Context) Len() int {
	unlock, err := c.enter("len")
	defer unlock()
	if err != nil {
		return 0
	}
	return len(c.tokens)
}

// Tokens returns a copy of the token buffer.
func (c *Context) Tokens() []token.Triplet {
	unlock, err := c.enter("tokens")
	defer unlock()
	if err != nil {
		return nil
	}
	return append([]token.Triplet(nil), c.tokens...)
}

// Token returns the i-th token.
func (c *Context) Token(i int) (token.Triplet, error) {
	unlock, err := c.enter("token")
	defer unlock()
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= len(c.tokens) {
		return 0, c.fail(newError(CodeInvalidInput, "token", ErrIndexOutOfRange,
			"index %d, %d tokens", i, len(c.tokens)))
	}
	return c.tokens[i], nil
}

// Expand joins every stored token with its source text and span.
func (c *Context) Expand() []token.Token {
	unlock, err := c.enter("expand")
	defer unlock()
	if err != nil {
		return nil
	}
	out := make([]token.Token, len(c.tokens))
	for i, t := range c.tokens {
		off, n := t.Offset(), int(c.lengths[i])
		start := c.positions[i]
		end := token.Position{Line: start.Line, Col: start.Col + n}
		if n > 0 && c.input[off+n-1] == '\n' {
			end = token.Position{Line: start.Line + 1, Col: 1}
		}
		out[i] = *token.NewToken(string(c.input[off:off+n]), t.Kind(), off, t.Aux(), token.Span{Start: start, End: end})
	}
	return out
}
