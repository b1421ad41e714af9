package automaton

import (
	"errors"
	"fmt"

	"github.com/spicery/dfalex/pkg/token"
)

// MaxPatternLength bounds the source text of a single pattern.
const MaxPatternLength = 1024

var (
	ErrEmptyPattern   = errors.New("empty pattern")
	ErrPatternTooLong = errors.New("pattern exceeds maximum length")
)

type quantifier uint8

const (
	once       quantifier = iota
	zeroOrMore            // *
	oneOrMore             // +
	optional              // ?
)

// unit is one matchable element of a pattern with its quantifier.
type unit struct {
	members ByteSet
	quant   quantifier
}

// CompilePattern appends the automaton for pattern to the state start of
// arena and returns the accepting states it created, final state first.
//
// Grammar:
//
//	Pattern    = [ "^" ] { Unit [ Quantifier ] } [ "$" ] ;
//	Unit       = "\" Byte | Class | "." | Literal ;
//	Class      = "[" [ "^" ] { Byte [ "-" Byte ] } "]" ;
//	Quantifier = "*" | "+" | "?" ;
//
// The arena is left untouched when an error is returned.
func CompilePattern(arena *Arena, start StateID, pattern string, kind token.Kind) ([]StateID, error) {
	if len(pattern) > MaxPatternLength {
		return nil, ErrPatternTooLong
	}
	units := parsePattern(pattern)
	if len(units) == 0 {
		return nil, ErrEmptyPattern
	}
	if arena.State(start) == nil || start == Dead {
		return nil, fmt.Errorf("invalid start state %d", start)
	}
	if arena.Len()+len(units) > arena.limit {
		return nil, ErrStateLimit
	}

	current := start
	var skip []StateID
	for i := range units {
		u := &units[i]
		next, err := arena.NewState()
		if err != nil {
			return nil, err
		}
		arena.Link(current, next, &u.members)
		for _, s := range skip {
			arena.Link(s, next, &u.members)
		}
		if u.quant == zeroOrMore || u.quant == oneOrMore {
			arena.Link(next, next, &u.members)
		}
		if u.quant == zeroOrMore || u.quant == optional {
			skip = append(skip, current)
		} else {
			skip = skip[:0]
		}
		current = next
	}

	accepts := make([]StateID, 0, len(skip)+1)
	accepts = append(accepts, current)
	accepts = append(accepts, skip...)
	for _, s := range accepts {
		arena.Accept(s, kind)
	}
	return accepts, nil
}

// parsePattern splits a pattern into units. Anchors are consumed; quantifier
// characters with no unit to apply to are literals.
func parsePattern(pattern string) []unit {
	i, end := 0, len(pattern)
	if end > 0 && pattern[0] == '^' {
		i = 1
	}
	if end > i && pattern[end-1] == '$' && !isEscaped(pattern, i, end-1) {
		end--
	}

	var units []unit
	quantified := false
	for i < end {
		c := pattern[i]
		switch {
		case (c == '*' || c == '+' || c == '?') && len(units) > 0 && !quantified:
			units[len(units)-1].quant = quantifierFor(c)
			quantified = true
			i++
			continue
		case c == '\\' && i+1 < end:
			var u unit
			u.members.Add(unescape(pattern[i+1]))
			units = append(units, u)
			i += 2
		case c == '[':
			var u unit
			i = parseClass(pattern, i+1, end, &u.members)
			units = append(units, u)
		case c == '.':
			var u unit
			u.members.Fill()
			units = append(units, u)
			i++
		default:
			var u unit
			u.members.Add(c)
			units = append(units, u)
			i++
		}
		quantified = false
	}
	return units
}

// parseClass reads a bracket class starting just after '[' and returns the
// index after the closing ']'. An unterminated class takes the rest of the
// pattern as members.
func parseClass(pattern string, i, end int, members *ByteSet) int {
	negate := false
	if i < end && pattern[i] == '^' {
		negate = true
		i++
	}
	first := true
	for i < end {
		c := pattern[i]
		if c == ']' && !first {
			i++
			break
		}
		first = false

		lo := c
		if c == '\\' && i+1 < end {
			lo = unescape(pattern[i+1])
			i += 2
		} else {
			i++
		}

		if i+1 < end && pattern[i] == '-' && pattern[i+1] != ']' {
			hi := pattern[i+1]
			if hi == '\\' && i+2 < end {
				hi = unescape(pattern[i+2])
				i += 3
			} else {
				i += 2
			}
			members.AddRange(lo, hi)
			continue
		}
		members.Add(lo)
	}
	if negate {
		members.Invert()
	}
	return i
}

func quantifierFor(c byte) quantifier {
	switch c {
	case '*':
		return zeroOrMore
	case '+':
		return oneOrMore
	default:
		return optional
	}
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case 'f':
		return '\f'
	case 'v':
		return '\v'
	case '0':
		return 0
	}
	return c
}

// isEscaped reports whether pattern[pos] is preceded by an odd run of
// backslashes that starts at or after from.
func isEscaped(pattern string, from, pos int) bool {
	n := 0
	for j := pos - 1; j >= from && pattern[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}
