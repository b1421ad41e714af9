package automaton

// Span is a half-open byte range [Start, End) of an input.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int { return s.End - s.Start }

// Run feeds input through a byte-by-byte and reports whether the whole
// input is accepted.
func Run(a Automaton, input []byte) bool {
	state := a.Start()
	for i := 0; i < len(input); i++ {
		state = a.Step(state, input[i])
		if !a.CanMatch(state) {
			return false
		}
	}
	return a.IsAccept(state)
}

// Match reports whether the whole span is accepted. It fails as soon as a
// byte has no transition.
func (c *Composition) Match(span []byte) bool {
	if !c.compiled {
		return false
	}
	return Run(c, span)
}

// MatchString is Match for strings.
func (c *Composition) MatchString(s string) bool {
	return c.Match([]byte(s))
}

// Longest returns the greatest end e > from such that input[from:e] is
// accepted, or -1 when no non-empty span starting at from is accepted.
//
// Stepping once per byte gives the same answer as testing every candidate
// end from scratch: the automaton is deterministic, so the state reached
// after input[from:e] does not depend on how it was reached.
func (c *Composition) Longest(input []byte, from int) int {
	if !c.compiled || from < 0 || from >= len(input) {
		return -1
	}
	best := -1
	state := c.start
	for e := from; e < len(input); e++ {
		state = c.arena.step(state, input[e])
		if state == Dead {
			break
		}
		if c.arena.states[state].accepting {
			best = e + 1
		}
	}
	return best
}

// ExtractMatches scans input left to right for non-overlapping spans, taking
// the longest accepted span at each position. At most limit spans are
// returned; limit <= 0 means no limit.
func (c *Composition) ExtractMatches(input []byte, limit int) []Span {
	var spans []Span
	for p := 0; p < len(input); {
		if limit > 0 && len(spans) >= limit {
			break
		}
		e := c.Longest(input, p)
		if e < 0 {
			p++
			continue
		}
		spans = append(spans, Span{Start: p, End: e})
		p = e
	}
	return spans
}
