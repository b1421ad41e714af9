package automaton

import (
	"testing"

	"github.com/spicery/dfalex/pkg/token"
)

func FuzzCompilePattern(f *testing.F) {
	f.Add(`[a-zA-Z_][a-zA-Z0-9_]*`, "hello_1")
	f.Add(`ab*c`, "abbbc")
	f.Add(`[^"`, "xyz")
	f.Add(`\`, `\`)
	f.Add(`^$`, "")
	f.Add(`a?b?c?`, "ac")
	f.Add(`[z-a]+`, "mm")

	f.Fuzz(func(t *testing.T, pattern, input string) {
		if len(pattern) > MaxPatternLength {
			return
		}

		c, err := Compile(pattern, token.Identifier, 0)
		if err != nil {
			return // Invalid pattern is acceptable.
		}

		// Matching must not panic and must agree with incremental stepping.
		data := []byte(input)
		for from := 0; from < len(data); from++ {
			e := c.Longest(data, from)
			if e >= 0 && !c.Match(data[from:e]) {
				t.Fatalf("Longest(%q, %d) = %d but the span does not match", input, from, e)
			}
		}
		_ = c.ExtractMatches(data, 0)
	})
}
