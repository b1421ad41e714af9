// Package token defines the token kinds and the 4-byte triplet that the
// tokenizer emits and downstream stages consume.
package token

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind represents the different kinds of tokens.
type Kind uint8

const (
	Unknown     Kind = iota // Fallback for bytes no rule matched
	Identifier              // Names
	Number                  // Numeric literals
	String                  // Quoted string literals
	Operator                // Infix/prefix operators
	Keyword                 // Reserved words
	Punctuation             // Brackets, separators
	Whitespace              // Blanks and tabs
	Newline                 // Line terminators
	Comment                 // Comments
	EOF                     // Terminator, offset == input length

	numKinds
)

var kindNames = [numKinds]string{
	Unknown:     "unknown",
	Identifier:  "identifier",
	Number:      "number",
	String:      "string",
	Operator:    "operator",
	Keyword:     "keyword",
	Punctuation: "punctuation",
	Whitespace:  "whitespace",
	Newline:     "newline",
	Comment:     "comment",
	EOF:         "eof",
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k < numKinds
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// ParseKind looks a kind up by name, case-insensitively.
func ParseKind(name string) (Kind, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for i, n := range kindNames {
		if n == lower {
			return Kind(i), nil
		}
	}
	return Unknown, fmt.Errorf("unknown token kind '%s'", name)
}

// Kinds returns every defined kind in numeric order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, numKinds)
	for k := Kind(0); k < numKinds; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// MarshalText implements encoding.TextMarshaler so kinds appear by name
// in YAML rule files and JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid token kind %d", uint8(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Position represents a line and column position in the source.
type Position struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

// Span represents the start and end positions of a token.
type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// MarshalJSON implements custom JSON marshaling for Span.
func (s Span) MarshalJSON() ([]byte, error) {
	arr := [4]int{s.Start.Line, s.Start.Col, s.End.Line, s.End.Col}
	return json.Marshal(arr)
}

// UnmarshalJSON implements custom JSON unmarshaling for Span.
func (s *Span) UnmarshalJSON(data []byte) error {
	var arr [4]int
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	s.Start = Position{Line: arr[0], Col: arr[1]}
	s.End = Position{Line: arr[2], Col: arr[3]}
	return nil
}

// Token is the expanded view of a triplet, joined with its source text and
// position. Formatters work with Tokens; the pipeline boundary is the Triplet.
type Token struct {
	Text   string `json:"text"`
	Kind   Kind   `json:"kind"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	Aux    uint8  `json:"aux"`
	Span   Span   `json:"span"`
}

// NewToken creates a token view over text starting at offset.
func NewToken(text string, kind Kind, offset int, aux uint8, span Span) *Token {
	return &Token{
		Text:   text,
		Kind:   kind,
		Offset: offset,
		Length: len(text),
		Aux:    aux,
		Span:   span,
	}
}
