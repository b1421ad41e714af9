package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/spicery/dfalex/pkg/token"
	"github.com/spicery/dfalex/pkg/tokenizer"
)

func runDefault(t *testing.T, input string, opts options) []token.Token {
	t.Helper()
	c, err := newContext(opts, len(input), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	tokens, err := tokenize(c, []byte(input), opts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return tokens
}

func TestJSONOutput(t *testing.T) {
	tokens := runDefault(t, "x = 42", options{})
	var buf bytes.Buffer
	if err := writeJSON(&buf, tokens); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("Expected 5 lines, got %d:\n%s", len(lines), buf.String())
	}
	var last token.Token
	if err := json.Unmarshal([]byte(lines[4]), &last); err != nil {
		t.Fatalf("Failed to decode %s: %v", lines[4], err)
	}
	if last.Text != "42" || last.Kind != token.Number || last.Offset != 4 {
		t.Errorf("Unexpected last token %+v", last)
	}
}

func TestCSVOutput(t *testing.T) {
	tokens := runDefault(t, "a,\"b\"", options{})
	var buf bytes.Buffer
	if err := writeCSV(&buf, tokens); err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Output is not valid CSV: %v", err)
	}
	if len(records) != len(tokens)+1 {
		t.Fatalf("Expected %d records, got %d", len(tokens)+1, len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(csvHeader, ",") {
		t.Errorf("Unexpected header %v", records[0])
	}
	if got := records[3]; got[2] != "string" || got[6] != `"b"` {
		t.Errorf("Unexpected string record %v", got)
	}
}

func TestHumanOutput(t *testing.T) {
	tokens := runDefault(t, "if x\n@", options{})
	var buf bytes.Buffer
	if err := writeHuman(&buf, tokens); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"1:1", "keyword", `"if"`, "2:1", "unknown", `"@"`, "5 tokens, 1 unmatched"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestFormatNames(t *testing.T) {
	if got := strings.Join(formatNames(), ","); got != "csv,human,json" {
		t.Errorf("Unexpected format names %s", got)
	}
}

func TestTokenizeFlags(t *testing.T) {
	tokens := runDefault(t, "abc", options{eof: true, emitLength: true})
	if len(tokens) != 2 {
		t.Fatalf("Expected 2 tokens, got %d", len(tokens))
	}
	if tokens[0].Aux != 3 {
		t.Errorf("Expected aux 3, got %d", tokens[0].Aux)
	}
	if tokens[1].Kind != token.EOF || tokens[1].Offset != 3 || tokens[1].Length != 0 {
		t.Errorf("Unexpected terminator %+v", tokens[1])
	}
}

func TestLargeInputIsNotDropped(t *testing.T) {
	input := strings.Repeat("@", 5000)
	tokens := runDefault(t, input, options{})
	if len(tokens) != 5000 {
		t.Errorf("Expected 5000 tokens, got %d", len(tokens))
	}
}

func TestStrictFlag(t *testing.T) {
	opts := options{strict: true}
	c, err := newContext(opts, 3, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	tokens, err := tokenize(c, []byte("a@b"), opts)
	if !errors.Is(err, tokenizer.ErrUnmatchedInput) {
		t.Errorf("Expected unmatched input error, got %v", err)
	}
	if len(tokens) != 3 {
		t.Errorf("Tokens should still be returned, got %d", len(tokens))
	}
}

func TestRulesFileOption(t *testing.T) {
	rulesContent := `rules:
  - pattern: "[a-z]+"
    kind: keyword
`
	file := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(file, []byte(rulesContent), 0o644); err != nil {
		t.Fatal(err)
	}

	tokens := runDefault(t, "ab 1", options{rulesFile: file})
	kinds := []token.Kind{token.Keyword, token.Unknown, token.Unknown}
	if len(tokens) != len(kinds) {
		t.Fatalf("Expected %d tokens, got %d", len(kinds), len(tokens))
	}
	for i, tok := range tokens {
		if tok.Kind != kinds[i] {
			t.Errorf("Token %d: expected %v, got %v", i, kinds[i], tok.Kind)
		}
	}

	if _, err := newContext(options{rulesFile: filepath.Join(t.TempDir(), "missing.yaml")}, 0, zerolog.Nop()); err == nil {
		t.Error("Expected an error for a missing rules file")
	}
}

func TestDebugLogsRules(t *testing.T) {
	var buf bytes.Buffer
	if _, err := newContext(options{debug: true}, 0, zerolog.New(&buf)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `"message":"rule compiled"`) || !strings.Contains(out, `"pattern":"//[^\\n]*"`) {
		t.Errorf("Expected the comment rule compilation in the debug log:\n%s", out)
	}
}

func TestGenerateDefaultConfig(t *testing.T) {
	var buf bytes.Buffer
	if err := generateDefaultConfig(&buf); err != nil {
		t.Fatal(err)
	}
	rules, err := tokenizer.ParseRules(buf.Bytes())
	if err != nil {
		t.Fatalf("Generated YAML does not parse: %v", err)
	}
	if len(rules.Rules) != len(tokenizer.DefaultRules().Rules) {
		t.Errorf("Expected %d rules, got %d", len(tokenizer.DefaultRules().Rules), len(rules.Rules))
	}
}
