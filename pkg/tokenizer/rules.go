package tokenizer

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/spicery/dfalex/pkg/automaton"
	"github.com/spicery/dfalex/pkg/token"
)

// RulesFile represents the structure of a YAML rules file
type RulesFile struct {
	Options Options    `yaml:"options,omitempty"`
	Rules   []RuleSpec `yaml:"rules"`
}

// Options configure the context a rules file creates. Zero values fall back
// to the defaults.
type Options struct {
	TokenCapacity int  `yaml:"token_capacity,omitempty"`
	RuleCapacity  int  `yaml:"rule_capacity,omitempty"`
	StateLimit    int  `yaml:"state_limit,omitempty"`
	Strict        bool `yaml:"strict,omitempty"`
	Debug         bool `yaml:"debug,omitempty"`
	ThreadSafe    bool `yaml:"thread_safe,omitempty"`
}

// RuleSpec represents one pattern rule. Order in the file is registration
// order, which decides ties between equally long matches.
type RuleSpec struct {
	Pattern string     `yaml:"pattern"`
	Kind    token.Kind `yaml:"kind"`
	Flags   uint8      `yaml:"flags,omitempty"`
}

// DefaultRules returns a rule set for a small C-like language. Each call
// returns a fresh value.
func DefaultRules() *RulesFile {
	rules := []RuleSpec{
		{Pattern: `[ \t\r]+`, Kind: token.Whitespace},
		{Pattern: `\n`, Kind: token.Newline},
		{Pattern: `//[^\n]*`, Kind: token.Comment},
	}
	// Keywords come before identifiers so they win the tie on equal length.
	for _, kw := range getDefaultKeywords() {
		rules = append(rules, RuleSpec{Pattern: kw, Kind: token.Keyword})
	}
	rules = append(rules,
		RuleSpec{Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`, Kind: token.Identifier},
		RuleSpec{Pattern: `[0-9]+`, Kind: token.Number},
		RuleSpec{Pattern: `[0-9]+\.[0-9]+`, Kind: token.Number, Flags: 1},
		RuleSpec{Pattern: `0[xX][0-9a-fA-F]+`, Kind: token.Number, Flags: 2},
		RuleSpec{Pattern: `"[^"\n]*"`, Kind: token.String},
		RuleSpec{Pattern: `'[^'\n]*'`, Kind: token.String},
		RuleSpec{Pattern: `[=!<>]=`, Kind: token.Operator},
		RuleSpec{Pattern: `&&`, Kind: token.Operator},
		RuleSpec{Pattern: `\|\|`, Kind: token.Operator},
		RuleSpec{Pattern: `[-+*/%=<>!&|^~]`, Kind: token.Operator},
		RuleSpec{Pattern: `[(){}\[\],;.:]`, Kind: token.Punctuation},
	)
	return &RulesFile{Rules: rules}
}

func getDefaultKeywords() []string {
	return []string{"if", "else", "while", "for", "return", "func", "var", "const", "break", "continue"}
}

// LoadRulesFile loads and parses a YAML rules file
func LoadRulesFile(filename string) (*RulesFile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file '%s': %w", filename, err)
	}

	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML in rules file '%s': %w", filename, err)
	}
	return rules, nil
}

// ParseRules decodes a rules document.
func ParseRules(data []byte) (*RulesFile, error) {
	var rules RulesFile
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, err
	}
	return &rules, nil
}

// MarshalRules encodes a rules document as YAML.
func MarshalRules(rules *RulesFile) ([]byte, error) {
	data, err := yaml.Marshal(rules)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rules to YAML: %w", err)
	}
	return data, nil
}

// ApplyRulesToDefaults overlays a rules file on the default rule set: a
// non-empty rule list replaces the default rules, non-zero options replace
// the default options.
func ApplyRulesToDefaults(rules *RulesFile) *RulesFile {
	merged := DefaultRules()
	if rules == nil {
		return merged
	}
	if len(rules.Rules) > 0 {
		merged.Rules = append([]RuleSpec(nil), rules.Rules...)
	}
	opts := rules.Options
	if opts.TokenCapacity != 0 {
		merged.Options.TokenCapacity = opts.TokenCapacity
	}
	if opts.RuleCapacity != 0 {
		merged.Options.RuleCapacity = opts.RuleCapacity
	}
	if opts.StateLimit != 0 {
		merged.Options.StateLimit = opts.StateLimit
	}
	merged.Options.Strict = merged.Options.Strict || opts.Strict
	merged.Options.Debug = merged.Options.Debug || opts.Debug
	merged.Options.ThreadSafe = merged.Options.ThreadSafe || opts.ThreadSafe
	return merged
}

// Validate checks every rule without creating a context.
func (rf *RulesFile) Validate() error {
	if rf == nil {
		return newError(CodeInvalidInput, "validate rules", ErrNilRules, "")
	}
	if rf.Options.TokenCapacity < 0 || rf.Options.TokenCapacity > MaxTokenCapacity {
		return fmt.Errorf("token_capacity %d out of range", rf.Options.TokenCapacity)
	}
	if rf.Options.RuleCapacity < 0 || rf.Options.RuleCapacity > MaxRuleCapacity {
		return fmt.Errorf("rule_capacity %d out of range", rf.Options.RuleCapacity)
	}
	if rf.Options.StateLimit < 0 || rf.Options.StateLimit > automaton.MaxStates {
		return fmt.Errorf("state_limit %d out of range", rf.Options.StateLimit)
	}
	if rf.Options.RuleCapacity > 0 && len(rf.Rules) > rf.Options.RuleCapacity {
		return fmt.Errorf("%d rules exceed rule_capacity %d", len(rf.Rules), rf.Options.RuleCapacity)
	}
	for i, r := range rf.Rules {
		if r.Kind == token.EOF {
			return fmt.Errorf("rule %d: %w", i, ErrReservedKind)
		}
		if _, err := automaton.CompileWithLimit(r.Pattern, r.Kind, r.Flags, rf.Options.StateLimit); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

// RulesOption adjusts the context NewContextFromRules builds before any rule
// is registered.
type RulesOption func(*Context)

// WithLogger sets the context's logger, so rule compilation is logged too.
func WithLogger(l zerolog.Logger) RulesOption {
	return func(c *Context) {
		c.SetLogger(l)
	}
}

// NewContextFromRules creates a context configured by the options and
// registers the rules in file order.
func NewContextFromRules(rf *RulesFile, opts ...RulesOption) (*Context, error) {
	if rf == nil {
		return nil, newError(CodeInvalidInput, "create", ErrNilRules, "")
	}
	tokenCap := rf.Options.TokenCapacity
	if tokenCap == 0 {
		tokenCap = DefaultTokenCapacity
	}
	ruleCap := rf.Options.RuleCapacity
	if ruleCap == 0 {
		ruleCap = min(max(DefaultRuleCapacity, len(rf.Rules)), MaxRuleCapacity)
	}

	c, err := NewContextWithCapacity(tokenCap, ruleCap)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(c)
	}
	if rf.Options.StateLimit != 0 {
		if err := c.SetStateLimit(rf.Options.StateLimit); err != nil {
			return nil, err
		}
	}
	var flags Flags
	if rf.Options.Debug {
		flags |= FlagDebug
	}
	if rf.Options.Strict {
		flags |= FlagStrict
	}
	if rf.Options.ThreadSafe {
		flags |= FlagThreadSafe
	}
	if err := c.SetFlags(flags); err != nil {
		return nil, err
	}

	for i, r := range rf.Rules {
		if err := c.AddRule(r.Pattern, r.Kind, r.Flags); err != nil {
			c.Close()
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return c, nil
}
