package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/spicery/dfalex/pkg/token"
	"github.com/spicery/dfalex/pkg/tokenizer"
)

// newContext builds a context from the default rules, or from the rules file
// overlaid on them, sized so that no token of the input is dropped.
func newContext(opts options, inputLen int, logger zerolog.Logger) (*tokenizer.Context, error) {
	rules := tokenizer.DefaultRules()
	if opts.rulesFile != "" {
		loaded, err := tokenizer.LoadRulesFile(opts.rulesFile)
		if err != nil {
			return nil, err
		}
		rules = tokenizer.ApplyRulesToDefaults(loaded)
	}

	if rules.Options.TokenCapacity == 0 {
		// one token per byte plus the terminator
		rules.Options.TokenCapacity = min(max(inputLen+1, tokenizer.DefaultTokenCapacity), tokenizer.MaxTokenCapacity)
	}
	rules.Options.Strict = rules.Options.Strict || opts.strict
	rules.Options.Debug = rules.Options.Debug || opts.debug

	c, err := tokenizer.NewContextFromRules(rules, tokenizer.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to build tokenizer: %w", err)
	}
	return c, nil
}

// tokenize runs c over input and returns the expanded tokens, including
// those produced before an error was reported.
func tokenize(c *tokenizer.Context, input []byte, opts options) ([]token.Token, error) {
	var flags tokenizer.TokenizeFlags
	if opts.eof {
		flags |= tokenizer.Terminate
	}
	if opts.emitLength {
		flags |= tokenizer.EmitLength
	}
	_, err := c.Tokenize(input, flags)
	return c.Expand(), err
}

// generateDefaultConfig writes the default rules in YAML format.
func generateDefaultConfig(w io.Writer) error {
	yamlBytes, err := tokenizer.MarshalRules(tokenizer.DefaultRules())
	if err != nil {
		return err
	}
	_, err = w.Write(yamlBytes)
	return err
}
