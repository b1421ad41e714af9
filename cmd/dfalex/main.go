package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	version = "0.1.0"
	usage   = `dfalex - A longest-match DFA tokenizer

Usage:
  dfalex [options]

Options:
  -h, --help            Show this help message
  -v, --version         Show version information
  --input <file>        Input file (defaults to stdin)
  --output <file>       Output file (defaults to stdout)
  --rules <file>        YAML rules file replacing the default rules (optional)
  --make-rules          Generate default rules YAML to stdout
  --format <name>       Output format: json, csv or human (default json)
  --strict              Treat bytes no rule matches as an error
  --eof                 Append an EOF token
  --emit-length         Store token lengths in the aux field
  --debug               Log compiled rules and emitted tokens to stderr
  --exit0               Exit with code 0 even on tokenisation errors (suppress stderr)

Examples:
  dfalex                                      # Read from stdin, write to stdout
  dfalex --input source.c                     # Read from file, write to stdout
  dfalex --input source.c --output tokens.json
  dfalex --rules custom.yaml --input source.c # Use custom rules
  dfalex --make-rules                         # Generate default rules configuration
  echo "if x1 >= 42" | dfalex --format human

The json format outputs one token object per line.
`
)

type options struct {
	inputFile, outputFile, rulesFile, format string
	strict, eof, emitLength, debug           bool
}

func main() {
	var showHelp, showVersion, exit0, makeRules bool
	var opts options

	flag.BoolVar(&showHelp, "h", false, "Show help")
	flag.BoolVar(&showHelp, "help", false, "Show help")
	flag.BoolVar(&showVersion, "v", false, "Show version")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&exit0, "exit0", false, "Exit with code 0 even on errors")
	flag.BoolVar(&makeRules, "make-rules", false, "Generate default rules YAML")
	flag.StringVar(&opts.inputFile, "input", "", "Input file (defaults to stdin)")
	flag.StringVar(&opts.outputFile, "output", "", "Output file (defaults to stdout)")
	flag.StringVar(&opts.rulesFile, "rules", "", "YAML rules file (optional)")
	flag.StringVar(&opts.format, "format", "json", "Output format")
	flag.BoolVar(&opts.strict, "strict", false, "Report unmatched input")
	flag.BoolVar(&opts.eof, "eof", false, "Append an EOF token")
	flag.BoolVar(&opts.emitLength, "emit-length", false, "Store token lengths in aux")
	flag.BoolVar(&opts.debug, "debug", false, "Debug logging")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("dfalex version %s\n", version)
		os.Exit(0)
	}

	if makeRules {
		if err := generateDefaultConfig(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating default rules: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Reject any positional arguments
	if len(flag.Args()) > 0 {
		fmt.Fprintf(os.Stderr, "Error: Unexpected positional arguments. Use --input and --output flags instead.\n\n")
		flag.Usage()
		os.Exit(1)
	}

	format, ok := formatters[opts.format]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: Unknown format '%s', expected one of %s\n", opts.format, strings.Join(formatNames(), ", "))
		os.Exit(1)
	}

	var input []byte
	var err error
	if opts.inputFile == "" {
		input, err = io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading from stdin: %v\n", err)
			os.Exit(1)
		}
	} else {
		input, err = os.ReadFile(opts.inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading file '%s': %v\n", opts.inputFile, err)
			os.Exit(1)
		}
	}

	logger := zerolog.Nop()
	if opts.debug {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	c, err := newContext(opts, len(input), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	tokens, tokenizeErr := tokenize(c, input, opts)
	stats := c.Stats()
	logger.Debug().
		Int("chars", stats.CharsProcessed).
		Int("tokens", stats.TokensGenerated).
		Int("dropped", stats.TokensDropped).
		Dur("elapsed", stats.Elapsed).
		Msg("tokenized")

	// Prepare output destination
	var output io.Writer
	var outputCloser io.Closer

	if opts.outputFile == "" {
		output = os.Stdout
	} else {
		file, err := os.Create(opts.outputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output file '%s': %v\n", opts.outputFile, err)
			os.Exit(1)
		}
		output = file
		outputCloser = file
	}

	// Output tokens even if there was an error
	if err := format(output, tokens); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}

	if outputCloser != nil {
		if err := outputCloser.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing output file '%s': %v\n", opts.outputFile, err)
			os.Exit(1)
		}
	}

	// Handle tokenisation error after outputting tokens
	if tokenizeErr != nil {
		if exit0 {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Tokenization error: %v\n", tokenizeErr)
		os.Exit(1)
	}
}
