package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/spicery/dfalex/pkg/token"
)

type formatter func(w io.Writer, tokens []token.Token) error

var formatters = map[string]formatter{
	"json":  writeJSON,
	"csv":   writeCSV,
	"human": writeHuman,
}

func formatNames() []string {
	names := make([]string, 0, len(formatters))
	for name := range formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// writeJSON outputs one JSON token object per line.
func writeJSON(w io.Writer, tokens []token.Token) error {
	for _, tok := range tokens {
		jsonBytes, err := json.Marshal(tok)
		if err != nil {
			return fmt.Errorf("JSON encoding error: %w", err)
		}
		if _, err := fmt.Fprintln(w, string(jsonBytes)); err != nil {
			return err
		}
	}
	return nil
}

var csvHeader = []string{"line", "col", "kind", "offset", "length", "aux", "text"}

func writeCSV(w io.Writer, tokens []token.Token) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, tok := range tokens {
		record := []string{
			strconv.Itoa(tok.Span.Start.Line),
			strconv.Itoa(tok.Span.Start.Col),
			tok.Kind.String(),
			strconv.Itoa(tok.Offset),
			strconv.Itoa(tok.Length),
			strconv.Itoa(int(tok.Aux)),
			tok.Text,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var (
	positionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(9)
	kindStyle     = lipgloss.NewStyle().Width(12)
	unknownStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	kindColors    = map[token.Kind]lipgloss.Color{
		token.Identifier:  lipgloss.Color("15"),
		token.Number:      lipgloss.Color("14"),
		token.String:      lipgloss.Color("10"),
		token.Operator:    lipgloss.Color("11"),
		token.Keyword:     lipgloss.Color("13"),
		token.Punctuation: lipgloss.Color("7"),
		token.Whitespace:  lipgloss.Color("8"),
		token.Newline:     lipgloss.Color("8"),
		token.Comment:     lipgloss.Color("2"),
		token.EOF:         lipgloss.Color("4"),
	}
)

func styleFor(kind token.Kind) lipgloss.Style {
	if kind == token.Unknown {
		return unknownStyle
	}
	return lipgloss.NewStyle().Foreground(kindColors[kind])
}

// writeHuman outputs an aligned, coloured table followed by a summary line.
func writeHuman(w io.Writer, tokens []token.Token) error {
	unknown := 0
	for _, tok := range tokens {
		if tok.Kind == token.Unknown {
			unknown++
		}
		pos := fmt.Sprintf("%d:%d", tok.Span.Start.Line, tok.Span.Start.Col)
		style := styleFor(tok.Kind)
		line := lipgloss.JoinHorizontal(lipgloss.Top,
			positionStyle.Render(pos),
			kindStyle.Inherit(style).Render(tok.Kind.String()),
			style.Render(strconv.Quote(tok.Text)),
		)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d tokens, %d unmatched\n", len(tokens), unknown)
	return err
}
