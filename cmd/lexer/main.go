// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Command lexer dumps the raw token stream of TeX sources.
// Catcodes are the initial ones; nothing is expanded.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mdhender/texdigest"
)

func main() {
	log.SetFlags(log.Lshortfile)

	commandsOnly := flag.Bool("commands-only", false, "only print control sequences")
	flag.Parse()

	for _, file := range flag.Args() {
		started := time.Now()
		if err := scan(file, *commandsOnly); err != nil {
			fmt.Printf("%s: failed %v\n", file, err)
			continue
		}
		fmt.Printf("%s: completed in %v\n", file, time.Since(started))
	}
}

func scan(path string, commandsOnly bool) error {
	input, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	file := filepath.Base(path)
	diags := texdigest.NewDiagnosticList(nil)
	s := texdigest.NewLexer(context.Background(), file, input, texdigest.NewContext(slog.Default()), slog.Default(), diags)
	tokenCounter, maxTokens := 0, len(input)+1
	for tokenCounter < maxTokens {
		tok := s.NextToken()
		tokenCounter++
		logToken := tok.IsCommand() || !commandsOnly
		if logToken {
			fmt.Printf("%-35s %5d %-20s %q\n", fmt.Sprintf("%s:%d:%d:", file, tok.Line, tok.Column), tokenCounter, tok.Kind, tok.Text())
		}
		if tok.Kind == texdigest.EndOfInput {
			break
		}
	}
	for _, diag := range diags.All() {
		texdigest.PrintDiagnostic(os.Stderr, diag, input)
	}
	return nil
}
