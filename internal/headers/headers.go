// Package headers builds a function-signature catalogue from a preprocessed
// C translation unit (macros already expanded, no directives left).
//
// The parser is deliberately best-effort and strictly additive: it
// recognizes typedef, struct/union/enum declarations and top-level function
// prototypes, and skips anything it cannot parse. A missing or empty
// catalogue is a supported configuration; every symbol then falls back to an
// untyped variadic signature.
package headers

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/scanner"
)

// Catalogue maps canonical function names to signatures and carries every
// parsed type declaration for bulk injection into the host.
type Catalogue struct {
	sigs    map[string]Signature
	types   []TypeDecl
	skipped int
}

// NewCatalogue returns an empty catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{sigs: make(map[string]Signature)}
}

// LoadFile parses a preprocessed header corpus from disk into the catalogue.
func (c *Catalogue) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("headers: open: %w", err)
	}
	defer f.Close()
	return c.Load(f)
}

// Load parses declarations from r. Individual unparseable declarations are
// counted and skipped, never fatal; only the read itself can fail.
func (c *Catalogue) Load(r io.Reader) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("headers: read: %w", err)
	}
	for _, decl := range splitDecls(string(src)) {
		if !c.addDecl(decl) {
			c.skipped++
		}
	}
	return nil
}

// SignatureFor returns the parsed prototype for a canonical name.
func (c *Catalogue) SignatureFor(name string) (Signature, bool) {
	sig, ok := c.sigs[name]
	return sig, ok
}

// TypesForInjection returns every parsed struct/union/enum/typedef in source
// order, independent of whether any resolved symbol references it.
func (c *Catalogue) TypesForInjection() []TypeDecl {
	return c.types
}

// Len returns the number of catalogued prototypes.
func (c *Catalogue) Len() int { return len(c.sigs) }

// Skipped returns the number of declarations the parser gave up on.
func (c *Catalogue) Skipped() int { return c.skipped }

// splitDecls cuts preprocessed source into top-level declarations: text up
// to a ';' at brace depth zero, with any attached {...} body included.
func splitDecls(src string) []string {
	var decls []string
	depth := 0
	start := 0
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				d := strings.TrimSpace(src[start : i+1])
				if d != ";" && d != "" {
					decls = append(decls, d)
				}
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(src[start:]); tail != "" {
		decls = append(decls, tail)
	}
	return decls
}

// addDecl classifies and records one declaration. Returns false if skipped.
func (c *Catalogue) addDecl(decl string) bool {
	toks := tokenize(decl)
	if len(toks) == 0 {
		return false
	}
	switch toks[0] {
	case "typedef":
		return c.addTypedef(decl, toks)
	case "struct", "union", "enum":
		// A bare aggregate declaration needs a body to be worth keeping;
		// "struct Foo;" forward declarations carry no type information.
		if !strings.Contains(decl, "{") || len(toks) < 2 {
			return false
		}
		c.types = append(c.types, TypeDecl{Kind: toks[0], Name: toks[1], Source: decl})
		return true
	}
	return c.addPrototype(decl, toks)
}

func (c *Catalogue) addTypedef(decl string, toks []string) bool {
	name := typedefName(toks)
	if name == "" {
		return false
	}
	c.types = append(c.types, TypeDecl{Kind: "typedef", Name: name, Source: decl})
	return true
}

// typedefName extracts the introduced name: the identifier right before the
// terminating ';' for plain typedefs, or the identifier inside (* ... ) for
// function-pointer typedefs.
func typedefName(toks []string) string {
	for i := 0; i+2 < len(toks); i++ {
		if toks[i] == "(" && toks[i+1] == "*" && isIdent(toks[i+2]) {
			return toks[i+2]
		}
	}
	for i := len(toks) - 1; i > 0; i-- {
		if toks[i] == ";" || toks[i] == "]" || isArrayBound(toks, i) {
			continue
		}
		if isIdent(toks[i]) {
			return toks[i]
		}
		return ""
	}
	return ""
}

func isArrayBound(toks []string, i int) bool {
	// part of a trailing [N] suffix
	for j := i; j < len(toks); j++ {
		if toks[j] == "]" {
			return true
		}
		if toks[j] == ";" {
			return false
		}
	}
	return false
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// tokenize splits a declaration into C-ish tokens using text/scanner;
// punctuation comes through as single-rune tokens.
func tokenize(src string) []string {
	var s scanner.Scanner
	s.Init(strings.NewReader(src))
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanChars | scanner.ScanStrings | scanner.SkipComments | scanner.ScanComments
	s.Error = func(*scanner.Scanner, string) {} // tolerate anything; bad tokens just end the decl
	var toks []string
	for tok := s.Scan(); tok != scanner.EOF; tok = s.Scan() {
		toks = append(toks, s.TokenText())
	}
	return toks
}
