package headers

import "strings"

// Storage-class noise dropped from return types.
var qualifiers = map[string]bool{
	"extern": true, "static": true, "inline": true,
	"__inline": true, "__inline__": true, "__extension__": true,
}

// addPrototype parses a top-level function prototype. Returns false when the
// declaration does not look like one.
func (c *Catalogue) addPrototype(decl string, toks []string) bool {
	if strings.Contains(decl, "{") {
		return false
	}
	for len(toks) > 0 && qualifiers[toks[0]] {
		toks = toks[1:]
	}

	open := -1
	for i, t := range toks {
		if t == "(" {
			open = i
			break
		}
	}
	// Needs a return type, a name and a parameter list.
	if open < 2 || !isIdent(toks[open-1]) {
		return false
	}
	name := toks[open-1]
	ret := joinType(toks[:open-1])
	if ret == "" {
		return false
	}

	end := matchParen(toks, open)
	if end < 0 {
		return false
	}

	sig := Signature{Return: ret}
	ok := true
	for _, ptoks := range splitParams(toks[open+1 : end]) {
		switch {
		case len(ptoks) == 1 && ptoks[0] == "void":
			// no parameters
		case isEllipsis(ptoks):
			sig.Variadic = true
		default:
			p, good := parseParam(ptoks)
			if !good {
				ok = false
			}
			sig.Params = append(sig.Params, p)
		}
	}
	if !ok {
		return false
	}
	c.sigs[name] = sig
	return true
}

// matchParen returns the index of the ')' matching toks[open].
func matchParen(toks []string, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch toks[i] {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitParams splits the parameter token list on commas at depth zero.
func splitParams(toks []string) [][]string {
	var params [][]string
	depth := 0
	start := 0
	for i, t := range toks {
		switch t {
		case "(", "[":
			depth++
		case ")", "]":
			depth--
		case ",":
			if depth == 0 {
				if i > start {
					params = append(params, toks[start:i])
				}
				start = i + 1
			}
		}
	}
	if start < len(toks) {
		params = append(params, toks[start:])
	}
	return params
}

func isEllipsis(toks []string) bool {
	if len(toks) != 3 {
		return false
	}
	return toks[0] == "." && toks[1] == "." && toks[2] == "."
}

// parseParam extracts (type, name) from one parameter's tokens.
func parseParam(toks []string) (Param, bool) {
	if len(toks) == 0 {
		return Param{}, false
	}

	// Function-pointer parameter: name sits inside (* ... ).
	for i := 0; i+2 < len(toks); i++ {
		if toks[i] == "(" && toks[i+1] == "*" && isIdent(toks[i+2]) {
			name := toks[i+2]
			rest := append(append([]string{}, toks[:i+2]...), toks[i+3:]...)
			return Param{Type: joinType(rest), Name: name}, true
		}
	}

	// Peel a trailing array suffix into the type.
	var suffix []string
	for len(toks) > 0 && toks[len(toks)-1] == "]" {
		j := len(toks) - 1
		for j >= 0 && toks[j] != "[" {
			j--
		}
		if j < 0 {
			return Param{}, false
		}
		suffix = append(toks[j:len(toks):len(toks)], suffix...)
		toks = toks[:j]
	}
	if len(toks) == 0 {
		return Param{}, false
	}

	last := toks[len(toks)-1]
	if len(toks) > 1 && isIdent(last) && !isTypeWord(last) {
		return Param{Type: joinType(append(toks[:len(toks)-1:len(toks)-1], suffix...)), Name: last}, true
	}
	// Unnamed parameter.
	return Param{Type: joinType(append(toks, suffix...))}, true
}

// isTypeWord reports whether an identifier in trailing position is still
// part of the type, so "unsigned int" is not read as int named "unsigned".
func isTypeWord(s string) bool {
	switch s {
	case "void", "char", "short", "int", "long", "float", "double",
		"signed", "unsigned", "const", "volatile", "struct", "union", "enum":
		return true
	}
	return false
}

func joinType(toks []string) string {
	return strings.TrimSpace(strings.Join(toks, " "))
}
