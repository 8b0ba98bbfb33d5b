package builder

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/shlex"
)

// denyChars are rejected anywhere in a free-text argument string.
const denyChars = ";|&`$()<>{}!\\\n"

var (
	flagSyntax   = regexp.MustCompile(`^--?[\w-]+$`)
	numericToken = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

	errUnbalancedQuote = errors.New("unbalanced quote")
)

// ArgCheck is the outcome of sanitizing a free-text argument string.
type ArgCheck struct {
	Tokens      []string
	Diagnostics []string
	Rejected    bool
}

// CheckAdditionalArgs tokenizes raw respecting quotes and filters the
// tokens for exe. Any deny-listed character rejects the whole string.
// Malformed flags are dropped; well-formed flags missing from the known
// flag registry are kept and reported.
func CheckAdditionalArgs(raw, exe string, flags *FlagRegistry) ArgCheck {
	var out ArgCheck
	if strings.TrimSpace(raw) == "" {
		return out
	}
	if i := strings.IndexAny(raw, denyChars); i >= 0 {
		out.Rejected = true
		out.Diagnostics = append(out.Diagnostics,
			fmt.Sprintf("additional arguments rejected: disallowed character %q", raw[i]))
		return out
	}
	tokens, err := Tokenize(raw)
	if err != nil {
		out.Rejected = true
		out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("additional arguments rejected: %v", err))
		return out
	}
	for _, tok := range tokens {
		if !strings.HasPrefix(tok, "-") || numericToken.MatchString(tok) {
			out.Tokens = append(out.Tokens, tok)
			continue
		}
		if !flagSyntax.MatchString(tok) {
			out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("dropped malformed flag %q", tok))
			continue
		}
		if !flags.Known(exe, tok) {
			out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("unknown flag %q for %s passed through", tok, exe))
		}
		out.Tokens = append(out.Tokens, tok)
	}
	return out
}

// Tokenize splits s into shell words, keeping single- or double-quoted
// substrings together and stripping the quotes.
func Tokenize(s string) ([]string, error) {
	tokens, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUnbalancedQuote, err)
	}
	return tokens, nil
}
