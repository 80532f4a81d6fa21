package retention

import (
	"fmt"
	"regexp"
	"strings"
)

// PatternSyntax identifies how a pattern string was interpreted at
// compile time. The dual mode is deliberate: patterns containing '*' or
// '?' get glob ergonomics, everything else keeps full regex power. A
// literal pattern containing regex metacharacters such as '.' or '+' is
// therefore compiled as a regex, not escaped.
type PatternSyntax string

const (
	// SyntaxGlob marks a pattern translated from glob wildcards.
	SyntaxGlob PatternSyntax = "glob"

	// SyntaxRegex marks a pattern compiled as a regular expression.
	SyntaxRegex PatternSyntax = "regex"
)

// Matcher is a compiled predicate testing whether a metric name
// satisfies a policy's pattern.
//
// Matching is anchored at the start of the candidate name only: the
// expression must match at position 0 but need not consume the whole
// string, so pattern "cpu" matches "cpu_usage_total". This prefix
// anchoring is inherited behavior that existing policies depend on and
// is preserved on purpose.
type Matcher struct {
	// Pattern is the original user-facing pattern string.
	Pattern string

	// Syntax records whether the pattern was treated as a glob or regex.
	Syntax PatternSyntax

	re *regexp.Regexp
}

// CompilePattern compiles a user-facing pattern into a Matcher. Invalid
// patterns fail with a ValidationError; compilation happens at policy
// create/update time so bad patterns never reach the stored state.
func CompilePattern(pattern string) (*Matcher, error) {
	syntax := SyntaxRegex
	expr := pattern

	if strings.ContainsAny(pattern, "*?") {
		syntax = SyntaxGlob
		expr = globToRegex(pattern)
	}

	// Anchor at the start only. See the Matcher doc for why this is not
	// a full-string match.
	re, err := regexp.Compile("^(?:" + expr + ")")
	if err != nil {
		return nil, NewValidationError("pattern",
			fmt.Sprintf("invalid pattern %q: %v", pattern, err))
	}

	return &Matcher{Pattern: pattern, Syntax: syntax, re: re}, nil
}

// globToRegex translates a glob pattern into a regular expression:
// literal runs are quoted, '*' becomes ".*" and '?' becomes ".".
func globToRegex(pattern string) string {
	var b strings.Builder
	var literal strings.Builder

	flush := func() {
		if literal.Len() > 0 {
			b.WriteString(regexp.QuoteMeta(literal.String()))
			literal.Reset()
		}
	}

	for _, r := range pattern {
		switch r {
		case '*':
			flush()
			b.WriteString(".*")
		case '?':
			flush()
			b.WriteString(".")
		default:
			literal.WriteRune(r)
		}
	}
	flush()

	return b.String()
}

// Match reports whether the metric name satisfies the pattern.
func (m *Matcher) Match(name string) bool {
	return m.re.MatchString(name)
}

// MatchAll filters the catalog, returning the order-preserving
// subsequence of names the pattern matches.
func (m *Matcher) MatchAll(catalog []string) []string {
	matched := make([]string, 0)
	for _, name := range catalog {
		if m.Match(name) {
			matched = append(matched, name)
		}
	}
	return matched
}
