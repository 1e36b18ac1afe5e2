// Package rules resolves per-asset compiler options from ordered filename rules.
package rules

import (
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/cases"
)

// MatchKind selects how a rule pattern is compared with a filename.
type MatchKind string

const (
	MatchExact    MatchKind = "exact"
	MatchContains MatchKind = "contains"
	MatchGlob     MatchKind = "glob"
)

// Rule maps filenames matching Pattern to Options. Matching is
// case-insensitive using Unicode case folding.
type Rule struct {
	Name    string
	Kind    MatchKind
	Pattern string
	Options string
}

// Exact matches a whole filename.
func Exact(name, options string) Rule {
	return Rule{Name: name, Kind: MatchExact, Pattern: name, Options: options}
}

// Contains matches filenames containing sub.
func Contains(sub, options string) Rule {
	return Rule{Name: sub, Kind: MatchContains, Pattern: sub, Options: options}
}

// Glob matches filenames against a path.Match pattern.
func Glob(pattern, options string) Rule {
	return Rule{Name: pattern, Kind: MatchGlob, Pattern: pattern, Options: options}
}

func fold(s string) string {
	// Casers keep state and are not safe for concurrent use.
	return cases.Fold().String(s)
}

// Validate checks that the rule can be evaluated.
func (r Rule) Validate() error {
	switch r.Kind {
	case MatchExact, MatchContains:
		if r.Pattern == "" {
			return fmt.Errorf("rule %q: empty pattern", r.Name)
		}
	case MatchGlob:
		if _, err := path.Match(fold(r.Pattern), ""); err != nil {
			return fmt.Errorf("rule %q: %w", r.Name, err)
		}
	default:
		return fmt.Errorf("rule %q: unknown match kind %q", r.Name, r.Kind)
	}
	return nil
}

func (r Rule) matchFolded(name, pattern string) bool {
	switch r.Kind {
	case MatchExact:
		return name == pattern
	case MatchContains:
		return strings.Contains(name, pattern)
	case MatchGlob:
		ok, err := path.Match(pattern, name)
		return err == nil && ok
	}
	return false
}

// Matches reports whether filename satisfies the rule.
func (r Rule) Matches(filename string) bool {
	return r.matchFolded(fold(filename), fold(r.Pattern))
}
