package rules

import (
	"errors"
	"fmt"
	"strings"
)

// Resolution is the result of resolving a filename.
type Resolution struct {
	Options string
	// Rule is the name of the matching rule, empty for the default.
	Rule string
}

// Args splits Options into command-line arguments.
func (r Resolution) Args() []string {
	return strings.Fields(r.Options)
}

// Resolver evaluates ordered rules with a mandatory default. Resolve is total.
type Resolver struct {
	rules    []Rule
	patterns []string
	fallback string
}

// NewResolver validates rules and returns a resolver falling back to fallback.
func NewResolver(fallback string, rules ...Rule) (*Resolver, error) {
	var errs []error
	patterns := make([]string, len(rules))
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		patterns[i] = fold(r.Pattern)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid rules: %w", errors.Join(errs...))
	}
	return &Resolver{rules: append([]Rule(nil), rules...), patterns: patterns, fallback: fallback}, nil
}

// Layer returns a resolver that evaluates rules before the receiver's rules
// and keeps the receiver's default. Asset-set rules layer over compiler rules.
func (rs *Resolver) Layer(rules ...Rule) (*Resolver, error) {
	combined := make([]Rule, 0, len(rules)+len(rs.rules))
	combined = append(combined, rules...)
	combined = append(combined, rs.rules...)
	return NewResolver(rs.fallback, combined...)
}

// Resolve returns the options of the first matching rule, or the default.
func (rs *Resolver) Resolve(filename string) Resolution {
	name := fold(filename)
	for i, r := range rs.rules {
		if r.matchFolded(name, rs.patterns[i]) {
			return Resolution{Options: r.Options, Rule: r.Name}
		}
	}
	return Resolution{Options: rs.fallback}
}

// Default returns the fallback options.
func (rs *Resolver) Default() string { return rs.fallback }

// Len returns the number of rules, excluding the default.
func (rs *Resolver) Len() int { return len(rs.rules) }
