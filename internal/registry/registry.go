// Package registry holds the process-wide tag vocabulary. The registry is
// constructed once at startup from the tag-rule dataset and is immutable for
// the process lifetime, so it can be shared across concurrent pipeline runs
// without locking.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoRules indicates that the registry would be empty.
var ErrNoRules = errors.New("no tag rules provided")

// ErrDuplicateTag indicates two rules normalized to the same tag name.
var ErrDuplicateTag = errors.New("duplicate tag name")

// Rule describes one tag: its canonical name plus the human-readable metadata
// used to build tagging prompts.
type Rule struct {
	// Tag is the canonical UPPER_SNAKE tag name.
	Tag string

	// MainCategory and SubCategory are the source taxonomy levels the tag
	// was derived from.
	MainCategory string
	SubCategory  string

	// Description explains when the tag applies.
	Description string

	// Examples lists sample events the tag applies to.
	Examples []string
}

// DisplayName renders the rule's source categories for human consumption.
func (r Rule) DisplayName() string {
	if r.SubCategory == "" {
		return r.MainCategory
	}
	return r.MainCategory + " - " + r.SubCategory
}

// Registry is the immutable set of valid tags. All accessors return copies;
// the internal state is never exposed or mutated after New.
type Registry struct {
	rules map[string]Rule
	names []string
}

// New builds a registry from tag rules. Tag names are normalized before
// insertion. Returns an error on an empty rule set or a duplicate tag.
func New(rules []Rule) (*Registry, error) {
	if len(rules) == 0 {
		return nil, ErrNoRules
	}

	byTag := make(map[string]Rule, len(rules))
	for _, rule := range rules {
		tag := Normalize(rule.Tag)
		if tag == "" {
			return nil, fmt.Errorf("%w: rule for %q has empty tag", ErrNoRules, rule.DisplayName())
		}
		if _, ok := byTag[tag]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTag, tag)
		}
		rule.Tag = tag
		byTag[tag] = rule
	}

	names := make([]string, 0, len(byTag))
	for tag := range byTag {
		names = append(names, tag)
	}
	// Sorted names keep prompt construction and registry listings
	// deterministic across runs.
	sort.Strings(names)

	return &Registry{rules: byTag, names: names}, nil
}

// Contains reports whether tag is part of the vocabulary. The tag is
// normalized before lookup.
func (r *Registry) Contains(tag string) bool {
	_, ok := r.rules[Normalize(tag)]
	return ok
}

// Rule returns the rule for a tag and whether it exists.
func (r *Registry) Rule(tag string) (Rule, bool) {
	rule, ok := r.rules[Normalize(tag)]
	return rule, ok
}

// Names returns the sorted tag names as a fresh slice.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Rules returns all rules in tag-name order as a fresh slice.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.rules[name])
	}
	return out
}

// Len returns the number of tags in the vocabulary.
func (r *Registry) Len() int { return len(r.names) }

// Normalize converts a raw tag or category value to its canonical
// UPPER_SNAKE form: spaces, slashes, and hyphens become underscores.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer(" ", "_", "/", "_", "-", "_").Replace(s)
	return strings.ToUpper(s)
}
