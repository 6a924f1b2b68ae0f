// Package template implements the prompt template store and placeholder
// resolver. Templates are text bodies with {{name}} tokens and a
// default-value table per template. The store is immutable once built.
package template

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// placeholderPattern matches {{name}} tokens in a template body.
var placeholderPattern = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

// Template is a named prompt body with a default-value table.
type Template struct {
	ID       string
	Body     string
	Defaults map[string]string
}

// Placeholders returns the sorted set of placeholder names referenced in
// the body. Names appearing multiple times are returned once.
func (t *Template) Placeholders() []string {
	matches := placeholderPattern.FindAllStringSubmatch(t.Body, -1)
	seen := make(map[string]bool, len(matches))
	var names []string
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	sort.Strings(names)
	return names
}

// HasPlaceholder reports whether the body references the named token.
func (t *Template) HasPlaceholder(name string) bool {
	for _, p := range t.Placeholders() {
		if p == name {
			return true
		}
	}
	return false
}

// =============================================================================
// RESOLVER ERROR TAXONOMY
// =============================================================================
// All resolver errors reject the single Resolve call outright: they indicate
// a static authoring mismatch, not a runtime condition.

// UnknownTemplateError means the requested template ID is not in the store.
type UnknownTemplateError struct {
	ID string
}

func (e *UnknownTemplateError) Error() string {
	return fmt.Sprintf("unknown template %q", e.ID)
}

// UnknownPlaceholderError means an override key is not a placeholder of the
// template. Rejected rather than silently ignored to catch authoring typos.
type UnknownPlaceholderError struct {
	TemplateID string
	Name       string
}

func (e *UnknownPlaceholderError) Error() string {
	return fmt.Sprintf("template %q has no placeholder %q", e.TemplateID, e.Name)
}

// MissingPlaceholderValueError means a placeholder has neither an override
// nor a default.
type MissingPlaceholderValueError struct {
	TemplateID string
	Name       string
}

func (e *MissingPlaceholderValueError) Error() string {
	return fmt.Sprintf("template %q: no value for placeholder %q", e.TemplateID, e.Name)
}

// UnresolvedTokenError means tokens survived substitution. This catches
// mismatched placeholder names between body and default table.
type UnresolvedTokenError struct {
	TemplateID string
	Tokens     []string
}

func (e *UnresolvedTokenError) Error() string {
	return fmt.Sprintf("template %q: unresolved tokens after substitution: %s",
		e.TemplateID, strings.Join(e.Tokens, ", "))
}
