package template

import (
	"fmt"
	"sort"
	"strings"

	"storyboard/internal/logging"
)

// Store holds named templates. It is read-only after construction, so it
// is safe for concurrent use without synchronization.
type Store struct {
	templates map[string]*Template
}

// NewStore builds a store from template definitions. Duplicate IDs and
// empty bodies are construction errors.
func NewStore(templates []*Template) (*Store, error) {
	byID := make(map[string]*Template, len(templates))
	for _, t := range templates {
		if t.ID == "" {
			return nil, fmt.Errorf("template with empty id")
		}
		if strings.TrimSpace(t.Body) == "" {
			return nil, fmt.Errorf("template %q has an empty body", t.ID)
		}
		if _, exists := byID[t.ID]; exists {
			return nil, fmt.Errorf("duplicate template id %q", t.ID)
		}
		byID[t.ID] = t
	}

	logging.TemplateDebug("Store built with %d templates", len(byID))

	return &Store{templates: byID}, nil
}

// Get returns the template with the given ID.
func (s *Store) Get(id string) (*Template, error) {
	t, ok := s.templates[id]
	if !ok {
		return nil, &UnknownTemplateError{ID: id}
	}
	return t, nil
}

// IDs returns the sorted template IDs in the store.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.templates))
	for id := range s.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of templates in the store.
func (s *Store) Len() int {
	return len(s.templates)
}

// Resolve substitutes placeholder values into the template body.
// For each placeholder: value = overrides[name] if present, else the
// template default. Override keys must be a subset of the template's
// placeholder set. The result is verified to contain no remaining tokens.
// Pure function of its inputs.
func (s *Store) Resolve(templateID string, overrides map[string]string) (string, error) {
	timer := logging.StartTimer(logging.CategoryTemplate, "Store.Resolve")
	defer timer.Stop()

	t, err := s.Get(templateID)
	if err != nil {
		return "", err
	}

	placeholders := t.Placeholders()
	placeholderSet := make(map[string]bool, len(placeholders))
	for _, name := range placeholders {
		placeholderSet[name] = true
	}

	// Reject override keys outside the placeholder set. Sorted for a
	// deterministic error when several keys are wrong.
	var unknown []string
	for name := range overrides {
		if !placeholderSet[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return "", &UnknownPlaceholderError{TemplateID: templateID, Name: unknown[0]}
	}

	result := t.Body
	for _, name := range placeholders {
		value, ok := overrides[name]
		if !ok {
			value, ok = t.Defaults[name]
		}
		if !ok {
			return "", &MissingPlaceholderValueError{TemplateID: templateID, Name: name}
		}
		result = strings.ReplaceAll(result, "{{"+name+"}}", value)
	}

	// Post-substitution check: a substituted value may itself have carried
	// a token, or the default table may name a token the body spells
	// differently. Either way the output must be token-free.
	if residual := placeholderPattern.FindAllString(result, -1); len(residual) > 0 {
		seen := make(map[string]bool, len(residual))
		var tokens []string
		for _, tok := range residual {
			if !seen[tok] {
				seen[tok] = true
				tokens = append(tokens, tok)
			}
		}
		sort.Strings(tokens)
		return "", &UnresolvedTokenError{TemplateID: templateID, Tokens: tokens}
	}

	logging.TemplateDebug("Resolved %q: %d placeholders, %d overrides, %d chars",
		templateID, len(placeholders), len(overrides), len(result))

	return result, nil
}
