// Package template - embedded corpus loader for baked-in templates.
// go:embed bakes the template definitions into the binary at compile
// time, eliminating filesystem dependencies for the built-in corpus.
package template

import (
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"storyboard/internal/logging"

	"gopkg.in/yaml.v3"
)

// embeddedCorpus contains all YAML files under corpus/ baked into the binary.
//
//go:embed corpus
var embeddedCorpus embed.FS

// yamlTemplateDefinition matches the YAML structure in corpus/*.yaml.
type yamlTemplateDefinition struct {
	ID       string            `yaml:"id"`
	Body     string            `yaml:"body"`
	Defaults map[string]string `yaml:"defaults"`
}

// LoadEmbeddedCorpus builds a Store from the baked-in template
// definitions. Called once at startup; the resulting store is immutable.
func LoadEmbeddedCorpus() (*Store, error) {
	timer := logging.StartTimer(logging.CategoryTemplate, "LoadEmbeddedCorpus")
	defer timer.Stop()

	var templates []*Template

	err := fs.WalkDir(embeddedCorpus, "corpus", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		data, readErr := embeddedCorpus.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("failed to read embedded file %s: %w", path, readErr)
		}

		t, parseErr := parseDefinition(data)
		if parseErr != nil {
			return fmt.Errorf("invalid template definition %s: %w", path, parseErr)
		}

		templates = append(templates, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk embedded corpus: %w", err)
	}

	store, err := NewStore(templates)
	if err != nil {
		return nil, err
	}

	logging.Template("Loaded %d templates from embedded corpus", store.Len())

	return store, nil
}

// parseDefinition parses a single YAML template definition.
func parseDefinition(data []byte) (*Template, error) {
	var def yamlTemplateDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if def.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	if strings.TrimSpace(def.Body) == "" {
		return nil, fmt.Errorf("template %q: missing body", def.ID)
	}
	return &Template{
		ID:       def.ID,
		Body:     def.Body,
		Defaults: def.Defaults,
	}, nil
}
