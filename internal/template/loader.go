package template

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"storyboard/internal/logging"
)

// LoadCorpus builds a Store from the embedded corpus, with definitions
// from customDir (when non-empty) replacing embedded templates of the
// same ID. Mirrors the authoring workflow of keeping a custom prompt
// directory alongside the stock one.
func LoadCorpus(customDir string) (*Store, error) {
	base, err := LoadEmbeddedCorpus()
	if err != nil {
		return nil, err
	}
	if customDir == "" {
		return base, nil
	}

	custom, err := loadDir(customDir)
	if err != nil {
		return nil, err
	}
	if len(custom) == 0 {
		logging.Template("No custom templates in %s, using embedded corpus", customDir)
		return base, nil
	}

	merged := make([]*Template, 0, base.Len())
	overridden := make(map[string]bool, len(custom))
	for _, t := range custom {
		overridden[t.ID] = true
	}
	for _, id := range base.IDs() {
		if overridden[id] {
			continue
		}
		t, _ := base.Get(id)
		merged = append(merged, t)
	}
	merged = append(merged, custom...)

	logging.Template("Loaded corpus with %d custom overrides from %s", len(custom), customDir)

	return NewStore(merged)
}

// loadDir reads every *.yaml template definition in a directory.
func loadDir(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read template directory %s: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		t, err := parseDefinition(data)
		if err != nil {
			return nil, fmt.Errorf("invalid template definition %s: %w", path, err)
		}
		templates = append(templates, t)
	}

	return templates, nil
}
