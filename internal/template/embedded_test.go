package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedCorpus(t *testing.T) {
	store, err := LoadEmbeddedCorpus()
	require.NoError(t, err)

	expected := []string{"casting", "imagery", "reversal_narration", "scenery", "setting", "style"}
	assert.Equal(t, expected, store.IDs())
}

// Templates fall in two groups: fully-defaulted ones resolve with no
// overrides at all; the rest must fail with exactly the caller-supplied
// placeholders missing.
func TestEmbeddedTemplatesResolve(t *testing.T) {
	store, err := LoadEmbeddedCorpus()
	require.NoError(t, err)

	t.Run("fully defaulted", func(t *testing.T) {
		for _, id := range []string{"style", "casting", "scenery", "setting"} {
			out, err := store.Resolve(id, nil)
			require.NoError(t, err, "template %s", id)
			assert.NotEmpty(t, out)
		}
	})

	t.Run("imagery requires scene content", func(t *testing.T) {
		_, err := store.Resolve("imagery", nil)
		var mpe *MissingPlaceholderValueError
		require.ErrorAs(t, err, &mpe)

		out, err := store.Resolve("imagery", map[string]string{
			"location":   "INT. SERVER ROOM - NIGHT",
			"pre_action": "Red emergency lights strobe.",
			"panels":     "Panel 1: ...",
		})
		require.NoError(t, err)
		assert.Contains(t, out, "INT. SERVER ROOM - NIGHT")
		assert.Contains(t, out, "3x3 grids")
	})

	t.Run("reversal narration requires panel fields", func(t *testing.T) {
		out, err := store.Resolve("reversal_narration", map[string]string{
			"motion_prompt": "hedgehog emerges from the fog",
			"visual_start":  "fog fills the frame",
			"visual_end":    "hedgehog holds a knife",
		})
		require.NoError(t, err)
		assert.Contains(t, out, "REVERSE REVEAL")
		assert.Contains(t, out, "hedgehog holds a knife")
	})
}

func TestLoadCorpusCustomOverride(t *testing.T) {
	dir := t.TempDir()
	custom := "id: style\nbody: |\n  Custom style {{mood}}.\ndefaults:\n  mood: noir\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "style.yaml"), []byte(custom), 0644))

	store, err := LoadCorpus(dir)
	require.NoError(t, err)

	// Same template count, style replaced
	assert.Len(t, store.IDs(), 6)
	out, err := store.Resolve("style", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Custom style noir")
}

func TestLoadCorpusMissingDir(t *testing.T) {
	store, err := LoadCorpus(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Equal(t, 6, store.Len())
}

func TestParseDefinitionErrors(t *testing.T) {
	_, err := parseDefinition([]byte("body: x\n"))
	assert.Error(t, err) // missing id

	_, err = parseDefinition([]byte("id: x\n"))
	assert.Error(t, err) // missing body

	_, err = parseDefinition([]byte("id: ["))
	assert.Error(t, err) // bad yaml
}
