package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validScene() Scene {
	return Scene{
		SceneID:  1,
		Location: "INT. LIGHTHOUSE - NIGHT",
		Panels: []Panel{
			{
				PanelIndex:      1,
				VisualStart:     "fog fills the frame",
				VisualEnd:       "hedgehog holds a knife",
				MotionPrompt:    "hedgehog emerges from the fog",
				LightsAndCamera: "slow dolly in, single hard key light",
				Duration:        7,
			},
			{
				PanelIndex:      2,
				VisualStart:     "knife glints",
				VisualEnd:       "blackout",
				MotionPrompt:    "the light dies",
				LightsAndCamera: "static wide",
				Duration:        6,
			},
		},
	}
}

func TestValidateAccepts(t *testing.T) {
	s := validScene()
	validated, err := Validate(s)
	require.NoError(t, err)

	// Returned unchanged, just typed as validated
	assert.Equal(t, s, validated.Scene())
}

func TestValidateRejects(t *testing.T) {
	t.Run("duplicate panel_index", func(t *testing.T) {
		s := validScene()
		s.Panels[0].PanelIndex = 3
		s.Panels[1].PanelIndex = 3

		_, err := Validate(s)
		var se *SchemaError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, 1, se.SceneID)

		found := false
		for _, p := range se.Problems {
			if p.Field == "panel_index" && p.Message == "duplicate index" {
				found = true
			}
		}
		assert.True(t, found, "expected a duplicate index problem, got %v", se.Problems)
	})

	t.Run("non-increasing panel_index", func(t *testing.T) {
		s := validScene()
		s.Panels[1].PanelIndex = 1
		_, err := Validate(s)
		assert.Error(t, err)
	})

	t.Run("zero duration", func(t *testing.T) {
		s := validScene()
		s.Panels[0].Duration = 0

		_, err := Validate(s)
		var se *SchemaError
		require.ErrorAs(t, err, &se)
		require.Len(t, se.Problems, 1)
		assert.Equal(t, "duration", se.Problems[0].Field)
		assert.Equal(t, 1, se.Problems[0].PanelIndex)
	})

	t.Run("negative duration", func(t *testing.T) {
		s := validScene()
		s.Panels[0].Duration = -2
		_, err := Validate(s)
		assert.Error(t, err)
	})

	t.Run("missing required fields", func(t *testing.T) {
		s := validScene()
		s.Panels[0].VisualStart = ""
		s.Panels[0].MotionPrompt = "  "

		_, err := Validate(s)
		var se *SchemaError
		require.ErrorAs(t, err, &se)
		assert.Len(t, se.Problems, 2)
	})

	t.Run("reversed prompt on non-reversed panel", func(t *testing.T) {
		s := validScene()
		s.Panels[0].IsReversed = false
		s.Panels[0].MotionPromptReversed = "fog swallows the hedgehog"

		_, err := Validate(s)
		var se *SchemaError
		require.ErrorAs(t, err, &se)
		require.Len(t, se.Problems, 1)
		assert.Equal(t, "motion_prompt_reversed", se.Problems[0].Field)
	})

	t.Run("reversed panel may arrive pre-narrated", func(t *testing.T) {
		s := validScene()
		s.Panels[0].IsReversed = true
		s.Panels[0].MotionPromptReversed = "already narrated"

		_, err := Validate(s)
		assert.NoError(t, err)
	})

	t.Run("empty scene", func(t *testing.T) {
		s := validScene()
		s.Panels = nil
		_, err := Validate(s)
		assert.Error(t, err)
	})

	t.Run("missing location", func(t *testing.T) {
		s := validScene()
		s.Location = ""
		_, err := Validate(s)
		assert.Error(t, err)
	})

	t.Run("problems aggregate across panels", func(t *testing.T) {
		s := validScene()
		s.Panels[0].Duration = 0
		s.Panels[1].VisualEnd = ""

		_, err := Validate(s)
		var se *SchemaError
		require.ErrorAs(t, err, &se)
		assert.Len(t, se.Problems, 2)
	})
}

func TestEmittedSceneFailedPanels(t *testing.T) {
	s := EmittedScene{
		Panels: []EmittedPanel{
			{Panel: Panel{PanelIndex: 1}},
			{Panel: Panel{PanelIndex: 2}, ReversalFailed: true},
			{Panel: Panel{PanelIndex: 3}, ReversalFailed: true},
		},
	}
	assert.Equal(t, []int{2, 3}, s.FailedPanels())
	assert.True(t, s.Panels[0].Renderable())
	assert.False(t, s.Panels[1].Renderable())
}
