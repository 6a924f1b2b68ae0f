package scene

import (
	"fmt"
	"strings"

	"storyboard/internal/logging"
)

// Problem is a single schema violation, attached to the smallest failing
// unit. PanelIndex is -1 for scene-level problems.
type Problem struct {
	PanelIndex int
	Field      string
	Message    string
}

func (p Problem) String() string {
	if p.PanelIndex < 0 {
		return fmt.Sprintf("%s: %s", p.Field, p.Message)
	}
	return fmt.Sprintf("panel %d, %s: %s", p.PanelIndex, p.Field, p.Message)
}

// SchemaError rejects a whole scene; the caller must fix the authoring
// input. It aggregates every violation found rather than stopping at the
// first, so one round trip fixes them all.
type SchemaError struct {
	SceneID  int
	Problems []Problem
}

func (e *SchemaError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.String()
	}
	return fmt.Sprintf("scene %d schema invalid: %s", e.SceneID, strings.Join(msgs, "; "))
}

// Validate checks a scene against the required field set. On success the
// scene is returned unchanged but typed as validated.
func Validate(s Scene) (ValidatedScene, error) {
	timer := logging.StartTimer(logging.CategoryScene, "Validate")
	defer timer.Stop()

	var problems []Problem

	if strings.TrimSpace(s.Location) == "" {
		problems = append(problems, Problem{PanelIndex: -1, Field: "location", Message: "required"})
	}
	if len(s.Panels) == 0 {
		problems = append(problems, Problem{PanelIndex: -1, Field: "panels", Message: "scene has no panels"})
	}

	seen := make(map[int]bool, len(s.Panels))
	lastIndex := 0
	for i, p := range s.Panels {
		if seen[p.PanelIndex] {
			problems = append(problems, Problem{
				PanelIndex: p.PanelIndex,
				Field:      "panel_index",
				Message:    "duplicate index",
			})
		}
		seen[p.PanelIndex] = true

		if i > 0 && p.PanelIndex <= lastIndex {
			problems = append(problems, Problem{
				PanelIndex: p.PanelIndex,
				Field:      "panel_index",
				Message:    fmt.Sprintf("must be strictly increasing (previous %d)", lastIndex),
			})
		}
		lastIndex = p.PanelIndex

		problems = append(problems, validatePanel(p)...)
	}

	if len(problems) > 0 {
		err := &SchemaError{SceneID: s.SceneID, Problems: problems}
		logging.Get(logging.CategoryScene).Warn("Scene %d rejected: %d problems", s.SceneID, len(problems))
		return ValidatedScene{}, err
	}

	logging.Get(logging.CategoryScene).Debug("Scene %d validated: %d panels", s.SceneID, len(s.Panels))

	return ValidatedScene{scene: s}, nil
}

// validatePanel checks the per-panel required field set.
func validatePanel(p Panel) []Problem {
	var problems []Problem

	required := []struct {
		field string
		value string
	}{
		{"visual_start", p.VisualStart},
		{"visual_end", p.VisualEnd},
		{"motion_prompt", p.MotionPrompt},
		{"lights_and_camera", p.LightsAndCamera},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			problems = append(problems, Problem{
				PanelIndex: p.PanelIndex,
				Field:      r.field,
				Message:    "required",
			})
		}
	}

	if p.Duration <= 0 {
		problems = append(problems, Problem{
			PanelIndex: p.PanelIndex,
			Field:      "duration",
			Message:    fmt.Sprintf("must be positive, got %v", p.Duration),
		})
	}

	// A populated reversed prompt on a non-reversed panel signals an
	// authoring or pipeline-ordering bug upstream.
	if !p.IsReversed && p.MotionPromptReversed != "" {
		problems = append(problems, Problem{
			PanelIndex: p.PanelIndex,
			Field:      "motion_prompt_reversed",
			Message:    "must be empty when is_reversed is false",
		})
	}

	return problems
}
