package pipeline

import (
	"fmt"
	"strings"

	"storyboard/internal/scene"
)

// wrapScene renders an emitted scene through a wrapping template from the
// store. Panels flagged reversal_failed are excluded from the panel block,
// matching their exclusion from rendering.
func (o *Orchestrator) wrapScene(templateID string, emitted *scene.EmittedScene) (string, error) {
	return o.store.Resolve(templateID, map[string]string{
		"location":   emitted.Location,
		"pre_action": emitted.PreActionDescription,
		"panels":     buildPanelBlock(emitted),
	})
}

// buildPanelBlock formats the renderable panels of a scene as the text
// block substituted into the wrapping template. Render-order fields are
// used throughout, so reversed panels come out already swapped.
func buildPanelBlock(emitted *scene.EmittedScene) string {
	var b strings.Builder
	for _, p := range emitted.Panels {
		if !p.Renderable() {
			continue
		}
		fmt.Fprintf(&b, "### Panel %d", p.PanelIndex)
		if p.IsReversed {
			b.WriteString(" (reversed reveal)")
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "START: %s\n", p.RenderStart)
		fmt.Fprintf(&b, "END: %s\n", p.RenderEnd)
		motion := p.MotionPrompt
		if p.IsReversed && p.MotionPromptReversed != "" {
			motion = p.MotionPromptReversed
		}
		fmt.Fprintf(&b, "MOTION: %s\n", motion)
		if p.LightsAndCamera != "" {
			fmt.Fprintf(&b, "LIGHTS & CAMERA: %s\n", p.LightsAndCamera)
		}
		if p.Dialogue != "" {
			fmt.Fprintf(&b, "DIALOGUE: %s\n", p.Dialogue)
		}
		fmt.Fprintf(&b, "DURATION: %gs\n", p.Duration)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
