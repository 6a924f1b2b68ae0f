package scene

// EmittedPanel is the rendering-facing representation of a panel. The
// embedded Panel keeps the authored narrative record untouched;
// RenderStart/RenderEnd are the derived pair actually handed to the
// external renderer, swapped relative to authoring order when the panel
// is a reversed reveal.
type EmittedPanel struct {
	Panel

	RenderStart string `json:"render_start"`
	RenderEnd   string `json:"render_end"`

	// ReversalFailed marks a reversed panel whose narration generation
	// failed this run. The panel stays in the scene, flagged, and is
	// excluded from rendering.
	ReversalFailed bool   `json:"reversal_failed,omitempty"`
	ReversalError  string `json:"reversal_error,omitempty"`
}

// Renderable reports whether the panel should be handed to the renderer.
func (p EmittedPanel) Renderable() bool {
	return !p.ReversalFailed
}

// EmittedScene is the terminal output of the pipeline for one scene.
// Once emitted it is never mutated.
type EmittedScene struct {
	SceneID              int            `json:"scene_id"`
	Location             string         `json:"location"`
	PreActionDescription string         `json:"pre_action_description,omitempty"`
	Panels               []EmittedPanel `json:"panels"`

	// Wrapped holds the scene rendered through a wrapping template when
	// the caller requested one, empty otherwise.
	Wrapped string `json:"wrapped,omitempty"`
}

// FailedPanels returns the indices of panels flagged reversal_failed.
func (s *EmittedScene) FailedPanels() []int {
	var failed []int
	for _, p := range s.Panels {
		if p.ReversalFailed {
			failed = append(failed, p.PanelIndex)
		}
	}
	return failed
}
