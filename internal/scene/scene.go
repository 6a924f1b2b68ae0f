// Package scene defines the structured scene/panel records that flow
// through the storyboard pipeline, and the schema validator gating them.
//
// A Panel is a single keyframe-pair unit of roughly 6-8 seconds of
// eventual video. A Scene is an ordered sequence of panels sharing a
// location. Field names follow the authoring schema of the upstream
// scene-breakdown step.
package scene

import (
	"encoding/json"
	"fmt"
	"os"
)

// Panel is the authored, always-chronological record of one keyframe pair.
// VisualStart/VisualEnd/MotionPrompt describe what happens in narrative
// order regardless of IsReversed; render-order concerns live on
// EmittedPanel.
type Panel struct {
	PanelIndex           int      `json:"panel_index"`
	VisualStart          string   `json:"visual_start"`
	VisualEnd            string   `json:"visual_end"`
	MotionPrompt         string   `json:"motion_prompt"`
	IsReversed           bool     `json:"is_reversed"`
	MotionPromptReversed string   `json:"motion_prompt_reversed"`
	LightsAndCamera      string   `json:"lights_and_camera"`
	Dialogue             string   `json:"dialogue"`
	Caption              string   `json:"caption,omitempty"`
	Duration             float64  `json:"duration"`
	References           []string `json:"references,omitempty"`
}

// Scene is an ordered sequence of panels sharing a location/context.
// Panel ordering is playback order.
type Scene struct {
	SceneID              int     `json:"scene_id"`
	Location             string  `json:"location"`
	PreActionDescription string  `json:"pre_action_description,omitempty"`
	Panels               []Panel `json:"panels"`
}

// Batch is the root object of a scene metadata file.
type Batch struct {
	Scenes []Scene `json:"scenes"`
}

// LoadBatch reads a scene metadata JSON file.
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}
	var batch Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to parse scene file: %w", err)
	}
	return &batch, nil
}

// ValidatedScene is a Scene that passed schema validation. It can only be
// constructed by Validate, gating entry into the reversal transformer.
type ValidatedScene struct {
	scene Scene
}

// Scene returns the underlying validated scene record.
func (v ValidatedScene) Scene() Scene {
	return v.scene
}
