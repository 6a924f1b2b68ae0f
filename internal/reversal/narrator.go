// Package reversal implements the reverse-reveal transform: panels
// flagged is_reversed get a swapped render-facing keyframe pair and a
// generated description of the reversed clip's playback.
package reversal

import (
	"context"
	"fmt"
	"strings"
)

// Narrator generates a forward-viewer-facing description of a reversed
// clip's playback from the authored chronological fields. Implementations
// call an external text-generation backend; any backend satisfies the
// contract. Calls must honor ctx cancellation.
type Narrator interface {
	GenerateReversedNarration(ctx context.Context, motionPrompt, visualStart, visualEnd string) (string, error)
}

// GenerationError is a per-panel recoverable failure of the narration
// call. The scene still emits with the panel flagged, never silently
// swapped or dropped.
type GenerationError struct {
	PanelIndex int
	Attempts   int
	Err        error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("panel %d: narration generation failed after %d attempt(s): %v",
		e.PanelIndex, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// isTransient reports whether an error is worth retrying: server-side
// 5xx conditions and timeouts, following the backend's documented
// retryable statuses.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"500", "503",
		"internal server error",
		"service unavailable",
		"unavailable",
		"deadline exceeded",
		"timeout",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
