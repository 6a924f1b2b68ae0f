package reversal

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"storyboard/internal/scene"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNarrator lets tests script the narration backend.
type fakeNarrator struct {
	calls int32
	fn    func(motion, start, end string) (string, error)
}

func (f *fakeNarrator) GenerateReversedNarration(ctx context.Context, motion, start, end string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.fn != nil {
		return f.fn(motion, start, end)
	}
	return fmt.Sprintf("reversed view of: %s", motion), nil
}

func fastOptions() Options {
	return Options{
		PanelConcurrency: 3,
		MaxRetries:       1,
		RetryBackoff:     time.Millisecond,
		CallTimeout:      time.Second,
	}
}

func reversedScene(t *testing.T) scene.ValidatedScene {
	t.Helper()
	validated, err := scene.Validate(scene.Scene{
		SceneID:  7,
		Location: "EXT. CLIFF - DAWN",
		Panels: []scene.Panel{
			{
				PanelIndex:      1,
				VisualStart:     "fog fills the frame",
				VisualEnd:       "hedgehog holds a knife",
				MotionPrompt:    "hedgehog emerges from the fog",
				IsReversed:      true,
				LightsAndCamera: "slow push in",
				Duration:        7,
			},
			{
				PanelIndex:      2,
				VisualStart:     "waves crash",
				VisualEnd:       "gulls scatter",
				MotionPrompt:    "a wave breaks against the rocks",
				LightsAndCamera: "static wide",
				Duration:        6,
			},
		},
	})
	require.NoError(t, err)
	return validated
}

func TestSwapIsInvolution(t *testing.T) {
	rs, re := Swap("a", "b")
	assert.Equal(t, "b", rs)
	assert.Equal(t, "a", re)

	rs2, re2 := Swap(rs, re)
	assert.Equal(t, "a", rs2)
	assert.Equal(t, "b", re2)
}

func TestTransform(t *testing.T) {
	t.Run("reversed panel gets swapped render pair and narration", func(t *testing.T) {
		narrator := &fakeNarrator{}
		tr := NewTransformer(narrator, nil, fastOptions())

		emitted := tr.Transform(context.Background(), reversedScene(t))
		require.Len(t, emitted.Panels, 2)

		p := emitted.Panels[0]
		assert.Equal(t, "hedgehog holds a knife", p.RenderStart)
		assert.Equal(t, "fog fills the frame", p.RenderEnd)
		assert.NotEmpty(t, p.MotionPromptReversed)
		assert.False(t, p.ReversalFailed)

		// Authored narrative fields stay untouched
		assert.Equal(t, "fog fills the frame", p.VisualStart)
		assert.Equal(t, "hedgehog holds a knife", p.VisualEnd)
		assert.Equal(t, "hedgehog emerges from the fog", p.MotionPrompt)
	})

	t.Run("forward panel passes through unchanged", func(t *testing.T) {
		narrator := &fakeNarrator{}
		tr := NewTransformer(narrator, nil, fastOptions())

		emitted := tr.Transform(context.Background(), reversedScene(t))
		p := emitted.Panels[1]
		assert.Equal(t, "waves crash", p.RenderStart)
		assert.Equal(t, "gulls scatter", p.RenderEnd)
		assert.Empty(t, p.MotionPromptReversed)

		// Only the reversed panel triggered a backend call
		assert.Equal(t, int32(1), atomic.LoadInt32(&narrator.calls))
	})

	t.Run("pre-populated narration skips the call", func(t *testing.T) {
		narrator := &fakeNarrator{}
		tr := NewTransformer(narrator, nil, fastOptions())

		raw := reversedScene(t).Scene()
		raw.Panels[0].MotionPromptReversed = "already narrated"
		validated, err := scene.Validate(raw)
		require.NoError(t, err)

		emitted := tr.Transform(context.Background(), validated)
		assert.Equal(t, "already narrated", emitted.Panels[0].MotionPromptReversed)
		assert.Equal(t, int32(0), atomic.LoadInt32(&narrator.calls))

		// Render pair is still swapped
		assert.Equal(t, "hedgehog holds a knife", emitted.Panels[0].RenderStart)
	})

	t.Run("failed call flags the panel, scene still emits", func(t *testing.T) {
		narrator := &fakeNarrator{fn: func(_, _, _ string) (string, error) {
			return "", errors.New("backend exploded")
		}}
		tr := NewTransformer(narrator, nil, fastOptions())

		emitted := tr.Transform(context.Background(), reversedScene(t))
		require.Len(t, emitted.Panels, 2)

		p := emitted.Panels[0]
		assert.True(t, p.ReversalFailed)
		assert.Contains(t, p.ReversalError, "backend exploded")
		assert.Empty(t, p.MotionPromptReversed)

		// The forward panel is unaffected
		assert.False(t, emitted.Panels[1].ReversalFailed)
		assert.Equal(t, []int{1}, emitted.FailedPanels())
	})

	t.Run("transient error is retried then succeeds", func(t *testing.T) {
		var attempt int32
		narrator := &fakeNarrator{fn: func(motion, _, _ string) (string, error) {
			if atomic.AddInt32(&attempt, 1) == 1 {
				return "", errors.New("503 service unavailable")
			}
			return "recovered: " + motion, nil
		}}
		tr := NewTransformer(narrator, nil, fastOptions())

		emitted := tr.Transform(context.Background(), reversedScene(t))
		p := emitted.Panels[0]
		assert.False(t, p.ReversalFailed)
		assert.Equal(t, "recovered: hedgehog emerges from the fog", p.MotionPromptReversed)
		assert.Equal(t, int32(2), atomic.LoadInt32(&attempt))
	})

	t.Run("non-transient error is not retried", func(t *testing.T) {
		narrator := &fakeNarrator{fn: func(_, _, _ string) (string, error) {
			return "", errors.New("400 invalid argument")
		}}
		tr := NewTransformer(narrator, nil, fastOptions())

		emitted := tr.Transform(context.Background(), reversedScene(t))
		assert.True(t, emitted.Panels[0].ReversalFailed)
		assert.Equal(t, int32(1), atomic.LoadInt32(&narrator.calls))
	})

	t.Run("call timeout marks reversal_failed", func(t *testing.T) {
		narrator := &fakeNarrator{fn: func(_, _, _ string) (string, error) {
			time.Sleep(50 * time.Millisecond)
			return "", context.DeadlineExceeded
		}}
		opts := fastOptions()
		opts.CallTimeout = 5 * time.Millisecond
		opts.MaxRetries = 0
		tr := NewTransformer(narrator, nil, opts)

		emitted := tr.Transform(context.Background(), reversedScene(t))
		p := emitted.Panels[0]
		assert.True(t, p.ReversalFailed)
		assert.Contains(t, p.ReversalError, "deadline")
	})
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(errors.New("HTTP 503 Service Unavailable")))
	assert.True(t, isTransient(errors.New("context deadline exceeded")))
	assert.True(t, isTransient(errors.New("500 Internal Server Error")))
	assert.False(t, isTransient(errors.New("invalid api key")))
	assert.False(t, isTransient(nil))
}

func TestGenerationError(t *testing.T) {
	inner := errors.New("boom")
	err := &GenerationError{PanelIndex: 3, Attempts: 2, Err: inner}
	assert.Contains(t, err.Error(), "panel 3")
	assert.ErrorIs(t, err, inner)
}
