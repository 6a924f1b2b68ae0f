package reversal

import (
	"context"
	"time"

	"storyboard/internal/logging"
	"storyboard/internal/scene"

	"golang.org/x/sync/semaphore"
)

// Options configures transformer behavior.
type Options struct {
	// PanelConcurrency bounds concurrent narration calls within one scene.
	PanelConcurrency int

	// MaxRetries is the number of additional attempts after the first
	// narration call fails with a transient error.
	MaxRetries int

	// RetryBackoff is the base backoff; attempt i waits RetryBackoff << (i-1).
	RetryBackoff time.Duration

	// CallTimeout bounds each individual narration call.
	CallTimeout time.Duration
}

// DefaultOptions returns the stock transformer settings.
func DefaultOptions() Options {
	return Options{
		PanelConcurrency: 3,
		MaxRetries:       3,
		RetryBackoff:     time.Second,
		CallTimeout:      90 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	if o.PanelConcurrency < 1 {
		o.PanelConcurrency = 1
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = time.Second
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 90 * time.Second
	}
	return o
}

// Transformer applies the reverse-reveal transform to validated scenes.
// The keyframe swap is a pure, total function of the authored pair; the
// narration call is the sole source of non-determinism and failure here.
type Transformer struct {
	narrator Narrator
	limiter  *RateLimiter // nil disables rate limiting
	opts     Options
}

// NewTransformer creates a transformer. limiter may be nil.
func NewTransformer(narrator Narrator, limiter *RateLimiter, opts Options) *Transformer {
	return &Transformer{
		narrator: narrator,
		limiter:  limiter,
		opts:     opts.withDefaults(),
	}
}

// Swap derives the render-facing keyframe pair from the authored pair.
// Applying it twice restores the original order.
func Swap(visualStart, visualEnd string) (renderStart, renderEnd string) {
	return visualEnd, visualStart
}

// Transform produces the emitted panels for a validated scene. Authored
// fields are never mutated; reversed panels get a swapped render pair and
// a generated reversed narration. Narration calls for distinct panels run
// concurrently, bounded by PanelConcurrency, and results are reassembled
// in panel order. A failed call flags the panel reversal_failed; it never
// fails the scene.
func (t *Transformer) Transform(ctx context.Context, validated scene.ValidatedScene) scene.EmittedScene {
	timer := logging.StartTimer(logging.CategoryReversal, "Transform")
	defer timer.Stop()

	s := validated.Scene()

	emitted := scene.EmittedScene{
		SceneID:              s.SceneID,
		Location:             s.Location,
		PreActionDescription: s.PreActionDescription,
		Panels:               make([]scene.EmittedPanel, len(s.Panels)),
	}

	sem := semaphore.NewWeighted(int64(t.opts.PanelConcurrency))
	done := make(chan struct{})
	pending := 0

	for i, p := range s.Panels {
		ep := scene.EmittedPanel{Panel: p}

		if !p.IsReversed {
			ep.RenderStart = p.VisualStart
			ep.RenderEnd = p.VisualEnd
			emitted.Panels[i] = ep
			continue
		}

		ep.RenderStart, ep.RenderEnd = Swap(p.VisualStart, p.VisualEnd)

		// At-most-once per panel per run: an already-populated reversed
		// prompt skips the call entirely.
		if p.MotionPromptReversed != "" {
			logging.ReversalDebug("Scene %d panel %d: narration already populated, skipping call",
				s.SceneID, p.PanelIndex)
			emitted.Panels[i] = ep
			continue
		}

		pending++
		go func(slot int, panel scene.Panel, ep scene.EmittedPanel) {
			defer func() { done <- struct{}{} }()

			if err := sem.Acquire(ctx, 1); err != nil {
				ep.ReversalFailed = true
				ep.ReversalError = (&GenerationError{PanelIndex: panel.PanelIndex, Attempts: 0, Err: err}).Error()
				emitted.Panels[slot] = ep
				return
			}
			defer sem.Release(1)

			narration, err := t.narrate(ctx, s.SceneID, panel)
			if err != nil {
				logging.ReversalError("Scene %d panel %d: %v", s.SceneID, panel.PanelIndex, err)
				ep.ReversalFailed = true
				ep.ReversalError = err.Error()
			} else {
				ep.MotionPromptReversed = narration
			}
			emitted.Panels[slot] = ep
		}(i, p, ep)
	}

	for pending > 0 {
		<-done
		pending--
	}

	if failed := emitted.FailedPanels(); len(failed) > 0 {
		logging.ReversalWarn("Scene %d: %d panel(s) failed reversal: %v", s.SceneID, len(failed), failed)
	}

	return emitted
}

// narrate runs the narration call with timeout, rate limiting and bounded
// retry with exponential backoff on transient errors.
func (t *Transformer) narrate(ctx context.Context, sceneID int, p scene.Panel) (string, error) {
	logging.Reversal("Scene %d panel %d: generating reversed narration", sceneID, p.PanelIndex)

	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= t.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := t.opts.RetryBackoff << uint(attempt-1)
			logging.ReversalDebug("Scene %d panel %d: retry %d/%d in %v",
				sceneID, p.PanelIndex, attempt, t.opts.MaxRetries, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", &GenerationError{PanelIndex: p.PanelIndex, Attempts: attempts, Err: ctx.Err()}
			}
		}

		if t.limiter != nil {
			if err := t.limiter.Acquire(ctx); err != nil {
				return "", &GenerationError{PanelIndex: p.PanelIndex, Attempts: attempts, Err: err}
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, t.opts.CallTimeout)
		narration, err := t.narrator.GenerateReversedNarration(callCtx, p.MotionPrompt, p.VisualStart, p.VisualEnd)
		cancel()
		attempts++

		if err == nil {
			return narration, nil
		}
		lastErr = err

		if ctx.Err() != nil || !isTransient(err) {
			break
		}
	}

	return "", &GenerationError{PanelIndex: p.PanelIndex, Attempts: attempts, Err: lastErr}
}
