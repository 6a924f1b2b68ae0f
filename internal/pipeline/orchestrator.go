// Package pipeline sequences the storyboard stages for a batch of
// scenes: validate, reversal transform, optional template wrapping,
// emission. Scenes are independent units of work; one scene's failure
// never aborts the run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"storyboard/internal/logging"
	"storyboard/internal/reversal"
	"storyboard/internal/scene"
	"storyboard/internal/template"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SceneError is a scene's terminal failure, attached to that scene only.
type SceneError struct {
	SceneID int
	Stage   string // validate, transform, wrap
	Err     error
}

func (e *SceneError) Error() string {
	return fmt.Sprintf("scene %d failed at %s: %v", e.SceneID, e.Stage, e.Err)
}

func (e *SceneError) Unwrap() error {
	return e.Err
}

// SceneResult is the per-scene outcome of a run: an emitted scene or a
// scene error, never both.
type SceneResult struct {
	SceneID int
	Emitted *scene.EmittedScene
	Err     *SceneError
}

// OK reports whether the scene emitted.
func (r SceneResult) OK() bool {
	return r.Err == nil
}

// Run is the outcome of processing one batch.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []SceneResult
}

// ScenesFailed counts scenes that ended in a SceneError.
func (r *Run) ScenesFailed() int {
	n := 0
	for _, res := range r.Results {
		if !res.OK() {
			n++
		}
	}
	return n
}

// PanelsReversed counts panels that received a reversed narration.
func (r *Run) PanelsReversed() int {
	n := 0
	for _, res := range r.Results {
		if res.Emitted == nil {
			continue
		}
		for _, p := range res.Emitted.Panels {
			if p.IsReversed && !p.ReversalFailed {
				n++
			}
		}
	}
	return n
}

// PanelsFailed counts panels flagged reversal_failed across the run.
func (r *Run) PanelsFailed() int {
	n := 0
	for _, res := range r.Results {
		if res.Emitted == nil {
			continue
		}
		n += len(res.Emitted.FailedPanels())
	}
	return n
}

// Options configures one Process call.
type Options struct {
	// WrapTemplate names a store template to wrap each emitted scene in
	// (e.g. "imagery"). Empty disables wrapping.
	WrapTemplate string
}

// Orchestrator drives the per-scene pipeline under a bounded worker pool.
type Orchestrator struct {
	store       *template.Store
	transformer *reversal.Transformer
	workers     int
}

// New creates an orchestrator. workers bounds concurrent scenes.
func New(store *template.Store, transformer *reversal.Transformer, workers int) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		store:       store,
		transformer: transformer,
		workers:     workers,
	}
}

// Process runs the pipeline over a batch of raw scenes. Scenes are
// processed concurrently (no cross-scene state); results come back in
// input order. A failure in one scene does not prevent processing of the
// others.
func (o *Orchestrator) Process(ctx context.Context, scenes []scene.Scene, opts Options) *Run {
	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Results:   make([]SceneResult, len(scenes)),
	}

	logging.Pipeline("Run %s: processing %d scene(s), %d worker(s)", run.ID, len(scenes), o.workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for i, s := range scenes {
		g.Go(func() error {
			run.Results[i] = o.processScene(gctx, s, opts)
			return nil
		})
	}
	g.Wait() // workers never return errors; failures live in Results

	run.FinishedAt = time.Now()

	logging.Pipeline("Run %s: done in %v - scenes ok=%d failed=%d, panels reversed=%d failed=%d",
		run.ID, run.FinishedAt.Sub(run.StartedAt),
		len(scenes)-run.ScenesFailed(), run.ScenesFailed(),
		run.PanelsReversed(), run.PanelsFailed())

	return run
}

// processScene runs validate -> transform -> wrap for a single scene.
func (o *Orchestrator) processScene(ctx context.Context, s scene.Scene, opts Options) SceneResult {
	timer := logging.StartTimer(logging.CategoryPipeline, fmt.Sprintf("processScene(%d)", s.SceneID))
	defer timer.Stop()

	validated, err := scene.Validate(s)
	if err != nil {
		logging.PipelineError("Scene %d rejected by validator: %v", s.SceneID, err)
		return SceneResult{
			SceneID: s.SceneID,
			Err:     &SceneError{SceneID: s.SceneID, Stage: "validate", Err: err},
		}
	}

	emitted := o.transformer.Transform(ctx, validated)

	if opts.WrapTemplate != "" {
		wrapped, err := o.wrapScene(opts.WrapTemplate, &emitted)
		if err != nil {
			logging.PipelineError("Scene %d wrap failed: %v", s.SceneID, err)
			return SceneResult{
				SceneID: s.SceneID,
				Err:     &SceneError{SceneID: s.SceneID, Stage: "wrap", Err: err},
			}
		}
		emitted.Wrapped = wrapped
	}

	return SceneResult{SceneID: s.SceneID, Emitted: &emitted}
}
