package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"storyboard/internal/pipeline"
	"storyboard/internal/reversal"
	"storyboard/internal/scene"
	"storyboard/internal/store"
	"storyboard/internal/template"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	processOut       string
	processWrap      string
	processTemplates string
	processNoLedger  bool
	processWorkers   int
)

// processCmd runs the full pipeline over a scene metadata file.
var processCmd = &cobra.Command{
	Use:   "process [scenes.json]",
	Short: "Validate, reverse-transform and emit a batch of scenes",
	Long: `Reads a scene metadata JSON file, validates each scene against the
panel schema, applies the reversal transform (generating reversed motion
narrations through the configured backend), optionally wraps each scene
in a prompt template, and writes the emitted scenes as JSON.

Scenes are processed independently: a scene that fails validation is
reported and skipped, the rest of the batch still emits.

Example:
  storyboard process scenes.json --wrap imagery -o emitted.json`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVarP(&processOut, "out", "o", "", "Output file (default stdout)")
	processCmd.Flags().StringVar(&processWrap, "wrap", "", "Wrap each emitted scene in this template (e.g. imagery)")
	processCmd.Flags().StringVar(&processTemplates, "templates", "", "Directory of template overrides (*.yaml)")
	processCmd.Flags().BoolVar(&processNoLedger, "no-ledger", false, "Skip recording the run in the ledger")
	processCmd.Flags().IntVar(&processWorkers, "workers", 0, "Override scene worker count from config")
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	batch, err := scene.LoadBatch(args[0])
	if err != nil {
		return err
	}
	logger.Info("Loaded scene batch",
		zap.String("file", args[0]),
		zap.Int("scenes", len(batch.Scenes)))

	templates, err := template.LoadCorpus(processTemplates)
	if err != nil {
		return fmt.Errorf("failed to load template corpus: %w", err)
	}

	narrator, err := reversal.NewGenAINarrator(ctx, cfg.Generation.APIKey, cfg.Generation.Model, templates)
	if err != nil {
		return fmt.Errorf("failed to create narration backend: %w", err)
	}

	transformer := reversal.NewTransformer(
		narrator,
		reversal.NewRateLimiter(cfg.Generation.RequestsPerMinute),
		reversal.Options{
			PanelConcurrency: cfg.Pipeline.PanelConcurrency,
			MaxRetries:       cfg.Generation.MaxRetries,
			CallTimeout:      cfg.GenerationTimeout(),
		},
	)

	workers := cfg.Pipeline.SceneWorkers
	if processWorkers > 0 {
		workers = processWorkers
	}

	orch := pipeline.New(templates, transformer, workers)
	run := orch.Process(ctx, batch.Scenes, pipeline.Options{WrapTemplate: processWrap})

	for _, res := range run.Results {
		if res.Err != nil {
			logger.Warn("Scene failed",
				zap.Int("scene_id", res.SceneID),
				zap.String("stage", res.Err.Stage),
				zap.Error(res.Err.Err))
			continue
		}
		if failed := res.Emitted.FailedPanels(); len(failed) > 0 {
			logger.Warn("Scene emitted with failed reversals",
				zap.Int("scene_id", res.SceneID),
				zap.Ints("panels", failed))
		}
	}

	if !processNoLedger {
		if err := recordRun(run); err != nil {
			logger.Warn("Failed to record run in ledger", zap.Error(err))
		}
	}

	if err := writeResults(run); err != nil {
		return err
	}

	logger.Info("Run complete",
		zap.String("run_id", run.ID),
		zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)),
		zap.Int("scenes_failed", run.ScenesFailed()),
		zap.Int("panels_reversed", run.PanelsReversed()),
		zap.Int("panels_failed", run.PanelsFailed()))

	if run.ScenesFailed() == len(run.Results) && len(run.Results) > 0 {
		return fmt.Errorf("all %d scene(s) failed", len(run.Results))
	}
	return nil
}

// emittedOutput is the JSON document written by the process command.
type emittedOutput struct {
	RunID       string                `json:"run_id"`
	GeneratedAt time.Time             `json:"generated_at"`
	Scenes      []*scene.EmittedScene `json:"scenes"`
	Failed      []failedScene         `json:"failed_scenes,omitempty"`
}

type failedScene struct {
	SceneID int    `json:"scene_id"`
	Stage   string `json:"stage"`
	Error   string `json:"error"`
}

func writeResults(run *pipeline.Run) error {
	out := emittedOutput{
		RunID:       run.ID,
		GeneratedAt: run.FinishedAt,
	}
	for _, res := range run.Results {
		if res.Err != nil {
			out.Failed = append(out.Failed, failedScene{
				SceneID: res.SceneID,
				Stage:   res.Err.Stage,
				Error:   res.Err.Err.Error(),
			})
			continue
		}
		out.Scenes = append(out.Scenes, res.Emitted)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	data = append(data, '\n')

	if processOut == "" || processOut == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(processOut, data, 0644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	logger.Info("Results written", zap.String("file", processOut))
	return nil
}

func recordRun(run *pipeline.Run) error {
	ledger, err := store.Open(ledgerPath())
	if err != nil {
		return err
	}
	defer ledger.Close()
	return ledger.RecordRun(run)
}

func ledgerPath() string {
	p := cfg.Store.DatabasePath
	if !filepath.IsAbs(p) {
		p = filepath.Join(workspace, p)
	}
	return p
}
