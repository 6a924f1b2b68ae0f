package store

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"storyboard/internal/pipeline"
	"storyboard/internal/scene"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func sampleRun() *pipeline.Run {
	started := time.Now().Add(-2 * time.Second)
	emitted := &scene.EmittedScene{
		SceneID:  1,
		Location: "EXT. HARBOR - DUSK",
		Panels: []scene.EmittedPanel{
			{
				Panel: scene.Panel{
					PanelIndex:   1,
					VisualStart:  "boat approaches",
					VisualEnd:    "boat docked",
					MotionPrompt: "the boat glides in",
					IsReversed:   true,
					Duration:     7,
				},
				RenderStart: "boat docked",
				RenderEnd:   "boat approaches",
			},
			{
				Panel: scene.Panel{
					PanelIndex: 2, IsReversed: true, Duration: 7,
					VisualStart: "a", VisualEnd: "b", MotionPrompt: "c",
				},
				RenderStart: "b", RenderEnd: "a",
				ReversalFailed: true, ReversalError: "backend unavailable",
			},
		},
	}
	return &pipeline.Run{
		ID:         "run-0001",
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Results: []pipeline.SceneResult{
			{SceneID: 1, Emitted: emitted},
			{SceneID: 2, Err: &pipeline.SceneError{
				SceneID: 2, Stage: "validate", Err: errors.New("duplicate panel_index 3"),
			}},
		},
	}
}

func TestRecordAndGetRun(t *testing.T) {
	l := openTestLedger(t)
	require.NoError(t, l.RecordRun(sampleRun()))

	rec, scenes, err := l.GetRun("run-0001")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.ScenesTotal)
	assert.Equal(t, 1, rec.ScenesFailed)
	assert.Equal(t, 1, rec.PanelsReversed)
	assert.Equal(t, 1, rec.PanelsFailed)

	require.Len(t, scenes, 2)
	assert.Equal(t, "emitted", scenes[0].Status)
	assert.Empty(t, scenes[0].Error)

	var panels []scene.EmittedPanel
	require.NoError(t, json.Unmarshal(scenes[0].Panels, &panels))
	require.Len(t, panels, 2)
	assert.Equal(t, "boat docked", panels[0].RenderStart)
	assert.True(t, panels[1].ReversalFailed)

	assert.Equal(t, "failed", scenes[1].Status)
	assert.Contains(t, scenes[1].Error, "duplicate panel_index 3")
	assert.Equal(t, json.RawMessage("[]"), scenes[1].Panels)
}

func TestListRunsNewestFirst(t *testing.T) {
	l := openTestLedger(t)

	older := sampleRun()
	older.ID = "run-a"
	older.StartedAt = time.Now().Add(-time.Hour)
	older.FinishedAt = older.StartedAt.Add(time.Second)
	require.NoError(t, l.RecordRun(older))

	newer := sampleRun()
	newer.ID = "run-b"
	require.NoError(t, l.RecordRun(newer))

	runs, err := l.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].ID)
	assert.Equal(t, "run-a", runs[1].ID)
}

func TestListRunsLimit(t *testing.T) {
	l := openTestLedger(t)
	for i := 0; i < 3; i++ {
		r := sampleRun()
		r.ID = string(rune('a' + i))
		r.StartedAt = time.Now().Add(time.Duration(i) * time.Minute)
		r.FinishedAt = r.StartedAt.Add(time.Second)
		require.NoError(t, l.RecordRun(r))
	}
	runs, err := l.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestGetRunMissing(t *testing.T) {
	l := openTestLedger(t)
	_, _, err := l.GetRun("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRecordRunDuplicateIDFails(t *testing.T) {
	l := openTestLedger(t)
	require.NoError(t, l.RecordRun(sampleRun()))
	require.Error(t, l.RecordRun(sampleRun()))
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "runs.db")
	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()
	require.NoError(t, l.RecordRun(sampleRun()))
}
