package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tandemhq/tandem/internal/config"
	"github.com/tandemhq/tandem/internal/exec"
	"github.com/tandemhq/tandem/internal/invoke"
	"github.com/tandemhq/tandem/internal/merge"
	"github.com/tandemhq/tandem/internal/stage"
	"github.com/tandemhq/tandem/pkg/models"
)

// Pipeline modes.
const (
	ModeFull          = "full"
	ModeImplementOnly = "implement-only"
)

// Reporter receives run progress for console rendering. The driver
// never prints directly; tests pass a no-op reporter.
type Reporter interface {
	// Headerf prints a run banner line.
	Headerf(format string, args ...any)
	// Stagef announces a stage is starting.
	Stagef(num, total int, format string, args ...any)
	// Skipf announces a stage was skipped on resume.
	Skipf(num, total int, format string, args ...any)
	// Infof prints an informational line.
	Infof(format string, args ...any)
	// Successf prints a success line.
	Successf(format string, args ...any)
	// Errorf prints an error line.
	Errorf(format string, args ...any)
}

// NopReporter discards all progress output.
type NopReporter struct{}

func (NopReporter) Headerf(string, ...any)          {}
func (NopReporter) Stagef(int, int, string, ...any) {}
func (NopReporter) Skipf(int, int, string, ...any)  {}
func (NopReporter) Infof(string, ...any)            {}
func (NopReporter) Successf(string, ...any)         {}
func (NopReporter) Errorf(string, ...any)           {}

var _ Reporter = NopReporter{}

// Recorder persists run history. Optional: a nil recorder disables
// history without changing pipeline behavior.
type Recorder interface {
	// StartRun opens a history record and returns its id.
	StartRun(workID, taskPath, mode string) (string, error)
	// RecordStage appends one stage outcome to the run.
	RecordStage(runID, stageName string, exitCode int, artifact string) error
	// FinishRun closes the record with the final exit code.
	FinishRun(runID string, exitCode int) error
}

// RunOptions parameterize one pipeline run.
type RunOptions struct {
	// TaskPath is the task file to run.
	TaskPath string
	// WorkID identifies the run; derived from the task file when empty.
	WorkID string
	// ResultsDir is the artifact directory.
	ResultsDir string
	// Mode is full or implement-only.
	Mode string
	// Resume skips stages whose artifacts already show success.
	Resume bool
	// ForceStage re-runs the named stage and everything after it.
	ForceStage string
}

// Driver runs the stage sequence for one task. Stages run strictly in
// order and the first non-zero exit halts the run; only the implement
// stage fans out internally.
type Driver struct {
	// Cfg is the configuration snapshot for the run.
	Cfg *config.Config
	// Invoker runs agent commands.
	Invoker *invoke.Invoker
	// Runner executes verification commands.
	Runner exec.CommandRunner
	// Reporter renders progress.
	Reporter Reporter
	// Recorder persists run history; nil disables history.
	Recorder Recorder
}

// Run executes the pipeline and returns the process exit code.
func (d *Driver) Run(ctx context.Context, opts RunOptions) (int, error) {
	rep := d.Reporter
	if rep == nil {
		rep = NopReporter{}
	}

	workID := opts.WorkID
	if workID == "" {
		derived, err := DeriveWorkID(opts.TaskPath)
		if err != nil {
			return 1, err
		}
		workID = derived
	}
	if opts.Mode == "" {
		opts.Mode = ModeFull
	}

	if err := os.MkdirAll(opts.ResultsDir, 0755); err != nil {
		return 1, fmt.Errorf("create results directory: %w", err)
	}
	platform := config.Platform()
	paths := NewArtifactPaths(opts.ResultsDir, workID, platform)
	debugLog("run start: work_id=%s mode=%s task=%s results=%s", workID, opts.Mode, opts.TaskPath, opts.ResultsDir)

	skip := map[string]bool{}
	if opts.Resume {
		skip = SkipStages(opts.ResultsDir, workID, opts.ForceStage)
	}

	total := 7
	if opts.Mode == ModeImplementOnly {
		total = 5
	}

	rep.Headerf("=== Pipeline Runner ===")
	rep.Headerf("Task:    %s", opts.TaskPath)
	rep.Headerf("Work ID: %s", workID)
	rep.Headerf("Mode:    %s", opts.Mode)
	rep.Headerf("Results: %s", opts.ResultsDir)
	if opts.Resume {
		rep.Headerf("Resume:  enabled")
		if len(skip) > 0 {
			rep.Headerf("Skipping: %s", strings.Join(sortedStages(skip), ", "))
		}
		if opts.ForceStage != "" {
			rep.Headerf("Force re-run: %s", opts.ForceStage)
		}
	}

	var runID string
	if d.Recorder != nil {
		id, err := d.Recorder.StartRun(workID, opts.TaskPath, opts.Mode)
		if err != nil {
			return 1, fmt.Errorf("start history run: %w", err)
		}
		runID = id
	}
	finalCode := 0
	defer func() {
		if d.Recorder != nil && runID != "" {
			_ = d.Recorder.FinishRun(runID, finalCode)
		}
	}()

	type stageStep struct {
		name     string
		label    string
		artifact string
		run      func() (int, error)
	}
	steps := []stageStep{
		{"validate", "Validating task", paths.Validation, func() (int, error) {
			return stage.Validate(opts.TaskPath, paths.Validation)
		}},
		{"plan", "Planning (architect)", paths.Plan, func() (int, error) {
			return stage.Plan(ctx, d.Invoker, d.Cfg, opts.TaskPath, workID, paths.Plan)
		}},
		{"split", "Splitting task", paths.Dispatch, func() (int, error) {
			return stage.Split(opts.TaskPath, paths.Plan, paths.Dispatch, paths.DispatchMatrix)
		}},
		{"implement", "Implementing subtasks", paths.Implement, func() (int, error) {
			return d.runImplement(ctx, rep, opts, workID, paths)
		}},
		{"merge", "Merging results", paths.Implement, func() (int, error) {
			return merge.Merge(paths.ImplementGlob(workID), paths.Dispatch, workID, paths.Implement)
		}},
		{"verify", "Verifying", paths.Verify, func() (int, error) {
			return stage.Verify(ctx, d.Runner, d.Cfg, workID, platform, "", paths.Verify)
		}},
		{"review", "Reviewing", paths.Review, func() (int, error) {
			return stage.Review(workID, paths.Plan, paths.Implement, []string{paths.Verify}, paths.Review)
		}},
	}

	for i, step := range steps {
		if opts.Mode == ModeImplementOnly && StageIndex(step.name) > StageIndex("merge") {
			rep.Successf("implement-only mode complete. Output: %s", paths.Implement)
			return 0, nil
		}
		if skip[step.name] {
			debugLog("stage %s: skipped on resume", step.name)
			rep.Skipf(i+1, total, "%s -- skipped (already completed)", step.label)
			continue
		}
		rep.Stagef(i+1, total, "%s...", step.label)
		rc, err := step.run()
		debugLog("stage %s: rc=%d err=%v", step.name, rc, err)
		if d.Recorder != nil && runID != "" {
			_ = d.Recorder.RecordStage(runID, step.name, rc, step.artifact)
		}
		if err != nil {
			finalCode = rc
			rep.Errorf("Stage %s failed: %v", step.label, err)
			return rc, err
		}
		if rc != 0 {
			finalCode = rc
			rep.Errorf("Stage %s failed (exit code %d)", step.label, rc)
			return rc, nil
		}
	}

	// The retrospective always runs after review; it is not a
	// resumable stage of its own.
	rc, err := stage.Retrospect(workID, paths.Review, paths.Retrospect)
	debugLog("stage retrospect: rc=%d err=%v", rc, err)
	if d.Recorder != nil && runID != "" {
		_ = d.Recorder.RecordStage(runID, "retrospect", rc, paths.Retrospect)
	}
	if err != nil {
		finalCode = rc
		rep.Errorf("Retrospect failed: %v", err)
		return rc, err
	}
	if rc != 0 {
		finalCode = rc
		rep.Errorf("Retrospect failed (exit code %d)", rc)
		return rc, nil
	}

	rep.Headerf("=== Pipeline Complete ===")
	rep.Successf("Review:        %s", paths.Review)
	rep.Successf("Retrospective: %s", paths.Retrospect)
	return 0, nil
}

// runImplement fans the dispatched subtasks out over the worker pool.
// Every subtask runs even when siblings fail; a single failure fails
// the stage afterwards so merge still sees every artifact.
func (d *Driver) runImplement(ctx context.Context, rep Reporter, opts RunOptions, workID string, paths ArtifactPaths) (int, error) {
	var manifest models.DispatchManifest
	if err := stage.ReadArtifact(paths.Dispatch, &manifest); err != nil {
		return 1, err
	}

	failures := RunSubtasks(manifest.Subtasks, func(entry models.DispatchEntry) int {
		out := paths.SubtaskImplement(workID, entry.SubtaskID)
		rep.Infof("  -> %s (role=%s)", entry.SubtaskID, entry.Role)
		rc, err := stage.Implement(ctx, d.Invoker, opts.TaskPath, paths.Dispatch, entry.SubtaskID, workID, out)
		if err != nil {
			rep.Errorf("subtask %s: %v", entry.SubtaskID, err)
			if rc == 0 {
				rc = 1
			}
		}
		return rc
	})
	if failures > 0 {
		return 1, fmt.Errorf("%d implementation job(s) failed", failures)
	}
	return 0, nil
}

func sortedStages(skip map[string]bool) []string {
	var names []string
	for _, s := range Stages {
		if skip[s] {
			names = append(names, s)
		}
	}
	return names
}
