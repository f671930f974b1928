package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tandemhq/tandem/internal/exec"
	"github.com/tandemhq/tandem/internal/history"
	"github.com/tandemhq/tandem/internal/invoke"
	"github.com/tandemhq/tandem/internal/pipeline"
)

var (
	runTask       string
	runWorkID     string
	runResultsDir string
	runMode       string
	runResume     bool
	runForceStage string
	runNoHistory  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline for a task",
	Long: `Run executes the seven-stage pipeline end to end: validate, plan,
split, implement, merge, verify, review, closing with the
retrospective. The first failing stage halts the run; its artifact
records what went wrong.

With --resume, stages whose artifacts already show success are
skipped. Use --force-stage to re-run a stage (and everything after it)
even when its artifact exists. With --mode implement-only the run ends
after merge.

Examples:
  tandem run --task task.json
  tandem run --task task.json --simulate
  tandem run --task task.json --resume --force-stage verify`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if runMode != pipeline.ModeFull && runMode != pipeline.ModeImplementOnly {
			return fmt.Errorf("invalid mode %q (want %s or %s)",
				runMode, pipeline.ModeFull, pipeline.ModeImplementOnly)
		}
		if runForceStage != "" && pipeline.StageIndex(runForceStage) < 0 {
			return fmt.Errorf("unknown stage %q for --force-stage", runForceStage)
		}
		resultsDir := runResultsDir
		if resultsDir == "" {
			resultsDir = cfg.Results.Dir
		}

		if os.Getenv("TANDEM_DEBUG") != "" {
			logger := pipeline.NewDebugLoggerForResults(resultsDir)
			defer logger.Close()
			pipeline.SetDebugLogger(logger)
		}

		driver := &pipeline.Driver{
			Cfg:      cfg,
			Invoker:  invoke.New(cfg, exec.NewRunner()),
			Runner:   exec.NewRunner(),
			Reporter: consoleReporter{},
		}
		if !runNoHistory {
			store, err := history.Open(history.DefaultPath(resultsDir))
			if err != nil {
				return err
			}
			defer store.Close()
			driver.Recorder = store
		}

		rc, err := driver.Run(cmd.Context(), pipeline.RunOptions{
			TaskPath:   runTask,
			WorkID:     runWorkID,
			ResultsDir: resultsDir,
			Mode:       runMode,
			Resume:     runResume,
			ForceStage: runForceStage,
		})
		if err != nil {
			return err
		}
		exitCode(rc, nil)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runTask, "task", "", "Path to task file (JSON or YAML)")
	runCmd.Flags().StringVar(&runWorkID, "work-id", "", "Work ID (derived from task file if empty)")
	runCmd.Flags().StringVar(&runResultsDir, "results-dir", "", "Results directory")
	runCmd.Flags().StringVar(&runMode, "mode", pipeline.ModeFull, "Pipeline mode (full or implement-only)")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "Resume from last successful stage")
	runCmd.Flags().StringVar(&runForceStage, "force-stage", "", "Force re-run of a stage and everything after it")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false, "Disable run history recording")
	_ = runCmd.MarkFlagRequired("task")
}
