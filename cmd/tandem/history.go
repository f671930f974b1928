package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tandemhq/tandem/internal/history"
)

var (
	historyWorkID     string
	historyResultsDir string
	historyLimit      int
	historyRunID      string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded pipeline runs",
	Long: `History lists recorded pipeline runs, newest first. Filter with
--work-id, or pass --run to show the per-stage outcomes of one run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		resultsDir := historyResultsDir
		if resultsDir == "" {
			resultsDir = cfg.Results.Dir
		}
		store, err := history.Open(history.DefaultPath(resultsDir))
		if err != nil {
			return err
		}
		defer store.Close()

		if historyRunID != "" {
			stages, err := store.ListStages(historyRunID)
			if err != nil {
				return err
			}
			if len(stages) == 0 {
				printInfo("No stages recorded for run %s", historyRunID)
				return nil
			}
			for _, rec := range stages {
				fmt.Printf("  %-10s exit=%-2d %s  %s\n",
					rec.Stage, rec.ExitCode, rec.RecordedAt.Format(time.RFC3339), rec.Artifact)
			}
			return nil
		}

		runs, err := store.ListRuns(historyWorkID, historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			printInfo("No pipeline runs recorded.")
			return nil
		}
		for _, run := range runs {
			finished := "running"
			if !run.FinishedAt.IsZero() {
				finished = fmt.Sprintf("exit=%d", run.ExitCode)
			}
			fmt.Printf("  %s  %-12s %-14s %s  %s\n",
				run.ID, run.WorkID, run.Mode, run.StartedAt.Format(time.RFC3339), finished)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyWorkID, "work-id", "", "Filter runs by work ID")
	historyCmd.Flags().StringVar(&historyResultsDir, "results-dir", "", "Results directory")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list")
	historyCmd.Flags().StringVar(&historyRunID, "run", "", "Show per-stage outcomes for one run ID")
}
