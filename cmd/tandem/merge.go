package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tandemhq/tandem/internal/merge"
)

var (
	mergeWorkID     string
	mergeInput      string
	mergeResultsDir string
	mergeDispatch   string
	mergeOut        string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge per-subtask implement artifacts",
	Long: `Merge combines every per-subtask implement artifact matching the
input pattern into the single merged artifact the review gate
consumes, under a non-blocking file lock. Dispatched subtasks with no
result force the merged status to failed.

Exits 0 when the merged status is usable, 2 when it is failed or
blocked, 1 on lock contention or input errors.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		input := mergeInput
		if input == "" && mergeResultsDir != "" {
			input = fmt.Sprintf("%s/implement_%s_*.json", mergeResultsDir, mergeWorkID)
		}
		if input == "" {
			return fmt.Errorf("merge requires --input or --results-dir")
		}
		rc, err := merge.Merge(input, mergeDispatch, mergeWorkID, mergeOut)
		if err != nil {
			return err
		}
		exitCode(rc, nil)
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergeWorkID, "work-id", "", "Work ID")
	mergeCmd.Flags().StringVar(&mergeInput, "input", "", "Input file glob pattern")
	mergeCmd.Flags().StringVar(&mergeResultsDir, "results-dir", "", "Results directory (used when --input is empty)")
	mergeCmd.Flags().StringVar(&mergeDispatch, "dispatch", "", "Path to dispatch manifest")
	mergeCmd.Flags().StringVar(&mergeOut, "out", "", "Output artifact path")
	_ = mergeCmd.MarkFlagRequired("work-id")
	_ = mergeCmd.MarkFlagRequired("out")
}
