package main

import (
	"github.com/spf13/cobra"

	"github.com/tandemhq/tandem/internal/stage"
)

var (
	splitTask   string
	splitPlan   string
	splitOut    string
	splitMatrix string
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split a task into the dispatch manifest",
	Long: `Split produces the dispatch manifest: one entry per unit of
implementation work, with its agent role and owner resolved. Plan
chunks take precedence over the task's own subtasks when a plan
artifact is supplied.

Exits 0 on success, 2 when the task fails validation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := stage.Split(splitTask, splitPlan, splitOut, splitMatrix)
		if err != nil {
			return err
		}
		exitCode(rc, nil)
		return nil
	},
}

func init() {
	splitCmd.Flags().StringVar(&splitTask, "task", "", "Path to task file (JSON or YAML)")
	splitCmd.Flags().StringVar(&splitPlan, "plan", "", "Path to plan artifact")
	splitCmd.Flags().StringVar(&splitOut, "out", "", "Output artifact path")
	splitCmd.Flags().StringVar(&splitMatrix, "matrix-output", "", "Dispatch matrix output path")
	_ = splitCmd.MarkFlagRequired("task")
	_ = splitCmd.MarkFlagRequired("out")
}
