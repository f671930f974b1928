package main

import (
	"github.com/spf13/cobra"

	"github.com/tandemhq/tandem/internal/stage"
)

var (
	validateTask string
	validateOut  string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a task file against the task contract",
	Long: `Validate checks a task file, normalizes it, and writes the validation
artifact. The artifact is written even when validation fails, so the
violations are on record.

Exits 0 when the task is ready, 2 when it is blocked by contract
violations, 1 on input errors.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := stage.Validate(validateTask, validateOut)
		if err != nil {
			return err
		}
		if rc == 0 {
			printSuccess("Task is valid: %s", validateOut)
		} else {
			printError("Task is blocked; see %s", validateOut)
		}
		exitCode(rc, nil)
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateTask, "task", "", "Path to task file (JSON or YAML)")
	validateCmd.Flags().StringVar(&validateOut, "out", "", "Output artifact path")
	_ = validateCmd.MarkFlagRequired("task")
	_ = validateCmd.MarkFlagRequired("out")
}
