package main

import (
	"github.com/spf13/cobra"

	"github.com/tandemhq/tandem/internal/exec"
	"github.com/tandemhq/tandem/internal/invoke"
	"github.com/tandemhq/tandem/internal/stage"
)

var (
	implementTask      string
	implementDispatch  string
	implementSubtaskID string
	implementWorkID    string
	implementOut       string
)

var implementCmd = &cobra.Command{
	Use:   "implement",
	Short: "Implement one subtask through its assigned agent",
	Long: `Implement runs a single subtask through the agent its dispatch entry
assigns, writing the per-subtask implement artifact. The subtask is
located in the dispatch manifest first, falling back to the task
definition.

Exits 0 when the subtask is done, 2 when it failed or was blocked,
1 on input errors (including an unknown subtask id).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		inv := invoke.New(cfg, exec.NewRunner())
		rc, err := stage.Implement(cmd.Context(), inv, implementTask, implementDispatch,
			implementSubtaskID, implementWorkID, implementOut)
		if err != nil {
			return err
		}
		exitCode(rc, nil)
		return nil
	},
}

func init() {
	implementCmd.Flags().StringVar(&implementTask, "task", "", "Path to task file (JSON or YAML)")
	implementCmd.Flags().StringVar(&implementDispatch, "dispatch", "", "Path to dispatch manifest")
	implementCmd.Flags().StringVar(&implementSubtaskID, "subtask-id", "", "Subtask ID to execute")
	implementCmd.Flags().StringVar(&implementWorkID, "work-id", "", "Work ID (task id if empty)")
	implementCmd.Flags().StringVar(&implementOut, "out", "", "Output artifact path")
	_ = implementCmd.MarkFlagRequired("task")
	_ = implementCmd.MarkFlagRequired("subtask-id")
	_ = implementCmd.MarkFlagRequired("out")
}
