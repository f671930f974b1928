package main

import (
	"github.com/spf13/cobra"

	"github.com/tandemhq/tandem/internal/exec"
	"github.com/tandemhq/tandem/internal/invoke"
	"github.com/tandemhq/tandem/internal/stage"
)

var (
	planTask   string
	planWorkID string
	planOut    string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Run the architect planning stage",
	Long: `Plan invokes the architect agent to decompose the task into 30-90
minute implementation chunks with machine-readable acceptance
criteria. When the agent returns no structured chunks, a deterministic
decomposition is synthesized from the task's subtasks.

Exits 0 when the plan is done, 2 when it is blocked, 1 on input or
configuration errors.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		inv := invoke.New(cfg, exec.NewRunner())
		rc, err := stage.Plan(cmd.Context(), inv, cfg, planTask, planWorkID, planOut)
		if err != nil {
			return err
		}
		exitCode(rc, nil)
		return nil
	},
}

func init() {
	planCmd.Flags().StringVar(&planTask, "task", "", "Path to task file (JSON or YAML)")
	planCmd.Flags().StringVar(&planWorkID, "work-id", "", "Work ID (task id if empty)")
	planCmd.Flags().StringVar(&planOut, "out", "", "Output artifact path")
	_ = planCmd.MarkFlagRequired("task")
	_ = planCmd.MarkFlagRequired("out")
}
