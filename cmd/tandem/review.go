package main

import (
	"github.com/spf13/cobra"

	"github.com/tandemhq/tandem/internal/stage"
)

var (
	reviewWorkID    string
	reviewPlan      string
	reviewImplement string
	reviewVerify    []string
	reviewOut       string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Run the quality gate over plan, implement, and verify",
	Long: `Review consumes the plan, merged implement, and verify artifacts and
decides go/no-go for the merge. Any stage short of its success status
blocks, as does any surviving open question.

Exits 0 when the gate passes, 2 when it blocks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := stage.Review(reviewWorkID, reviewPlan, reviewImplement, reviewVerify, reviewOut)
		if err != nil {
			return err
		}
		exitCode(rc, nil)
		return nil
	},
}

func init() {
	reviewCmd.Flags().StringVar(&reviewWorkID, "work-id", "", "Work ID")
	reviewCmd.Flags().StringVar(&reviewPlan, "plan", "", "Path to plan artifact")
	reviewCmd.Flags().StringVar(&reviewImplement, "implement", "", "Path to merged implement artifact")
	reviewCmd.Flags().StringArrayVar(&reviewVerify, "verify", nil, "Path(s) to verify artifacts")
	reviewCmd.Flags().StringVar(&reviewOut, "out", "", "Output artifact path")
	_ = reviewCmd.MarkFlagRequired("work-id")
	_ = reviewCmd.MarkFlagRequired("plan")
	_ = reviewCmd.MarkFlagRequired("implement")
	_ = reviewCmd.MarkFlagRequired("out")
}
