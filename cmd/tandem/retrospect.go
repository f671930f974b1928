package main

import (
	"github.com/spf13/cobra"

	"github.com/tandemhq/tandem/internal/stage"
)

var (
	retrospectWorkID string
	retrospectReview string
	retrospectOut    string
)

var retrospectCmd = &cobra.Command{
	Use:   "retrospect",
	Short: "Write the run retrospective from the review verdict",
	Long: `Retrospect turns the review verdict into a follow-up plan: rework
actions for each blocking issue, or a routine observation when the run
came back clean.

Exits 0 on success, 1 when the review artifact is missing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := stage.Retrospect(retrospectWorkID, retrospectReview, retrospectOut)
		if err != nil {
			return err
		}
		exitCode(rc, nil)
		return nil
	},
}

func init() {
	retrospectCmd.Flags().StringVar(&retrospectWorkID, "work-id", "", "Work ID")
	retrospectCmd.Flags().StringVar(&retrospectReview, "review", "", "Path to review artifact")
	retrospectCmd.Flags().StringVar(&retrospectOut, "out", "", "Output artifact path")
	_ = retrospectCmd.MarkFlagRequired("work-id")
	_ = retrospectCmd.MarkFlagRequired("review")
	_ = retrospectCmd.MarkFlagRequired("out")
}
