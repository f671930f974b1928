package main

import (
	"github.com/spf13/cobra"

	"github.com/tandemhq/tandem/internal/config"
	"github.com/tandemhq/tandem/internal/exec"
	"github.com/tandemhq/tandem/internal/stage"
)

var (
	verifyWorkID   string
	verifyPlatform string
	verifyCommands string
	verifyOut      string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run the verification command list",
	Long: `Verify runs the resolved verification commands on this platform and
writes the verify artifact plus a sibling JUnit XML report. Command
resolution: --commands, then the VERIFY_COMMANDS environment, then the
configured default list. No resolvable commands is a hard failure.

Exits 0 when every command passed, 2 when any failed, 1 when no
commands could be resolved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		platform := verifyPlatform
		if platform == "" {
			platform = config.Platform()
		}
		rc, err := stage.Verify(cmd.Context(), exec.NewRunner(), cfg,
			verifyWorkID, platform, verifyCommands, verifyOut)
		if err != nil {
			return err
		}
		exitCode(rc, nil)
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyWorkID, "work-id", "", "Work ID")
	verifyCmd.Flags().StringVar(&verifyPlatform, "platform", "", "Platform (auto-detected if empty)")
	verifyCmd.Flags().StringVar(&verifyCommands, "commands", "", "Verify commands (JSON array, semicolon- or newline-separated)")
	verifyCmd.Flags().StringVar(&verifyOut, "out", "", "Output artifact path")
	_ = verifyCmd.MarkFlagRequired("work-id")
	_ = verifyCmd.MarkFlagRequired("out")
}
