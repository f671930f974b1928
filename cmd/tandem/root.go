package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tandemhq/tandem/internal/config"
)

var (
	rootSimulate bool
)

var rootCmd = &cobra.Command{
	Use:   "tandem",
	Short: "Two-agent development pipeline orchestrator",
	Long: `Tandem coordinates an architect agent and a builder agent through a
fixed seven-stage development pipeline: validate, plan, split,
implement, merge, verify, review, closing every run with a
retrospective.

Each stage persists its result as a JSON artifact, so runs can be
inspected, resumed, and audited after the fact. The agents themselves
are external CLI commands; with no agent configured, --simulate runs
the whole pipeline against synthesized agent output.

Core capabilities:
- Validates task files against the task contract
- Plans work into 30-90 minute implementation chunks
- Dispatches subtasks to the right agent in parallel
- Merges, verifies, and gates results before any merge happens`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Logic failures carried in artifacts
// exit with code 2; input and configuration errors exit with code 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%s", err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootSimulate, "simulate", false, "Run agents in simulation mode")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(implementCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(retrospectCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the configuration snapshot and applies the global
// simulation flag on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if rootSimulate {
		cfg.Agents.Simulate = true
	}
	return cfg, nil
}

// exitCode applies the stage exit convention: errors are reported and
// exit 1, a non-zero stage code exits as-is.
func exitCode(rc int, err error) {
	if err != nil {
		printError("%s", err.Error())
		if rc == 0 {
			rc = 1
		}
		os.Exit(rc)
	}
	if rc != 0 {
		os.Exit(rc)
	}
}
