package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/tandemhq/tandem/internal/config"
	"github.com/tandemhq/tandem/internal/pipeline"
	"github.com/tandemhq/tandem/pkg/models"
)

var (
	statusWorkID     string
	statusResultsDir string
	statusWatch      bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline progress for a work ID",
	Long: `Status reports which stage artifacts exist for a work ID and the
status each one carries. With --watch, the results directory is
observed and the report re-renders on every artifact change.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		resultsDir := statusResultsDir
		if resultsDir == "" {
			resultsDir = cfg.Results.Dir
		}

		printStatusTable(resultsDir, statusWorkID)
		if !statusWatch {
			return nil
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer watcher.Close()
		if err := watcher.Add(resultsDir); err != nil {
			return fmt.Errorf("watch %s: %w", resultsDir, err)
		}

		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				if !strings.Contains(event.Name, statusWorkID) {
					continue
				}
				fmt.Println()
				printStatusTable(resultsDir, statusWorkID)
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				printError("watch error: %v", err)
			}
		}
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusWorkID, "work-id", "", "Work ID to check")
	statusCmd.Flags().StringVar(&statusResultsDir, "results-dir", "", "Results directory")
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "Re-render on artifact changes")
	_ = statusCmd.MarkFlagRequired("work-id")
}

// printStatusTable renders one row per stage: artifact file, presence,
// and the status it carries.
func printStatusTable(resultsDir, workID string) {
	platform := config.Platform()
	paths := pipeline.NewArtifactPaths(resultsDir, workID, platform)

	rows := []struct {
		stage string
		file  string
	}{
		{"validate", paths.Validation},
		{"plan", paths.Plan},
		{"split", paths.Dispatch},
		{"implement", paths.Implement},
		{"verify", paths.Verify},
		{"review", paths.Review},
		{"retrospect", paths.Retrospect},
	}

	printInfo("Pipeline status: %s", workID)
	for _, row := range rows {
		data, err := os.ReadFile(row.file)
		if err != nil {
			fmt.Printf("  %-10s %-40s missing\n", row.stage, shortName(row.file))
			continue
		}
		var probe struct {
			Status models.StageStatus `json:"status"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			fmt.Printf("  %-10s %-40s parse error\n", row.stage, shortName(row.file))
			continue
		}
		fmt.Printf("  %-10s %-40s %s\n", row.stage, shortName(row.file), statusString(probe.Status))
	}
}

func shortName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

func statusString(s models.StageStatus) string {
	if s == "" {
		return "unknown"
	}
	return string(s)
}
