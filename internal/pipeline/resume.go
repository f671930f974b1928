package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tandemhq/tandem/pkg/models"
)

// StageCompleted reports whether a stage already has a successful
// artifact for the work id, returning the matching file. A stage
// counts as completed when any file matching its prefix pattern
// carries a completed status; unreadable files are ignored rather than
// treated as evidence either way.
func StageCompleted(resultsDir, stageName, workID string) (string, bool) {
	prefix, ok := stagePrefix[stageName]
	if !ok {
		prefix = stageName
	}
	pattern := filepath.Join(resultsDir, fmt.Sprintf("%s_%s*.json", prefix, workID))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", false
	}
	sort.Strings(matches)

	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var probe struct {
			Status models.StageStatus `json:"status"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			continue
		}
		if models.CompletedStatuses[probe.Status] {
			return path, true
		}
	}
	return "", false
}

// SkipStages determines which stages a resumed run may skip. Skipping
// stops at the first stage without a completed artifact: everything
// from there downstream runs, because a stage's inputs are the outputs
// of the stages before it. When forceStage is set, that stage and all
// downstream stages run regardless of existing artifacts.
func SkipStages(resultsDir, workID, forceStage string) map[string]bool {
	skip := map[string]bool{}
	forceIndex := StageIndex(forceStage)

	for i, stageName := range Stages {
		if forceIndex >= 0 && i >= forceIndex {
			break
		}
		if _, done := StageCompleted(resultsDir, stageName, workID); !done {
			break
		}
		skip[stageName] = true
	}
	return skip
}
