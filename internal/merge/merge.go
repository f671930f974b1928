package merge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tandemhq/tandem/internal/stage"
	"github.com/tandemhq/tandem/pkg/models"
)

// ErrWorkIDRequired indicates the merge was invoked without a work id.
var ErrWorkIDRequired = errors.New("work id required for merge")

// Merge combines every per-subtask implement artifact matching the
// input pattern into one merged artifact at outPath, holding the merge
// lock for the duration. The merged status is derived from the inputs,
// then forced to failed when the dispatch manifest names subtasks that
// produced no result: a merge that silently drops dispatched work must
// not look complete.
//
// Exit codes: 0 when the merged status is usable, 2 when it is failed
// or blocked (including the no-inputs case). A contended lock and other
// input errors return an error for the caller to report with exit 1.
func Merge(inputPattern, dispatchPath, workID, outPath string) (int, error) {
	if workID == "" {
		return 1, ErrWorkIDRequired
	}

	inputs, err := collectInputs(inputPattern, fmt.Sprintf("implement_%s.json", workID))
	if err != nil {
		return 1, err
	}

	lock := NewFileLock(outPath)
	if err := lock.Acquire(); err != nil {
		return 1, fmt.Errorf("acquire merge lock for %s: %w", outPath, err)
	}
	defer lock.Release()

	if len(inputs) == 0 {
		merged := emptyMergeResult()
		if err := stage.WriteArtifact(outPath, "merge", workID, merged); err != nil {
			return 1, err
		}
		return 2, nil
	}

	results := make([]models.ImplementResult, 0, len(inputs))
	for _, path := range inputs {
		var result models.ImplementResult
		if err := stage.ReadArtifact(path, &result); err != nil {
			return 1, err
		}
		results = append(results, result)
	}

	statuses := make([]models.StageStatus, 0, len(results))
	for _, r := range results {
		statuses = append(statuses, r.Status)
	}
	status := models.MergedStatus(statuses)

	expected, dispatchFailed := expectedSubtasks(dispatchPath)

	merged := models.MergeResult{
		Count:            len(results),
		SubtaskResults:   results,
		FilesChanged:     []string{},
		CommandsExecuted: []models.CommandResult{},
		FailedTests:      []json.RawMessage{},
		Artifacts:        []string{},
		OpenQuestions:    []string{},
		ExpectedSubtasks: expected,
		MissingSubtasks:  []string{},
	}

	seen := map[string]bool{}
	fileSet := map[string]bool{}
	for _, result := range results {
		for _, f := range result.FilesChanged {
			fileSet[f] = true
		}
		merged.CommandsExecuted = append(merged.CommandsExecuted, result.CommandsExecuted...)
		merged.FailedTests = append(merged.FailedTests, result.FailedTests...)
		merged.Artifacts = append(merged.Artifacts, result.Artifacts...)
		merged.OpenQuestions = append(merged.OpenQuestions, result.OpenQuestions...)
		if result.Subtask != nil && result.Subtask.SubtaskID != "" {
			seen[result.Subtask.SubtaskID] = true
		}
	}
	for f := range fileSet {
		merged.FilesChanged = append(merged.FilesChanged, f)
	}
	sort.Strings(merged.FilesChanged)

	for _, id := range expected {
		if !seen[id] {
			merged.MissingSubtasks = append(merged.MissingSubtasks, id)
			merged.OpenQuestions = append(merged.OpenQuestions,
				fmt.Sprintf("Missing implementation result for subtask '%s'.", id))
		}
	}

	switch {
	case dispatchFailed:
		status = models.StatusFailed
		merged.OpenQuestions = append(merged.OpenQuestions,
			fmt.Sprintf("Merge requires dispatch file but it could not be loaded: '%s'.", dispatchPath))
	case len(merged.MissingSubtasks) > 0 && status != models.StatusFailed && status != models.StatusBlocked:
		status = models.StatusFailed
	}
	merged.Status = status

	if err := stage.WriteArtifact(outPath, "implement", workID, merged); err != nil {
		return 1, err
	}
	if status == models.StatusFailed || status == models.StatusBlocked {
		return 2, nil
	}
	return 0, nil
}

// collectInputs resolves the input pattern to a sorted file list. A
// literal path yields itself when it exists; a glob pattern expands,
// skipping the merged output file so a re-merge never consumes its own
// previous output.
func collectInputs(pattern, mergedName string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[") {
		if _, err := os.Stat(pattern); err != nil {
			return nil, nil
		}
		return []string{pattern}, nil
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("expand input pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)

	inputs := make([]string, 0, len(matches))
	for _, match := range matches {
		if filepath.Base(match) == mergedName {
			continue
		}
		inputs = append(inputs, match)
	}
	return inputs, nil
}

// expectedSubtasks loads the dispatched subtask ids. The second return
// is true when a dispatch path was given but could not be loaded, which
// the merge treats as a failure of its own.
func expectedSubtasks(dispatchPath string) ([]string, bool) {
	if dispatchPath == "" {
		return []string{}, false
	}
	if _, err := os.Stat(dispatchPath); err != nil {
		return []string{}, true
	}
	var manifest models.DispatchManifest
	if err := stage.ReadArtifact(dispatchPath, &manifest); err != nil {
		return []string{}, true
	}
	ids := []string{}
	for _, entry := range manifest.Subtasks {
		if entry.SubtaskID != "" {
			ids = append(ids, entry.SubtaskID)
		}
	}
	return ids, false
}

func emptyMergeResult() models.MergeResult {
	return models.MergeResult{
		Status:           models.StatusBlocked,
		Count:            0,
		SubtaskResults:   []models.ImplementResult{},
		FilesChanged:     []string{},
		CommandsExecuted: []models.CommandResult{},
		FailedTests:      []json.RawMessage{},
		Artifacts:        []string{},
		OpenQuestions:    []string{"No implementation artifacts were produced."},
		ExpectedSubtasks: []string{},
		MissingSubtasks:  []string{},
	}
}
