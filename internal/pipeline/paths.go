// Package pipeline drives the seven-stage run: validate, plan, split,
// implement, merge, verify, review, closing with the retrospective. It
// owns the artifact path layout, resume detection, and the subtask
// scheduler; the stage executors themselves live in internal/stage.
package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Stages is the ordered list of resumable pipeline stages. Retrospect
// is deliberately absent: it always runs after review.
var Stages = []string{
	"validate", "plan", "split", "implement", "merge", "verify", "review",
}

// stagePrefix maps a stage name to the artifact file prefix it writes.
// Three stages write under a different name than their own: validate
// writes validation files, split writes the dispatch manifest, and
// merge overwrites the merged implement artifact.
var stagePrefix = map[string]string{
	"validate":  "validation",
	"plan":      "plan",
	"split":     "dispatch",
	"implement": "implement",
	"merge":     "implement",
	"verify":    "verify",
	"review":    "review",
}

// StageIndex returns the position of a stage in the pipeline order,
// or -1 for an unknown stage.
func StageIndex(stage string) int {
	for i, s := range Stages {
		if s == stage {
			return i
		}
	}
	return -1
}

// ArtifactPaths is the fixed artifact layout for one pipeline run.
type ArtifactPaths struct {
	// ResultsDir is the directory all artifacts live in.
	ResultsDir string
	// Validation is the validate stage artifact.
	Validation string
	// Plan is the plan stage artifact.
	Plan string
	// Dispatch is the split stage manifest.
	Dispatch string
	// DispatchMatrix is the CI fan-out projection.
	DispatchMatrix string
	// Implement is the merged implement artifact.
	Implement string
	// Verify is the verify artifact for the run's platform.
	Verify string
	// Review is the review stage artifact.
	Review string
	// Retrospect is the retrospective artifact.
	Retrospect string
}

// NewArtifactPaths lays out the artifact paths for a work id on the
// given platform.
func NewArtifactPaths(resultsDir, workID, platform string) ArtifactPaths {
	join := func(name string) string { return filepath.Join(resultsDir, name) }
	return ArtifactPaths{
		ResultsDir:     resultsDir,
		Validation:     join(fmt.Sprintf("validation_%s.json", workID)),
		Plan:           join(fmt.Sprintf("plan_%s.json", workID)),
		Dispatch:       join(fmt.Sprintf("dispatch_%s.json", workID)),
		DispatchMatrix: join(fmt.Sprintf("dispatch_%s.matrix.json", workID)),
		Implement:      join(fmt.Sprintf("implement_%s.json", workID)),
		Verify:         join(fmt.Sprintf("verify_%s_%s.json", workID, platform)),
		Review:         join(fmt.Sprintf("review_%s.json", workID)),
		Retrospect:     join(fmt.Sprintf("retrospect_%s.json", workID)),
	}
}

// SubtaskImplement returns the per-subtask implement artifact path.
func (p ArtifactPaths) SubtaskImplement(workID, subtaskID string) string {
	return filepath.Join(p.ResultsDir, fmt.Sprintf("implement_%s_%s.json", workID, subtaskID))
}

// ImplementGlob returns the glob matching per-subtask implement
// artifacts for a work id.
func (p ArtifactPaths) ImplementGlob(workID string) string {
	return filepath.Join(p.ResultsDir, fmt.Sprintf("implement_%s_*.json", workID))
}

// DeriveWorkID computes the default work id for a task file: the first
// 12 hex characters of the file's sha256. Identical task files land on
// the same work id, which is what lets resume find prior artifacts.
func DeriveWorkID(taskPath string) (string, error) {
	data, err := os.ReadFile(taskPath)
	if err != nil {
		return "", fmt.Errorf("read task file for work id: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:12], nil
}
