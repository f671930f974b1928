package stage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tandemhq/tandem/pkg/models"
)

// Split turns a validated task (and, when available, the plan artifact)
// into the dispatch manifest: one entry per unit of implementation work
// with its role and owner resolved. Plan chunks take precedence over
// the task's own subtasks, so an architect-refined decomposition wins
// over the author's. An optional matrix file carries the compact
// projection CI systems fan out on.
//
// Exit codes: 0 on success, 2 when the task fails validation. Input
// errors return an error for the caller to report with exit code 1.
func Split(taskPath, planPath, outPath, matrixPath string) (int, error) {
	task, errs, err := LoadTask(taskPath)
	if err != nil {
		return 1, err
	}
	if len(errs) > 0 {
		return 2, nil
	}

	var plan models.PlanResult
	if planPath != "" {
		if _, err := os.Stat(planPath); err == nil {
			if err := ReadArtifact(planPath, &plan); err != nil {
				return 1, err
			}
		}
	}

	var entries []models.DispatchEntry
	var matrix []models.MatrixEntry
	if len(plan.Chunks) > 0 {
		entries, matrix = dispatchFromChunks(task, plan.Chunks)
	} else {
		entries, matrix = dispatchFromSubtasks(task)
	}

	manifest := models.DispatchManifest{
		WorkID:      task.TaskID,
		Status:      models.StatusDone,
		PlanVersion: orDefault(task.PlanVersion, "v1"),
		Subtasks:    entries,
		DispatchFromPlan: models.DispatchFromPlan{
			ImplementationContract: orEmpty(plan.ImplementationContract),
			TestPlan:               orEmpty(plan.TestPlan),
		},
	}
	if err := WriteArtifact(outPath, "dispatch", task.TaskID, manifest); err != nil {
		return 1, err
	}

	if matrixPath != "" {
		if err := writeMatrix(matrixPath, matrix); err != nil {
			return 1, err
		}
	}
	return 0, nil
}

func dispatchFromChunks(task models.Task, chunks []models.Chunk) ([]models.DispatchEntry, []models.MatrixEntry) {
	entries := make([]models.DispatchEntry, 0, len(chunks))
	matrix := make([]models.MatrixEntry, 0, len(chunks))
	for _, chunk := range chunks {
		role := models.ResolveRole(string(chunk.Role), "")
		est := chunk.EstimatedMinutes
		if est == 0 {
			est = 60
		}
		entries = append(entries, models.DispatchEntry{
			SubtaskID:          orDefault(chunk.ChunkID, "unknown"),
			Title:              orUntitled(chunk.Title),
			Role:               role,
			Owner:              role.Owner(),
			Scope:              fallback(chunk.Scope, orDefault(task.Scope, "implementation")),
			EstimatedMinutes:   est,
			DependsOn:          orEmpty(chunk.DependsOn),
			FilesAffected:      orEmpty(chunk.FilesAffected),
			AcceptanceCriteria: orEmptyCriteria(chunk.AcceptanceCriteria),
			Notes:              []string{},
			WorkID:             task.TaskID,
			RiskLevel:          orDefault(task.RiskLevel, "medium"),
			SourceSubtaskID:    chunk.SourceSubtaskID,
		})
		matrix = append(matrix, models.MatrixEntry{
			SubtaskID:        orDefault(chunk.ChunkID, "unknown"),
			Role:             role,
			Owner:            role.Owner(),
			EstimatedMinutes: est,
			DependsOn:        orEmpty(chunk.DependsOn),
		})
	}
	return entries, matrix
}

func dispatchFromSubtasks(task models.Task) ([]models.DispatchEntry, []models.MatrixEntry) {
	entries := make([]models.DispatchEntry, 0, len(task.Subtasks))
	matrix := make([]models.MatrixEntry, 0, len(task.Subtasks))
	for _, subtask := range task.Subtasks {
		role := models.ResolveRole(subtask.Role, subtask.Owner)
		est := subtask.EstimatedMinutes
		if est == 0 {
			est = 60
		}
		criteria := subtask.AcceptanceCriteria
		if len(criteria) == 0 {
			criteria = task.AcceptanceCriteria
		}
		entries = append(entries, models.DispatchEntry{
			SubtaskID:          subtask.SubtaskID,
			Title:              subtask.Title,
			Role:               role,
			Owner:              role.Owner(),
			Scope:              fallback(subtask.Scope, orDefault(task.Scope, "implementation")),
			EstimatedMinutes:   est,
			DependsOn:          orEmpty(subtask.DependsOn),
			FilesAffected:      orEmpty(subtask.FilesAffected),
			AcceptanceCriteria: orEmptyCriteria(criteria),
			Notes:              orEmpty(subtask.Notes),
			WorkID:             task.TaskID,
			RiskLevel:          orDefault(task.RiskLevel, "medium"),
		})
		matrix = append(matrix, models.MatrixEntry{
			SubtaskID:        subtask.SubtaskID,
			Role:             role,
			Owner:            role.Owner(),
			EstimatedMinutes: est,
			DependsOn:        orEmpty(subtask.DependsOn),
		})
	}
	return entries, matrix
}

// writeMatrix writes the bare matrix JSON; unlike stage artifacts it
// carries no metadata envelope, it is consumed by CI fan-out directly.
func writeMatrix(path string, matrix []models.MatrixEntry) error {
	data, err := json.MarshalIndent(matrix, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dispatch matrix: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create matrix directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write dispatch matrix: %w", err)
	}
	return nil
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyCriteria(c []models.Criterion) []models.Criterion {
	if c == nil {
		return []models.Criterion{}
	}
	return c
}
