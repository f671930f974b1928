package stage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/tandemhq/tandem/pkg/models"
)

func TestSplit_FromTaskSubtasks(t *testing.T) {
	taskPath := writeTaskFile(t, "task.json", validTaskDoc)
	dir := t.TempDir()
	outPath := filepath.Join(dir, "dispatch_T1.json")
	matrixPath := filepath.Join(dir, "dispatch_T1.matrix.json")

	rc, err := Split(taskPath, "", outPath, matrixPath)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if rc != 0 {
		t.Errorf("rc = %d, want 0", rc)
	}

	var manifest models.DispatchManifest
	if err := ReadArtifact(outPath, &manifest); err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if manifest.Status != models.StatusDone {
		t.Errorf("Status = %s, want done", manifest.Status)
	}
	if len(manifest.Subtasks) != 1 {
		t.Fatalf("expected 1 dispatch entry, got %d", len(manifest.Subtasks))
	}
	entry := manifest.Subtasks[0]
	if entry.Role != models.RoleBuilder || entry.Owner != models.OwnerBuilder {
		t.Errorf("role/owner = %s/%s, want builder/codex", entry.Role, entry.Owner)
	}
	if entry.WorkID != "T1" {
		t.Errorf("WorkID = %q, want T1", entry.WorkID)
	}

	data, err := os.ReadFile(matrixPath)
	if err != nil {
		t.Fatalf("read matrix: %v", err)
	}
	var matrix []models.MatrixEntry
	if err := json.Unmarshal(data, &matrix); err != nil {
		t.Fatalf("parse matrix: %v", err)
	}
	if len(matrix) != 1 || matrix[0].SubtaskID != "T1-S01" {
		t.Errorf("matrix = %+v, want the dispatch projection", matrix)
	}
}

func TestSplit_PlanChunksTakePrecedence(t *testing.T) {
	taskPath := writeTaskFile(t, "task.json", validTaskDoc)
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan_T1.json")
	outPath := filepath.Join(dir, "dispatch_T1.json")

	plan := models.PlanResult{
		Status: models.StatusDone,
		Chunks: []models.Chunk{
			{ChunkID: "T1-C01", Title: "part one", EstimatedMinutes: 40, Role: models.RoleArchitect, SourceSubtaskID: "T1-S01"},
			{ChunkID: "T1-C02", Title: "part two", EstimatedMinutes: 50, Role: models.RoleBuilder, SourceSubtaskID: "T1-S01"},
		},
	}
	if err := WriteArtifact(planPath, models.OwnerArchitect, "T1", plan); err != nil {
		t.Fatalf("write plan: %v", err)
	}

	rc, err := Split(taskPath, planPath, outPath, "")
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if rc != 0 {
		t.Errorf("rc = %d, want 0", rc)
	}

	var manifest models.DispatchManifest
	if err := ReadArtifact(outPath, &manifest); err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if len(manifest.Subtasks) != 2 {
		t.Fatalf("expected 2 entries from plan chunks, got %d", len(manifest.Subtasks))
	}
	if manifest.Subtasks[0].SubtaskID != "T1-C01" {
		t.Errorf("first entry = %q, want the chunk id", manifest.Subtasks[0].SubtaskID)
	}
	if manifest.Subtasks[0].Owner != models.OwnerArchitect {
		t.Errorf("architect chunk owner = %q, want claude", manifest.Subtasks[0].Owner)
	}
	if manifest.Subtasks[0].SourceSubtaskID != "T1-S01" {
		t.Errorf("SourceSubtaskID = %q, want carried through", manifest.Subtasks[0].SourceSubtaskID)
	}
}

func TestSplit_InvalidTask(t *testing.T) {
	taskPath := writeTaskFile(t, "task.json", `{"title": "broken"}`)
	rc, err := Split(taskPath, "", filepath.Join(t.TempDir(), "out.json"), "")
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if rc != 2 {
		t.Errorf("rc = %d, want 2 for an invalid task", rc)
	}
}
