package merge

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/tandemhq/tandem/internal/stage"
	"github.com/tandemhq/tandem/pkg/models"
)

// writeImplementArtifact writes a per-subtask implement artifact the way
// the implement stage would.
func writeImplementArtifact(t *testing.T, dir, subtaskID string, status models.StageStatus, files []string) string {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("implement_T1_%s.json", subtaskID))
	result := models.ImplementResult{
		Status:           status,
		Subtask:          &models.DispatchEntry{SubtaskID: subtaskID},
		FilesChanged:     files,
		CommandsExecuted: []models.CommandResult{},
		OpenQuestions:    []string{},
	}
	if err := stage.WriteArtifact(path, "codex", "T1", result); err != nil {
		t.Fatalf("write implement artifact: %v", err)
	}
	return path
}

func writeDispatchArtifact(t *testing.T, dir string, ids ...string) string {
	t.Helper()
	path := filepath.Join(dir, "dispatch_T1.json")
	manifest := models.DispatchManifest{WorkID: "T1"}
	for _, id := range ids {
		manifest.Subtasks = append(manifest.Subtasks, models.DispatchEntry{SubtaskID: id})
	}
	if err := stage.WriteArtifact(path, "split", "T1", manifest); err != nil {
		t.Fatalf("write dispatch artifact: %v", err)
	}
	return path
}

func readMerged(t *testing.T, path string) models.MergeResult {
	t.Helper()
	var merged models.MergeResult
	if err := stage.ReadArtifact(path, &merged); err != nil {
		t.Fatalf("read merged artifact: %v", err)
	}
	return merged
}

func TestMerge_CombinesResults(t *testing.T) {
	dir := t.TempDir()
	writeImplementArtifact(t, dir, "T1-S01", models.StatusDone, []string{"b.go", "a.go"})
	writeImplementArtifact(t, dir, "T1-S02", models.StatusDone, []string{"a.go", "c.go"})
	dispatchPath := writeDispatchArtifact(t, dir, "T1-S01", "T1-S02")
	outPath := filepath.Join(dir, "implement_T1.json")

	rc, err := Merge(filepath.Join(dir, "implement_T1_*.json"), dispatchPath, "T1", outPath)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if rc != 0 {
		t.Errorf("rc = %d, want 0", rc)
	}

	merged := readMerged(t, outPath)
	if merged.Status != models.StatusDone {
		t.Errorf("Status = %s, want done", merged.Status)
	}
	if merged.Count != 2 {
		t.Errorf("Count = %d, want 2", merged.Count)
	}
	want := []string{"a.go", "b.go", "c.go"}
	if len(merged.FilesChanged) != len(want) {
		t.Fatalf("FilesChanged = %v, want %v", merged.FilesChanged, want)
	}
	for i, f := range want {
		if merged.FilesChanged[i] != f {
			t.Errorf("FilesChanged[%d] = %q, want %q", i, merged.FilesChanged[i], f)
		}
	}
	if len(merged.MissingSubtasks) != 0 {
		t.Errorf("MissingSubtasks = %v, want empty", merged.MissingSubtasks)
	}
}

func TestMerge_SkipsOwnOutput(t *testing.T) {
	dir := t.TempDir()
	writeImplementArtifact(t, dir, "T1-S01", models.StatusDone, nil)
	outPath := filepath.Join(dir, "implement_T1.json")

	// A previous merged artifact matches the glob but must be ignored.
	if rc, err := Merge(filepath.Join(dir, "implement_T1_*.json"), "", "T1", outPath); err != nil || rc != 0 {
		t.Fatalf("first merge: rc=%d err=%v", rc, err)
	}
	rc, err := Merge(filepath.Join(dir, "implement_T1*.json"), "", "T1", outPath)
	if err != nil {
		t.Fatalf("re-merge failed: %v", err)
	}
	if rc != 0 {
		t.Errorf("rc = %d, want 0", rc)
	}
	if merged := readMerged(t, outPath); merged.Count != 1 {
		t.Errorf("Count = %d, want 1 (merged output must not consume itself)", merged.Count)
	}
}

func TestMerge_MissingSubtaskForcesFailed(t *testing.T) {
	dir := t.TempDir()
	writeImplementArtifact(t, dir, "T1-S01", models.StatusDone, nil)
	dispatchPath := writeDispatchArtifact(t, dir, "T1-S01", "T1-S02")
	outPath := filepath.Join(dir, "implement_T1.json")

	rc, err := Merge(filepath.Join(dir, "implement_T1_*.json"), dispatchPath, "T1", outPath)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if rc != 2 {
		t.Errorf("rc = %d, want 2", rc)
	}

	merged := readMerged(t, outPath)
	if merged.Status != models.StatusFailed {
		t.Errorf("Status = %s, want failed", merged.Status)
	}
	if len(merged.MissingSubtasks) != 1 || merged.MissingSubtasks[0] != "T1-S02" {
		t.Errorf("MissingSubtasks = %v, want [T1-S02]", merged.MissingSubtasks)
	}
	found := false
	for _, q := range merged.OpenQuestions {
		if q == "Missing implementation result for subtask 'T1-S02'." {
			found = true
		}
	}
	if !found {
		t.Errorf("OpenQuestions = %v, want the missing-subtask question", merged.OpenQuestions)
	}
}

func TestMerge_StatusForcing(t *testing.T) {
	tests := []struct {
		name     string
		statuses []models.StageStatus
		want     models.StageStatus
		wantRC   int
	}{
		{"failed wins", []models.StageStatus{models.StatusDone, models.StatusFailed}, models.StatusFailed, 2},
		{"skipped counts as failed", []models.StageStatus{models.StatusDone, "skipped"}, models.StatusFailed, 2},
		{"blocked propagates", []models.StageStatus{models.StatusDone, models.StatusBlocked}, models.StatusBlocked, 2},
		{"simulated counts as done", []models.StageStatus{models.StatusSimulated, models.StatusDone}, models.StatusDone, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for i, status := range tt.statuses {
				writeImplementArtifact(t, dir, fmt.Sprintf("T1-S%02d", i+1), status, nil)
			}
			outPath := filepath.Join(dir, "implement_T1.json")

			rc, err := Merge(filepath.Join(dir, "implement_T1_*.json"), "", "T1", outPath)
			if err != nil {
				t.Fatalf("Merge failed: %v", err)
			}
			if rc != tt.wantRC {
				t.Errorf("rc = %d, want %d", rc, tt.wantRC)
			}
			if merged := readMerged(t, outPath); merged.Status != tt.want {
				t.Errorf("Status = %s, want %s", merged.Status, tt.want)
			}
		})
	}
}

func TestMerge_MissingStatusForcesFailed(t *testing.T) {
	dir := t.TempDir()
	// A foreign or truncated artifact can lack the status key entirely;
	// it must not be mistaken for a successful result.
	path := filepath.Join(dir, "implement_T1_T1-S01.json")
	payload := map[string]any{
		"subtask":       map[string]any{"subtask_id": "T1-S01"},
		"files_changed": []string{"a.go"},
	}
	if err := stage.WriteArtifact(path, "codex", "T1", payload); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	outPath := filepath.Join(dir, "implement_T1.json")

	rc, err := Merge(filepath.Join(dir, "implement_T1_*.json"), "", "T1", outPath)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if rc != 2 {
		t.Errorf("rc = %d, want 2", rc)
	}
	if merged := readMerged(t, outPath); merged.Status != models.StatusFailed {
		t.Errorf("Status = %s, want failed", merged.Status)
	}
}

func TestMerge_NoInputsBlocks(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "implement_T1.json")

	rc, err := Merge(filepath.Join(dir, "implement_T1_*.json"), "", "T1", outPath)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if rc != 2 {
		t.Errorf("rc = %d, want 2", rc)
	}

	merged := readMerged(t, outPath)
	if merged.Status != models.StatusBlocked {
		t.Errorf("Status = %s, want blocked", merged.Status)
	}
	if len(merged.OpenQuestions) != 1 || merged.OpenQuestions[0] != "No implementation artifacts were produced." {
		t.Errorf("OpenQuestions = %v", merged.OpenQuestions)
	}
}

func TestMerge_UnloadableDispatchFails(t *testing.T) {
	dir := t.TempDir()
	writeImplementArtifact(t, dir, "T1-S01", models.StatusDone, nil)
	missingDispatch := filepath.Join(dir, "dispatch_T1.json")
	outPath := filepath.Join(dir, "implement_T1.json")

	rc, err := Merge(filepath.Join(dir, "implement_T1_*.json"), missingDispatch, "T1", outPath)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if rc != 2 {
		t.Errorf("rc = %d, want 2", rc)
	}

	merged := readMerged(t, outPath)
	if merged.Status != models.StatusFailed {
		t.Errorf("Status = %s, want failed", merged.Status)
	}
	wantQuestion := fmt.Sprintf("Merge requires dispatch file but it could not be loaded: '%s'.", missingDispatch)
	found := false
	for _, q := range merged.OpenQuestions {
		if q == wantQuestion {
			found = true
		}
	}
	if !found {
		t.Errorf("OpenQuestions = %v, want %q", merged.OpenQuestions, wantQuestion)
	}
}

func TestMerge_LockContention(t *testing.T) {
	dir := t.TempDir()
	writeImplementArtifact(t, dir, "T1-S01", models.StatusDone, nil)
	outPath := filepath.Join(dir, "implement_T1.json")

	held := NewFileLock(outPath)
	if err := held.Acquire(); err != nil {
		t.Fatalf("pre-acquire lock: %v", err)
	}
	defer held.Release()

	rc, err := Merge(filepath.Join(dir, "implement_T1_*.json"), "", "T1", outPath)
	if !errors.Is(err, ErrLockHeld) {
		t.Fatalf("err = %v, want ErrLockHeld", err)
	}
	if rc != 1 {
		t.Errorf("rc = %d, want 1", rc)
	}
}

func TestMerge_RequiresWorkID(t *testing.T) {
	rc, err := Merge("pattern", "", "", filepath.Join(t.TempDir(), "out.json"))
	if !errors.Is(err, ErrWorkIDRequired) {
		t.Fatalf("err = %v, want ErrWorkIDRequired", err)
	}
	if rc != 1 {
		t.Errorf("rc = %d, want 1", rc)
	}
}

func TestFileLock_ReleaseWithoutAcquire(t *testing.T) {
	lock := NewFileLock(filepath.Join(t.TempDir(), "out.json"))
	if err := lock.Release(); err != nil {
		t.Errorf("Release without Acquire: %v", err)
	}
}

func TestFileLock_AcquireRelease(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.json")
	lock := NewFileLock(outPath)
	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	// The lock is reusable once released.
	second := NewFileLock(outPath)
	if err := second.Acquire(); err != nil {
		t.Fatalf("re-acquire after release: %v", err)
	}
	if err := second.Release(); err != nil {
		t.Fatalf("second release: %v", err)
	}
}
