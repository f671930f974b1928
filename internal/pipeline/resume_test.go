package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

func writeArtifactFile(t *testing.T, dir, name, status string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(`{"status": "`+status+`"}`), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestStageCompleted(t *testing.T) {
	dir := t.TempDir()
	writeArtifactFile(t, dir, "validation_T1.json", "ready")
	writeArtifactFile(t, dir, "plan_T1.json", "done")
	writeArtifactFile(t, dir, "dispatch_T1.json", "done")
	writeArtifactFile(t, dir, "implement_T1.json", "blocked")

	// Stage names map onto their artifact prefixes: split writes
	// dispatch files, merge writes the combined implement file.
	if path, ok := StageCompleted(dir, "validate", "T1"); !ok || filepath.Base(path) != "validation_T1.json" {
		t.Errorf("validate: path=%q ok=%v", path, ok)
	}
	if _, ok := StageCompleted(dir, "split", "T1"); !ok {
		t.Error("split should be completed via the dispatch artifact")
	}
	if _, ok := StageCompleted(dir, "merge", "T1"); ok {
		t.Error("merge should not be completed with a blocked implement artifact")
	}
	if _, ok := StageCompleted(dir, "verify", "T1"); ok {
		t.Error("verify should not be completed without an artifact")
	}
}

func TestStageCompleted_IgnoresUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "plan_T1.json"), []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok := StageCompleted(dir, "plan", "T1"); ok {
		t.Error("an unreadable artifact must not count as completed")
	}
}

func TestSkipStages_StopsAtFirstIncomplete(t *testing.T) {
	dir := t.TempDir()
	writeArtifactFile(t, dir, "validation_T1.json", "ready")
	writeArtifactFile(t, dir, "plan_T1.json", "done")
	// Split artifact absent, but merge output exists. Skipping must
	// still stop at split: downstream success does not prove its
	// inputs are current.
	writeArtifactFile(t, dir, "implement_T1.json", "done")

	skip := SkipStages(dir, "T1", "")
	if !skip["validate"] || !skip["plan"] {
		t.Errorf("skip = %v, want validate and plan skipped", skip)
	}
	if skip["split"] || skip["merge"] {
		t.Errorf("skip = %v, split and merge must run", skip)
	}
}

func TestSkipStages_ForceStageBoundary(t *testing.T) {
	dir := t.TempDir()
	writeArtifactFile(t, dir, "validation_T1.json", "ready")
	writeArtifactFile(t, dir, "plan_T1.json", "done")
	writeArtifactFile(t, dir, "dispatch_T1.json", "done")

	skip := SkipStages(dir, "T1", "plan")
	if !skip["validate"] {
		t.Errorf("skip = %v, want validate skipped", skip)
	}
	if skip["plan"] || skip["split"] {
		t.Errorf("skip = %v, plan and everything after must run", skip)
	}
}

func TestDeriveWorkID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "task.json")
	if err := os.WriteFile(path, []byte(`{"task_id": "T1"}`), 0644); err != nil {
		t.Fatal(err)
	}

	id, err := DeriveWorkID(path)
	if err != nil {
		t.Fatalf("DeriveWorkID failed: %v", err)
	}
	if len(id) != 12 {
		t.Errorf("work id = %q, want 12 hex chars", id)
	}
	again, err := DeriveWorkID(path)
	if err != nil {
		t.Fatalf("DeriveWorkID failed on second call: %v", err)
	}
	if id != again {
		t.Errorf("work id not stable: %q vs %q", id, again)
	}
}

func TestStageIndex(t *testing.T) {
	if got := StageIndex("validate"); got != 0 {
		t.Errorf("StageIndex(validate) = %d, want 0", got)
	}
	if got := StageIndex("review"); got != 6 {
		t.Errorf("StageIndex(review) = %d, want 6", got)
	}
	if got := StageIndex("nope"); got != -1 {
		t.Errorf("StageIndex(nope) = %d, want -1", got)
	}
}
