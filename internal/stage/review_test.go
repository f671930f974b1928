package stage

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/tandemhq/tandem/pkg/models"
)

// writeStageArtifact writes a minimal stage artifact for gate tests.
func writeStageArtifact(t *testing.T, dir, name string, payload models.StagePayload) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := WriteArtifact(path, "test", "T1", payload); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReview_CleanRunPasses(t *testing.T) {
	dir := t.TempDir()
	planPath := writeStageArtifact(t, dir, "plan_T1.json", models.StagePayload{Status: models.StatusDone})
	implPath := writeStageArtifact(t, dir, "implement_T1.json", models.StagePayload{Status: models.StatusDone})
	verifyPath := writeStageArtifact(t, dir, "verify_T1_linux.json", models.StagePayload{
		Status:   models.StatusPassed,
		Platform: "linux",
	})
	outPath := filepath.Join(dir, "review_T1.json")

	rc, err := Review("T1", planPath, implPath, []string{verifyPath}, outPath)
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if rc != 0 {
		t.Errorf("rc = %d, want 0", rc)
	}

	var result models.ReviewResult
	if err := ReadArtifact(outPath, &result); err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if result.Status != models.StatusReadyForMerge {
		t.Errorf("Status = %s, want ready_for_merge", result.Status)
	}
	if result.GoNoGo {
		t.Error("GoNoGo = true, want false for a clean run")
	}
	if result.ArchitectReview.Status != "approved" {
		t.Errorf("ArchitectReview.Status = %q, want approved", result.ArchitectReview.Status)
	}
	if result.BuilderReview.Status != "implemented" {
		t.Errorf("BuilderReview.Status = %q, want implemented", result.BuilderReview.Status)
	}
	if len(result.References.Verify) != 1 || result.References.Verify[0] != "linux" {
		t.Errorf("References.Verify = %v, want [linux]", result.References.Verify)
	}
}

func TestReview_BlocksOnStageStatuses(t *testing.T) {
	dir := t.TempDir()
	planPath := writeStageArtifact(t, dir, "plan_T1.json", models.StagePayload{Status: models.StatusBlocked})
	implPath := writeStageArtifact(t, dir, "implement_T1.json", models.StagePayload{Status: models.StatusFailed})
	verifyPath := writeStageArtifact(t, dir, "verify_T1_linux.json", models.StagePayload{
		Status:   models.StatusFailed,
		Platform: "linux",
	})
	outPath := filepath.Join(dir, "review_T1.json")

	rc, err := Review("T1", planPath, implPath, []string{verifyPath}, outPath)
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if rc != 2 {
		t.Errorf("rc = %d, want 2", rc)
	}

	var result models.ReviewResult
	if err := ReadArtifact(outPath, &result); err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if result.Status != models.StatusBlocked {
		t.Errorf("Status = %s, want blocked", result.Status)
	}
	wantActions := []string{
		"Plan phase status is 'blocked', expected 'done'.",
		"Implementation status is 'failed'.",
		"Verify status is 'failed' on linux (expected 'passed').",
	}
	if len(result.ActionRequired) != len(wantActions) {
		t.Fatalf("ActionRequired = %v, want %v", result.ActionRequired, wantActions)
	}
	for i, want := range wantActions {
		if result.ActionRequired[i] != want {
			t.Errorf("ActionRequired[%d] = %q, want %q", i, result.ActionRequired[i], want)
		}
	}
	if result.ArchitectReview.Status != "changes_required" {
		t.Errorf("ArchitectReview.Status = %q, want changes_required", result.ArchitectReview.Status)
	}
	if result.BuilderReview.Status != "needs_revision" {
		t.Errorf("BuilderReview.Status = %q, want needs_revision", result.BuilderReview.Status)
	}
}

func TestReview_OpenQuestionsBlockCleanStatuses(t *testing.T) {
	dir := t.TempDir()
	planPath := writeStageArtifact(t, dir, "plan_T1.json", models.StagePayload{
		Status:        models.StatusDone,
		OpenQuestions: []string{"Which database engine?"},
	})
	implPath := writeStageArtifact(t, dir, "implement_T1.json", models.StagePayload{Status: models.StatusDone})
	outPath := filepath.Join(dir, "review_T1.json")

	rc, err := Review("T1", planPath, implPath, nil, outPath)
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if rc != 2 {
		t.Errorf("rc = %d, want 2", rc)
	}

	var result models.ReviewResult
	if err := ReadArtifact(outPath, &result); err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !result.GoNoGo {
		t.Error("GoNoGo = false, want true when open questions survive")
	}
	if len(result.ActionRequired) != 1 || !strings.Contains(result.ActionRequired[0], "Unresolved open questions: 1 item(s).") {
		t.Errorf("ActionRequired = %v, want the unresolved-questions entry", result.ActionRequired)
	}
	if len(result.OpenQuestions) != 1 || result.OpenQuestions[0] != "Which database engine?" {
		t.Errorf("OpenQuestions = %v, want the plan question", result.OpenQuestions)
	}
}

func TestReview_MissingArtifactsCountAgainstGate(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "review_T1.json")

	rc, err := Review("T1", filepath.Join(dir, "absent_plan.json"), filepath.Join(dir, "absent_impl.json"), nil, outPath)
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if rc != 2 {
		t.Errorf("rc = %d, want 2", rc)
	}

	var result models.ReviewResult
	if err := ReadArtifact(outPath, &result); err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if result.ActionRequired[0] != "Plan phase status is 'missing', expected 'done'." {
		t.Errorf("ActionRequired[0] = %q", result.ActionRequired[0])
	}
	if result.ActionRequired[1] != "Implementation status is 'blocked'." {
		t.Errorf("ActionRequired[1] = %q", result.ActionRequired[1])
	}
}
