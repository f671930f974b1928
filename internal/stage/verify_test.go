package stage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tandemhq/tandem/internal/config"
	"github.com/tandemhq/tandem/internal/exec"
	"github.com/tandemhq/tandem/pkg/models"
)

// mapRunner replays a fixed result per command string.
type mapRunner struct {
	results map[string]exec.Result
}

func (r *mapRunner) Run(ctx context.Context, command string, stdin []byte, timeout time.Duration) (exec.Result, error) {
	return r.results[command], nil
}

func TestVerify_NoCommandsConfigured(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "verify_T1_linux.json")
	cfg := config.Default()

	rc, err := Verify(context.Background(), &mapRunner{}, cfg, "T1", "linux", "", outPath)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if rc != 1 {
		t.Errorf("rc = %d, want 1", rc)
	}

	var result models.VerifyResult
	if err := ReadArtifact(outPath, &result); err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if result.Status != models.StatusFailed {
		t.Errorf("Status = %s, want failed", result.Status)
	}
	if len(result.OpenQuestions) != 1 || !strings.Contains(result.OpenQuestions[0], "VERIFY_COMMANDS not configured") {
		t.Errorf("OpenQuestions = %v, want the unconfigured-commands question", result.OpenQuestions)
	}
}

func TestVerify_AllCommandsPass(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "verify_T1_linux.json")
	cfg := config.Default()
	runner := &mapRunner{results: map[string]exec.Result{
		"go test ./...": {ExitCode: 0, Stdout: "ok"},
		"go vet ./...":  {ExitCode: 0},
	}}

	rc, err := Verify(context.Background(), runner, cfg, "T1", "linux",
		`["go test ./...", "go vet ./..."]`, outPath)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if rc != 0 {
		t.Errorf("rc = %d, want 0", rc)
	}

	var result models.VerifyResult
	if err := ReadArtifact(outPath, &result); err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if result.Status != models.StatusPassed {
		t.Errorf("Status = %s, want passed", result.Status)
	}
	if len(result.Commands) != 2 {
		t.Fatalf("Commands = %d entries, want 2", len(result.Commands))
	}
	if len(result.FailedTests) != 0 {
		t.Errorf("FailedTests = %v, want empty", result.FailedTests)
	}

	junitPath := filepath.Join(dir, "junit_T1_linux.xml")
	data, err := os.ReadFile(junitPath)
	if err != nil {
		t.Fatalf("read junit report: %v", err)
	}
	if !strings.Contains(string(data), `name="verify-linux"`) {
		t.Errorf("junit report missing suite name: %s", data)
	}
	if len(result.Artifacts) != 1 || result.Artifacts[0] != filepath.ToSlash(junitPath) {
		t.Errorf("Artifacts = %v, want the junit path", result.Artifacts)
	}
}

func TestVerify_FailureRecorded(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "verify_T1_linux.json")
	cfg := config.Default()
	runner := &mapRunner{results: map[string]exec.Result{
		"go test ./...": {ExitCode: 1, Stderr: "FAIL"},
		"go vet ./...":  {ExitCode: 0},
	}}

	rc, err := Verify(context.Background(), runner, cfg, "T1", "linux",
		"go test ./...; go vet ./...", outPath)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if rc != 2 {
		t.Errorf("rc = %d, want 2", rc)
	}

	var result models.VerifyResult
	if err := ReadArtifact(outPath, &result); err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if result.Status != models.StatusFailed {
		t.Errorf("Status = %s, want failed", result.Status)
	}
	// The second command still ran after the first failed.
	if len(result.Commands) != 2 {
		t.Fatalf("Commands = %d entries, want 2", len(result.Commands))
	}
	if len(result.FailedTests) != 1 || result.FailedTests[0].Command != "go test ./..." {
		t.Errorf("FailedTests = %v, want the failing command", result.FailedTests)
	}
	if len(result.OpenQuestions) != 1 || result.OpenQuestions[0] != "go test ./..." {
		t.Errorf("OpenQuestions = %v, want the failing command", result.OpenQuestions)
	}

	data, err := os.ReadFile(filepath.Join(dir, "junit_T1_linux.xml"))
	if err != nil {
		t.Fatalf("read junit report: %v", err)
	}
	if !strings.Contains(string(data), "<failure") {
		t.Errorf("junit report missing failure element: %s", data)
	}
}

func TestVerify_Timeout(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "verify_T1_linux.json")
	cfg := config.Default()
	cfg.Retry.TimeoutSeconds = 5
	runner := &mapRunner{results: map[string]exec.Result{
		"sleep 60": {ExitCode: -1, Stdout: "partial", TimedOut: true},
	}}

	rc, err := Verify(context.Background(), runner, cfg, "T1", "linux", "sleep 60", outPath)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if rc != 2 {
		t.Errorf("rc = %d, want 2", rc)
	}

	var result models.VerifyResult
	if err := ReadArtifact(outPath, &result); err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	cmd := result.Commands[0]
	if cmd.ReturnCode != -1 {
		t.Errorf("ReturnCode = %d, want -1", cmd.ReturnCode)
	}
	if cmd.Stdout != "" {
		t.Errorf("Stdout = %q, want cleared on timeout", cmd.Stdout)
	}
	if cmd.Stderr != "Command timed out after 5s" {
		t.Errorf("Stderr = %q, want timeout message", cmd.Stderr)
	}
}
