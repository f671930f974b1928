package stage

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/tandemhq/tandem/internal/config"
	"github.com/tandemhq/tandem/internal/exec"
	"github.com/tandemhq/tandem/internal/invoke"
	"github.com/tandemhq/tandem/pkg/models"
)

// Verify runs the resolved verification command list on the current
// platform and writes both the verify artifact and a sibling JUnit XML
// report. Every command runs even after a failure, so a single run
// reports the full failure surface.
//
// An empty resolved command list is a hard failure (exit 1) with a
// failed artifact, never a silent pass: verification that cannot run
// must not look like verification that ran clean. Otherwise exit 0
// when every command passed, 2 when any failed.
func Verify(ctx context.Context, runner exec.CommandRunner, cfg *config.Config, workID, platform, commandsOverride, outPath string) (int, error) {
	commands := cfg.ResolveVerifyCommands(commandsOverride)

	if len(commands) == 0 {
		payload := models.VerifyResult{
			Platform:    platform,
			Status:      models.StatusFailed,
			Commands:    []models.CommandResult{},
			FailedTests: []models.CommandResult{},
			Artifacts:   []string{},
			OpenQuestions: []string{
				"VERIFY_COMMANDS not configured — pipeline fail. Set VERIFY_COMMANDS env/arg.",
			},
		}
		if err := WriteArtifact(outPath, "verify", workID, payload); err != nil {
			return 1, err
		}
		return 1, nil
	}

	timeout := cfg.Retry.Timeout()
	results := make([]models.CommandResult, 0, len(commands))
	failedTests := []models.CommandResult{}
	failures := 0
	startTotal := time.Now()

	for _, command := range commands {
		res, err := runner.Run(ctx, command, nil, timeout)
		if err != nil {
			return 1, fmt.Errorf("run verify command %q: %w", command, err)
		}
		item := models.CommandResult{
			Command:    command,
			Status:     models.StatusPassed,
			ReturnCode: res.ExitCode,
			TimeMS:     res.Elapsed.Milliseconds(),
			Stdout:     truncate(res.Stdout, invoke.StdoutCap),
			Stderr:     truncate(res.Stderr, invoke.StderrCap),
		}
		if res.TimedOut {
			item.Status = models.StatusFailed
			item.ReturnCode = -1
			item.Stdout = ""
			item.Stderr = fmt.Sprintf("Command timed out after %ds", cfg.Retry.TimeoutSeconds)
		} else if res.ExitCode != 0 {
			item.Status = models.StatusFailed
		}
		results = append(results, item)
		if item.Status == models.StatusFailed {
			failures++
			failedTests = append(failedTests, item)
		}
	}

	junitPath := filepath.Join(filepath.Dir(outPath), fmt.Sprintf("junit_%s_%s.xml", workID, platform))
	if err := WriteJUnit(junitPath, "verify-"+platform, results, time.Since(startTotal), failures); err != nil {
		return 1, err
	}

	status := models.StatusPassed
	if failures > 0 {
		status = models.StatusFailed
	}
	openQuestions := []string{}
	for _, item := range failedTests {
		openQuestions = append(openQuestions, item.Command)
	}
	payload := models.VerifyResult{
		Platform:      platform,
		Status:        status,
		Commands:      results,
		FailedTests:   failedTests,
		Artifacts:     []string{filepath.ToSlash(junitPath)},
		OpenQuestions: openQuestions,
	}
	if err := WriteArtifact(outPath, "verify", workID, payload); err != nil {
		return 1, err
	}
	if status == models.StatusPassed {
		return 0, nil
	}
	return 2, nil
}

// truncate limits s to at most n bytes.
func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
