package stage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tandemhq/tandem/internal/envelope"
	"github.com/tandemhq/tandem/internal/invoke"
	"github.com/tandemhq/tandem/pkg/models"
)

// ErrSubtaskNotFound indicates the requested subtask ID exists in
// neither the dispatch manifest nor the task definition.
var ErrSubtaskNotFound = errors.New("subtask not found")

// implementRequest is the instruction text sent to the implementing agent.
const implementRequest = "Execute implementation for this subtask and include changed files/commands in response payload."

// Implement runs one subtask through its assigned agent and writes the
// per-subtask implement artifact. The subtask is located in the
// dispatch manifest first, falling back to the task definition, so an
// ad-hoc run works before split has ever produced a manifest.
//
// Exit codes: 0 when the subtask is done, 2 when the task fails
// validation or the agent outcome is failed or blocked. An unknown
// subtask ID is an input error (exit 1 via the returned error), named
// alongside the IDs that do exist.
func Implement(ctx context.Context, inv *invoke.Invoker, taskPath, dispatchPath, subtaskID, workID, outPath string) (int, error) {
	task, errs, err := LoadTask(taskPath)
	if err != nil {
		return 1, err
	}
	if len(errs) > 0 {
		return 2, nil
	}

	var manifest models.DispatchManifest
	if dispatchPath != "" {
		if _, statErr := os.Stat(dispatchPath); statErr == nil {
			if err := ReadArtifact(dispatchPath, &manifest); err != nil {
				return 1, err
			}
		}
	}

	subtask := manifest.Find(subtaskID)
	if subtask == nil {
		subtask = entryFromTask(task, subtaskID)
	}
	if subtask == nil {
		available := manifest.SubtaskIDs()
		if len(available) == 0 {
			available = task.SubtaskIDs()
		}
		return 1, fmt.Errorf("%w: %q (available: %s)",
			ErrSubtaskNotFound, subtaskID, strings.Join(available, ", "))
	}

	if workID == "" {
		workID = task.TaskID
	}
	role := subtask.Role

	invocation, err := inv.Invoke(ctx, role, envelope.Request{
		WorkID:   workID,
		Phase:    "implement",
		TaskID:   task.TaskID,
		Subtask:  subtask,
		FullTask: &task,
		Request:  implementRequest,
	})
	if err != nil {
		return 1, err
	}
	implData := invocation.Decode().Result

	status := models.StatusFailed
	if invocation.Succeeded() {
		status = models.StatusDone
	}

	result := models.ImplementResult{
		Status:           status,
		Subtask:          subtask,
		Role:             role,
		FilesChanged:     stringList(implData["files_changed"]),
		CommandsExecuted: []models.CommandResult{invocation.CommandRecord()},
		FailedTests:      rawList(implData["failed_tests"]),
		Artifacts:        stringList(implData["artifacts"]),
		CLIOutput:        invocation.Record(),
		OpenQuestions:    []string{},
	}
	// A real agent run with no structured payload blocks the subtask
	// rather than passing it on faith.
	if len(implData) == 0 && !invocation.Simulated() {
		result.OpenQuestions = append(result.OpenQuestions,
			"CLI result payload was not structured JSON (empty or unparsable).")
		status = models.StatusBlocked
		result.Status = status
	}
	if status == models.StatusFailed {
		result.OpenQuestions = append(result.OpenQuestions,
			fmt.Sprintf("%s returned status=%s.", role.Owner(), invocation.Status))
	}

	if err := WriteArtifact(outPath, role.Owner(), workID, result); err != nil {
		return 1, err
	}
	if status == models.StatusDone {
		return 0, nil
	}
	return 2, nil
}

// entryFromTask promotes a task-defined subtask into a dispatch entry,
// resolving its role the same way split would have.
func entryFromTask(task models.Task, subtaskID string) *models.DispatchEntry {
	spec := task.FindSubtask(subtaskID)
	if spec == nil {
		return nil
	}
	role := models.ResolveRole(spec.Role, spec.Owner)
	est := spec.EstimatedMinutes
	if est == 0 {
		est = 60
	}
	criteria := spec.AcceptanceCriteria
	if len(criteria) == 0 {
		criteria = task.AcceptanceCriteria
	}
	return &models.DispatchEntry{
		SubtaskID:          spec.SubtaskID,
		Title:              spec.Title,
		Role:               role,
		Owner:              role.Owner(),
		Scope:              fallback(spec.Scope, orDefault(task.Scope, "implementation")),
		EstimatedMinutes:   est,
		DependsOn:          orEmpty(spec.DependsOn),
		FilesAffected:      orEmpty(spec.FilesAffected),
		AcceptanceCriteria: orEmptyCriteria(criteria),
		Notes:              orEmpty(spec.Notes),
		WorkID:             task.TaskID,
		RiskLevel:          orDefault(task.RiskLevel, "medium"),
	}
}

// stringList extracts a []string from a decoded JSON value, dropping
// non-string members.
func stringList(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// rawList re-encodes a decoded JSON list as raw messages, preserving
// agent-provided entries verbatim.
func rawList(v any) []json.RawMessage {
	raw, ok := v.([]any)
	if !ok {
		return []json.RawMessage{}
	}
	out := make([]json.RawMessage, 0, len(raw))
	for _, item := range raw {
		if encoded, err := json.Marshal(item); err == nil {
			out = append(out, encoded)
		}
	}
	return out
}
