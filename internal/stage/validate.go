package stage

import (
	"github.com/tandemhq/tandem/pkg/models"
)

// Validate checks a task file against the task contract, normalizes
// it, and writes the validation artifact. The artifact is written even
// when validation fails so downstream automation can inspect the
// violations.
//
// Exit codes: 0 when the task is ready, 2 when it is blocked by
// contract violations. Input errors (unreadable file, malformed JSON)
// return an error instead; the caller reports those with exit code 1.
func Validate(taskPath, outPath string) (int, error) {
	task, errs, err := LoadTask(taskPath)
	if err != nil {
		return 1, err
	}

	status := models.StatusReady
	if len(errs) > 0 {
		status = models.StatusBlocked
	}
	payload := models.ValidationResult{
		WorkID:           task.TaskID,
		Status:           status,
		ValidationErrors: append([]string{}, errs...),
		Task:             task,
	}
	if err := WriteArtifact(outPath, "validation", task.TaskID, payload); err != nil {
		return 1, err
	}
	if len(errs) > 0 {
		return 2, nil
	}
	return 0, nil
}
