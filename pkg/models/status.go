package models

// StageStatus is the status enum carried by every stage artifact.
type StageStatus string

const (
	// StatusReady indicates validation passed and the task can proceed.
	StatusReady StageStatus = "ready"
	// StatusDone indicates a stage completed successfully.
	StatusDone StageStatus = "done"
	// StatusBlocked indicates a stage could not produce a usable result.
	StatusBlocked StageStatus = "blocked"
	// StatusFailed indicates a stage ran and failed.
	StatusFailed StageStatus = "failed"
	// StatusPassed indicates a verification run with all commands passing.
	StatusPassed StageStatus = "passed"
	// StatusSimulated indicates an agent invocation was synthesized.
	StatusSimulated StageStatus = "simulated"
	// StatusSkipped indicates work that was deliberately not run.
	StatusSkipped StageStatus = "skipped"
	// StatusReadyForMerge is the review verdict when the quality gate passes.
	StatusReadyForMerge StageStatus = "ready_for_merge"
)

// CompletedStatuses are the artifact statuses that mark a stage as
// resumable (skippable on a re-run).
var CompletedStatuses = map[StageStatus]bool{
	StatusPassed: true,
	"completed":  true,
	StatusReady:  true,
	StatusDone:   true,
}

// MergedStatus derives a single status from the statuses of all merged
// subtask results. The rules are evaluated in order, first match wins.
// A skipped result is treated the same as a failed one: skipping a
// subtask is a quality-policy violation, not a neutral outcome. A
// result that carries no status at all counts as failed for the same
// reason.
func MergedStatus(statuses []StageStatus) StageStatus {
	has := func(want StageStatus) bool {
		for _, s := range statuses {
			if s == "" {
				s = StatusFailed
			}
			if s == want {
				return true
			}
		}
		return false
	}
	switch {
	case has(StatusFailed):
		return StatusFailed
	case has(StatusSkipped):
		return StatusFailed
	case has(StatusBlocked):
		return StatusBlocked
	case has(StatusSimulated):
		return StatusDone
	case has(StatusPassed):
		return StatusDone
	case has(StatusReady):
		return StatusReady
	default:
		return StatusDone
	}
}
